package main

import (
	"fmt"
	"io"

	"github.com/SaiNageswarS/doqq/config"
	"github.com/SaiNageswarS/doqq/controller"
	"github.com/SaiNageswarS/doqq/llm"
	"github.com/SaiNageswarS/doqq/memory"
	"github.com/SaiNageswarS/doqq/render"
	"github.com/SaiNageswarS/doqq/session"
	"github.com/SaiNageswarS/go-api-boot/logger"
	"go.uber.org/zap"
)

// app wires the config, store, client and controller for one command run.
type app struct {
	cfg        *config.Config
	store      *session.GormStore
	client     *llm.OllamaClient
	manager    *memory.ConversationManager
	controller *controller.Controller
	printer    *render.Printer
}

func newApp(configPath string, out io.Writer, verbose bool) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	client, err := llm.NewOllamaClient(cfg.Ollama.Endpoint,
		llm.WithTimeout(cfg.Ollama.Timeout),
		llm.WithKeepAlive(cfg.Ollama.KeepAlive))
	if err != nil {
		return nil, err
	}

	store, err := session.Open(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}

	manager, err := memory.NewConversationManager(client, store)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	printer := render.NewPrinter(out)
	ctrl, err := controller.New(manager, client,
		controller.WithDefaultModel(cfg.DefaultModel),
		controller.WithSkipHidden(cfg.Prime.SkipHidden),
		controller.WithReporter(render.NewReporter(printer, verbose)))
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	logger.Info("Doqq initialized",
		zap.String("endpoint", client.Endpoint()),
		zap.String("store", cfg.Store.Path))

	return &app{
		cfg:        cfg,
		store:      store,
		client:     client,
		manager:    manager,
		controller: ctrl,
		printer:    printer,
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		logger.Error("Failed to close session store", zap.Error(err))
	}
}
