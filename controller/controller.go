package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/SaiNageswarS/doqq/llm"
	"github.com/SaiNageswarS/doqq/memory"
	"github.com/SaiNageswarS/go-api-boot/logger"
	"github.com/SaiNageswarS/go-collection-boot/async"
	"go.uber.org/zap"
)

// Line is one entry of the visible transcript. Status lines are produced by
// the controller itself and never persisted.
type Line struct {
	Role    string
	Content string
	IsQuery bool
	Status  bool
}

var serverDownHints = []string{
	"Ollama not installed or not running.",
	"Please download Ollama from `https://ollama.com`",
	"Once it is running, try again.",
}

var noModelHints = []string{
	"Ollama installed but no model found.",
	"You can install one by running `ollama run codellama:13b`",
	"Browse https://ollama.com/search for one that suits your needs.",
	"Once done, try again.",
}

// Controller drives the chat and priming flows over a ConversationManager
// and exposes the visible transcript of the selected session.
type Controller struct {
	manager      *memory.ConversationManager
	client       llm.InferenceClient
	defaultModel string
	skipHidden   bool
	reporter     ProgressReporter

	mu         sync.RWMutex
	phase      Phase
	lastErr    error
	hydrated   bool
	busy       bool
	selected   int
	transcript []Line
	models     []llm.ModelInfo
}

type Option func(*Controller)

// WithDefaultModel sets the model used for new sessions.
func WithDefaultModel(model string) Option {
	return func(c *Controller) { c.defaultModel = model }
}

// WithSkipHidden skips dot-files and dot-directories while priming.
func WithSkipHidden(skip bool) Option {
	return func(c *Controller) { c.skipHidden = skip }
}

func WithReporter(reporter ProgressReporter) Option {
	return func(c *Controller) {
		if reporter != nil {
			c.reporter = reporter
		}
	}
}

func New(manager *memory.ConversationManager, client llm.InferenceClient, opts ...Option) (*Controller, error) {
	if manager == nil {
		return nil, errors.New("controller: conversation manager is required")
	}
	if client == nil {
		return nil, errors.New("controller: inference client is required")
	}

	c := &Controller{
		manager:  manager,
		client:   client,
		reporter: &NoOpProgressReporter{},
		phase:    PhaseLoading,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Start probes the inference server, hydrates the sessions and selects the
// most recent one. It may be called again after ServerUnavailable.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return ErrBusy
	}
	c.busy = true
	c.phase = PhaseLoading
	c.lastErr = nil
	c.transcript = []Line{{Role: llm.RoleUser, Content: "Initializing", Status: true}}
	c.mu.Unlock()
	c.reporter.Send(NewPhaseChange(PhaseLoading, nil))

	models, err := async.Await(c.client.ListModels(ctx))
	if err != nil {
		logger.Error("Inference server probe failed", zap.Error(err))
		c.unavailable(err, serverDownHints)
		return err
	}
	if len(models.Models) == 0 {
		logger.Error("Inference server has no installed models")
		c.unavailable(ErrNoModels, noModelHints)
		return ErrNoModels
	}

	c.mu.Lock()
	c.models = append([]llm.ModelInfo(nil), models.Models...)
	c.phase = PhaseBusy
	c.mu.Unlock()
	c.reporter.Send(NewPhaseChange(PhaseBusy, nil))
	logger.Info("Inference server reachable", zap.Int("models", len(models.Models)))

	if err := c.manager.LoadSessions(ctx); err != nil {
		logger.Error("Failed to load sessions", zap.Error(err))
		c.finish(PhaseLoadFailed, err)
		return err
	}

	c.mu.Lock()
	c.hydrated = true
	count := c.manager.Count()
	c.selected = 0
	if count > 0 {
		c.selected = count - 1
	}
	c.transcript = c.project(c.selected)
	c.mu.Unlock()

	logger.Info("Sessions loaded", zap.Int("count", count))
	c.finish(PhaseReady, nil)
	return nil
}

func (c *Controller) unavailable(err error, hints []string) {
	c.mu.Lock()
	for _, hint := range hints {
		c.transcript = append(c.transcript, Line{Role: llm.RoleUser, Content: hint, Status: true})
	}
	c.mu.Unlock()
	for _, hint := range hints {
		c.reporter.Send(NewLine(c.Selected(), Line{Role: llm.RoleUser, Content: hint, Status: true}))
	}
	c.finish(PhaseServerUnavailable, err)
}

// Ask sends a user message on the selected session.
func (c *Controller) Ask(ctx context.Context, text string) (*llm.ChatResponse, error) {
	if err := c.begin(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	id := c.selected
	c.mu.RUnlock()

	model := c.SelectedModel()
	if model == "" {
		c.finish(PhaseExchangeFailed, ErrNoModel)
		return nil, ErrNoModel
	}

	name := fmt.Sprintf("New Chat %d", id)
	if conv, ok := c.manager.Conversation(id); ok && conv.Name != "" {
		name = conv.Name
	}

	c.emit(id, Line{Role: llm.RoleUser, Content: text, IsQuery: true})

	response, err := c.manager.AskDoqq(ctx, id, model, name, llm.UserMessage(text))
	if err != nil {
		c.finish(PhaseExchangeFailed, err)
		return nil, err
	}

	c.emit(id, Line{Role: response.Message.Role, Content: response.Message.Content})
	c.finish(PhaseExchangeSucceeded, nil)
	return response, nil
}

// Select swaps the visible transcript to session id. id equal to the
// session count selects a fresh slot. An exchange in flight keeps running.
func (c *Controller) Select(id int) error {
	count := c.manager.Count()
	if id < 0 || id > count {
		return fmt.Errorf("controller: select %d of %d sessions: %w", id, count, memory.ErrSessionOutOfRange)
	}

	c.mu.Lock()
	c.selected = id
	c.transcript = c.project(id)
	c.mu.Unlock()
	return nil
}

// project returns the visible lines of session id.
func (c *Controller) project(id int) []Line {
	conv, ok := c.manager.Conversation(id)
	if !ok {
		return nil
	}

	visible := conv.Visible()
	lines := make([]Line, 0, len(visible))
	for _, msg := range visible {
		lines = append(lines, Line{Role: msg.Role, Content: msg.Content, IsQuery: msg.IsQuery})
	}
	return lines
}

// begin claims the controller for one exchange or priming run.
func (c *Controller) begin() error {
	c.mu.Lock()
	if !c.hydrated {
		c.mu.Unlock()
		return ErrNotReady
	}
	if c.busy {
		c.mu.Unlock()
		return ErrBusy
	}
	c.busy = true
	c.phase = PhaseBusy
	c.lastErr = nil
	c.mu.Unlock()

	c.reporter.Send(NewPhaseChange(PhaseBusy, nil))
	return nil
}

func (c *Controller) finish(phase Phase, err error) {
	c.mu.Lock()
	c.busy = false
	c.phase = phase
	c.lastErr = err
	c.mu.Unlock()

	c.reporter.Send(NewPhaseChange(phase, err))
}

// emit appends line to the transcript when session id is still selected
// and always reports it.
func (c *Controller) emit(id int, line Line) {
	c.mu.Lock()
	if c.selected == id {
		c.transcript = append(c.transcript, line)
	}
	c.mu.Unlock()

	c.reporter.Send(NewLine(id, line))
}

func (c *Controller) Phase() Phase {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.phase
}

// LastError returns the cause of the last failed operation, nil after a
// success.
func (c *Controller) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

func (c *Controller) Busy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.busy
}

func (c *Controller) Selected() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.selected
}

// Transcript returns a copy of the visible transcript of the selected session.
func (c *Controller) Transcript() []Line {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Line(nil), c.transcript...)
}

func (c *Controller) InstalledModels() []llm.ModelInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]llm.ModelInfo(nil), c.models...)
}

// SelectedModel returns the model of the selected session, falling back to
// the configured default and then to the first installed model.
func (c *Controller) SelectedModel() string {
	c.mu.RLock()
	id := c.selected
	c.mu.RUnlock()

	if conv, ok := c.manager.Conversation(id); ok && conv.ModelName != "" {
		return conv.ModelName
	}
	return c.fallbackModel()
}

func (c *Controller) fallbackModel() string {
	if c.defaultModel != "" {
		return c.defaultModel
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.models) > 0 {
		return c.models[0].Name
	}
	return ""
}
