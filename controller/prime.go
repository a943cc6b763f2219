package controller

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/SaiNageswarS/doqq/llm"
	"github.com/SaiNageswarS/doqq/prompts"
	"github.com/SaiNageswarS/go-api-boot/logger"
	"go.uber.org/zap"
)

// PrimeResult summarizes one priming run.
type PrimeResult struct {
	SessionID int
	Name      string
	Sent      int
	Failed    int
}

// Prime loads every regular file under root into a session with model. The
// selected session is reused when it is empty, otherwise a new one is
// created and selected.
//
// Per-file failures do not stop the walk. When any file failed the end
// signal is not sent and the run ends in LoadFailed with a *PrimeError.
func (c *Controller) Prime(ctx context.Context, model, root string) (*PrimeResult, error) {
	if err := c.begin(); err != nil {
		return nil, err
	}

	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		err = fmt.Errorf("%w: %s", ErrInvalidRoot, root)
		c.finish(PhaseLoadFailed, err)
		return nil, err
	}

	if model == "" {
		model = c.SelectedModel()
	}
	if model == "" {
		c.finish(PhaseLoadFailed, ErrNoModel)
		return nil, ErrNoModel
	}

	target := c.primeTarget(ctx)
	name := sessionName(root, target)

	c.mu.Lock()
	c.selected = target
	c.transcript = nil
	c.mu.Unlock()

	result := &PrimeResult{SessionID: target, Name: name}
	logger.Info("Priming session",
		zap.Int("session", target),
		zap.String("root", root),
		zap.String("model", model))

	c.emit(target, statusLine("Prime the agent", true))

	instruction, err := prompts.RenderPrimePrompt()
	if err != nil {
		c.finish(PhaseLoadFailed, err)
		return result, err
	}
	if _, err := c.manager.AskDoqq(ctx, target, model, name, llm.ControlMessage(instruction)); err != nil {
		logger.Error("Prime instruction failed", zap.Error(err))
		c.emit(target, statusLine("Something went wrong, is Ollama running?", false))
		c.finish(PhaseLoadFailed, err)
		return result, err
	}

	c.emit(target, statusLine("Ok. Success priming agent", false))
	c.emit(target, statusLine("Priming for dir "+root, false))

	var lastErr error
	chunk := 0
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			next, counted := walkFailure(root, path, d, err)
			if counted {
				result.Failed++
				lastErr = &FileReadError{Path: path, Err: err}
				c.reporter.Send(NewFilePrimed(target, path, lastErr))
			}
			return next
		}

		if c.skipHidden && path != root && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !isRegularFile(path, d) {
			return nil
		}

		if err := c.primeFile(ctx, target, model, name, root, path, d.Name(), chunk+1); err != nil {
			result.Failed++
			lastErr = err
			logger.Error("Failed to prime file", zap.String("path", path), zap.Error(err))
			c.reporter.Send(NewFilePrimed(target, path, err))
			return nil
		}

		chunk++
		result.Sent++
		c.reporter.Send(NewFilePrimed(target, path, nil))
		return nil
	})

	if walkErr != nil {
		logger.Error("Priming walk aborted", zap.String("root", root), zap.Error(walkErr))
		c.emit(target, statusLine("Something went wrong, is Ollama running?", false))
		c.finish(PhaseLoadFailed, walkErr)
		return result, walkErr
	}

	if result.Failed > 0 {
		err := &PrimeError{Failed: result.Failed, Sent: result.Sent, Last: lastErr}
		c.emit(target, statusLine("Some files failed to be primed", false))
		c.finish(PhaseLoadFailed, err)
		return result, err
	}

	c.emit(target, statusLine(fmt.Sprintf("Primed %d files", result.Sent), false))

	response, err := c.manager.AskDoqq(ctx, target, model, name, llm.ControlMessage(prompts.EndSignal))
	if err != nil {
		logger.Error("End signal failed", zap.Error(err))
		c.emit(target, statusLine("Something went wrong, is Ollama running?", false))
		c.finish(PhaseLoadFailed, err)
		return result, err
	}

	c.emit(target, Line{Role: response.Message.Role, Content: response.Message.Content})
	logger.Info("Priming complete", zap.Int("session", target), zap.Int("files", result.Sent))
	c.finish(PhaseReady, nil)
	return result, nil
}

// primeFile reads one file and sends it as chunk number index.
func (c *Controller) primeFile(ctx context.Context, target int, model, name, root, path, fileName string, index int) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return &FileReadError{Path: path, Err: err}
	}

	if !utf8.Valid(content) {
		return &FileReadError{Path: path, Err: ErrNotText}
	}

	rel, err := filepath.Rel(root, path)
	if err != nil {
		return &FileReadError{Path: path, Err: err}
	}

	message, err := prompts.RenderFileChunk(index, prompts.FilePayload{
		FileName:     fileName,
		RelativePath: filepath.ToSlash(rel),
		Content:      string(content),
	})
	if err != nil {
		return err
	}

	_, err = c.manager.AskDoqq(ctx, target, model, name, llm.ControlMessage(message))
	return err
}

// primeTarget reuses the selected slot unless it already holds messages in
// memory or in the store.
func (c *Controller) primeTarget(ctx context.Context) int {
	target := c.Selected()
	count := c.manager.Count()
	if target >= count {
		return count
	}

	if conv, ok := c.manager.Conversation(target); ok && len(conv.History) > 0 {
		return count
	}

	persisted, err := c.manager.FindSession(ctx, target)
	if err != nil {
		logger.Error("Failed to look up session before priming", zap.Int("session", target), zap.Error(err))
		return target
	}
	if persisted != nil && len(persisted.Messages) > 0 {
		return count
	}
	return target
}

// walkFailure decides what a walk error on path does. An unreadable root
// aborts the walk. Unreadable directories are skipped; any other entry
// counts as a failed file.
func walkFailure(root, path string, d fs.DirEntry, err error) (next error, counted bool) {
	if path == root {
		return err, false
	}
	if d != nil && d.IsDir() {
		logger.Error("Skipping unreadable directory", zap.String("path", path), zap.Error(err))
		return fs.SkipDir, false
	}
	return nil, true
}

// isRegularFile reports whether d is a regular file, following symlinks.
// Dangling links and links to directories are not.
func isRegularFile(path string, d fs.DirEntry) bool {
	if d.Type()&fs.ModeSymlink == 0 {
		return d.Type().IsRegular()
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func sessionName(root string, id int) string {
	base := filepath.Base(filepath.Clean(root))
	if base == "." || base == string(filepath.Separator) || base == "" {
		return fmt.Sprintf("New Chat %d", id)
	}
	return base
}

func statusLine(content string, query bool) Line {
	return Line{Role: llm.RoleUser, Content: content, IsQuery: query, Status: true}
}
