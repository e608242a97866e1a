// internal/agent/agent.go
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/handoff/internal/browser"
	"github.com/xkilldash9x/handoff/internal/llmclient"
	"github.com/xkilldash9x/handoff/internal/llmutil"
)

const maxPageTextLen = 4000

// PageOpener opens the browser an agent uses when it is told to pick its own.
type PageOpener func(ctx context.Context) (browser.Page, error)

// Config tunes a VisionAgent.
type Config struct {
	MaxActions  int
	Temperature float32
}

// VisionAgent completes a natural-language task by asking a vision model for
// one browser action at a time until the model concludes.
type VisionAgent struct {
	model    llmclient.Client
	executor *BrowserExecutor
	open     PageOpener
	cfg      Config
	logger   *zap.Logger

	mu       sync.Mutex
	fallback browser.Page
}

// New creates a VisionAgent. open may be nil when the agent is only ever given
// explicit browser handles.
func New(model llmclient.Client, open PageOpener, cfg Config, logger *zap.Logger) *VisionAgent {
	if cfg.MaxActions <= 0 {
		cfg.MaxActions = 25
	}
	return &VisionAgent{
		model:    model,
		executor: NewBrowserExecutor(logger),
		open:     open,
		cfg:      cfg,
		logger:   logger.Named("agent"),
	}
}

// Execute runs task in the browser behind h and returns the model's final answer.
func (a *VisionAgent) Execute(ctx context.Context, task string, useVision bool, h browser.Handle) (string, error) {
	page, err := a.pageFor(ctx, h)
	if err != nil {
		return "", err
	}

	var history []string
	for i := 0; i < a.cfg.MaxActions; i++ {
		action, err := a.decide(ctx, page, task, useVision, history)
		if err != nil {
			var parseErr *responseError
			if errors.As(err, &parseErr) {
				a.logger.Warn("Discarding unusable model response.", zap.Error(err))
				history = append(history, "response was not a valid action JSON object; answer with exactly one JSON object")
				continue
			}
			return "", err
		}

		if action.Type == ActionConclude {
			a.logger.Info("Task concluded.", zap.Int("actions", i))
			return action.Value, nil
		}

		result := a.executor.Execute(ctx, page, action)
		if err := ctx.Err(); err != nil {
			return "", err
		}
		a.logger.Debug("Action executed.",
			zap.String("action_id", action.ID),
			zap.String("type", string(action.Type)),
			zap.String("status", result.Status))
		history = append(history, describeOutcome(action, result))
	}
	return "", fmt.Errorf("%w (%d actions)", ErrActionBudgetExhausted, a.cfg.MaxActions)
}

type responseError struct{ err error }

func (e *responseError) Error() string { return e.err.Error() }
func (e *responseError) Unwrap() error { return e.err }

func (a *VisionAgent) decide(ctx context.Context, page browser.Page, task string, useVision bool, history []string) (Action, error) {
	location, err := page.Location(ctx)
	if err != nil {
		return Action{}, fmt.Errorf("read page location: %w", err)
	}
	text, err := page.Text(ctx)
	if err != nil {
		return Action{}, fmt.Errorf("read page text: %w", err)
	}

	req := llmclient.Request{
		SystemPrompt: systemPrompt,
		UserPrompt:   buildUserPrompt(task, location, llmutil.Truncate(text, maxPageTextLen), history),
		JSON:         true,
		Temperature:  a.cfg.Temperature,
	}
	if useVision {
		shot, err := page.Screenshot(ctx)
		if err != nil {
			return Action{}, fmt.Errorf("capture screenshot: %w", err)
		}
		req.Images = [][]byte{shot}
	}

	response, err := a.model.Generate(ctx, req)
	if err != nil {
		return Action{}, fmt.Errorf("llm generation failed: %w", err)
	}

	action, err := llmutil.ParseJSONResponse[Action](response)
	if err != nil {
		return Action{}, &responseError{err: err}
	}
	action.Type = ActionType(strings.ToUpper(strings.TrimSpace(string(action.Type))))
	if action.Type == "" {
		return Action{}, &responseError{err: fmt.Errorf("LLM response missing required 'type' field")}
	}
	action.ID = uuid.NewString()
	action.Timestamp = time.Now().UTC()
	return *action, nil
}

// pageFor resolves h into a page, opening the agent's own browser for the
// default marker. That browser is reused until Close.
func (a *VisionAgent) pageFor(ctx context.Context, h browser.Handle) (browser.Page, error) {
	if p, ok := h.Page(); ok {
		return p, nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.fallback != nil {
		return a.fallback, nil
	}
	if a.open == nil {
		return nil, fmt.Errorf("no browser handle given and no default browser configured")
	}
	p, err := a.open(ctx)
	if err != nil {
		return nil, fmt.Errorf("open default browser: %w", err)
	}
	a.fallback = p
	return p, nil
}

// Close releases the browser the agent opened for itself, if any.
func (a *VisionAgent) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.fallback == nil {
		return nil
	}
	err := a.fallback.Close()
	a.fallback = nil
	return err
}
