// internal/agent/executors.go
package agent

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/handoff/internal/browser"
)

const (
	defaultScrollPixels = 600
	defaultWait         = time.Second
	maxWait             = 10 * time.Second
)

// ActionHandler performs one action type against a page.
type ActionHandler func(ctx context.Context, page browser.Page, action Action) error

// BrowserExecutor dispatches actions to their handlers.
type BrowserExecutor struct {
	logger   *zap.Logger
	handlers map[ActionType]ActionHandler
}

// NewBrowserExecutor creates a BrowserExecutor with every browser action registered.
func NewBrowserExecutor(logger *zap.Logger) *BrowserExecutor {
	e := &BrowserExecutor{
		logger:   logger.Named("browser_executor"),
		handlers: make(map[ActionType]ActionHandler),
	}
	e.handlers[ActionNavigate] = e.handleNavigate
	e.handlers[ActionClick] = e.handleClick
	e.handlers[ActionInputText] = e.handleInputText
	e.handlers[ActionScroll] = e.handleScroll
	e.handlers[ActionWaitForAsync] = e.handleWaitForAsync
	return e
}

// Execute runs action on page. Handler failures are reported in the result,
// not as an error, so the model can react to them.
func (e *BrowserExecutor) Execute(ctx context.Context, page browser.Page, action Action) ExecutionResult {
	handler, ok := e.handlers[action.Type]
	if !ok {
		return ExecutionResult{
			Status:       "failed",
			ErrorCode:    ErrCodeUnknownAction,
			ErrorDetails: map[string]any{"message": fmt.Sprintf("unknown action type: %s", action.Type)},
		}
	}
	if err := handler(ctx, page, action); err != nil {
		code, details := ParseBrowserError(err, action)
		e.logger.Warn("Browser action execution failed",
			zap.String("action", string(action.Type)), zap.String("error_code", string(code)), zap.Error(err))
		return ExecutionResult{Status: "failed", ErrorCode: code, ErrorDetails: details}
	}
	return ExecutionResult{Status: "success"}
}

// ParseBrowserError maps a page error onto an ErrorCode.
func ParseBrowserError(err error, action Action) (ErrorCode, map[string]any) {
	msg := err.Error()
	details := map[string]any{
		"message": msg,
		"action":  action.Type,
	}

	switch {
	case errors.Is(err, browser.ErrDomainNotAllowed):
		details["url"] = action.Value
		return ErrCodeDomainBlocked, details
	case errors.Is(err, errInvalidParameters):
		return ErrCodeInvalidParameters, details
	case errors.Is(err, context.DeadlineExceeded), strings.Contains(msg, "timeout"):
		return ErrCodeTimeoutError, details
	case strings.Contains(msg, "net::ERR"):
		return ErrCodeNavigationError, details
	case strings.Contains(msg, "selector"), strings.Contains(msg, "no element found"), strings.Contains(msg, "could not find node"):
		details["selector"] = action.Selector
		return ErrCodeElementNotFound, details
	}
	return ErrCodeExecutionFailure, details
}

var errInvalidParameters = errors.New("invalid action parameters")

// -- Action Handlers --

func (e *BrowserExecutor) handleNavigate(ctx context.Context, page browser.Page, action Action) error {
	if action.Value == "" {
		return fmt.Errorf("NAVIGATE requires a 'value' (URL): %w", errInvalidParameters)
	}
	return page.Navigate(ctx, action.Value)
}

func (e *BrowserExecutor) handleClick(ctx context.Context, page browser.Page, action Action) error {
	if action.Selector == "" {
		return fmt.Errorf("CLICK requires a 'selector': %w", errInvalidParameters)
	}
	return page.Click(ctx, action.Selector)
}

func (e *BrowserExecutor) handleInputText(ctx context.Context, page browser.Page, action Action) error {
	if action.Selector == "" {
		return fmt.Errorf("INPUT_TEXT requires a 'selector': %w", errInvalidParameters)
	}
	return page.Type(ctx, action.Selector, action.Value)
}

func (e *BrowserExecutor) handleScroll(ctx context.Context, page browser.Page, action Action) error {
	pixels := defaultScrollPixels
	switch v := strings.ToLower(strings.TrimSpace(action.Value)); v {
	case "", "down":
	case "up":
		pixels = -defaultScrollPixels
	default:
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SCROLL value must be 'up', 'down' or a pixel count: %w", errInvalidParameters)
		}
		pixels = n
	}
	return page.Scroll(ctx, pixels)
}

func (e *BrowserExecutor) handleWaitForAsync(ctx context.Context, _ browser.Page, action Action) error {
	d := defaultWait
	if val, ok := action.Metadata["duration_ms"]; ok {
		switch v := val.(type) {
		case float64:
			d = time.Duration(v) * time.Millisecond
		case int:
			d = time.Duration(v) * time.Millisecond
		default:
			e.logger.Warn("Invalid type for duration_ms, using default.", zap.String("type", fmt.Sprintf("%T", v)))
		}
	}
	if d > maxWait {
		d = maxWait
	}
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
