// internal/runner/controller.go
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/handoff/internal/browser"
	"github.com/xkilldash9x/handoff/internal/script"
)

// Log markers appended by the controller.
const (
	CompletionMarker = "\n\n🎉 All steps completed."
	logSavedPrefix   = "\n\n📁 Run log saved: "
)

// StepOutcome describes a finished step for observers.
type StepOutcome struct {
	SessionID string
	Step      script.Step
	Code      ErrorCode
	Paused    bool
	Duration  time.Duration
}

// Controller drives the step state machine. It holds no per-session state;
// everything about a run lives in the RunState passed to each call.
type Controller struct {
	factory     ResourceFactory
	browserOpts browser.Options
	executor    *StepExecutor
	parseOpts   []script.ParseOption
	sink        LogSink
	clock       func() time.Time
	onStep      func(StepOutcome)
	logger      *zap.Logger
	useVision   bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock overrides the time source used for {today}.
func WithClock(clock func() time.Time) Option {
	return func(c *Controller) { c.clock = clock }
}

// WithLogSink flushes the log of every naturally completed run to sink.
func WithLogSink(sink LogSink) Option {
	return func(c *Controller) { c.sink = sink }
}

// WithParseOptions forwards options to script.Parse.
func WithParseOptions(opts ...script.ParseOption) Option {
	return func(c *Controller) { c.parseOpts = append(c.parseOpts, opts...) }
}

// WithVision sets the vision flag passed to the agent. It defaults to true.
func WithVision(enabled bool) Option {
	return func(c *Controller) { c.useVision = enabled }
}

// WithStepObserver registers fn to be called after every executed step.
func WithStepObserver(fn func(StepOutcome)) Option {
	return func(c *Controller) { c.onStep = fn }
}

// NewController creates a Controller that acquires resources from factory.
func NewController(factory ResourceFactory, browserOpts browser.Options, logger *zap.Logger, opts ...Option) *Controller {
	c := &Controller{
		factory:     factory,
		browserOpts: browserOpts,
		clock:       time.Now,
		logger:      logger.Named("controller"),
		useVision:   true,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.executor = NewStepExecutor(logger, c.useVision)
	return c
}

// Start begins or continues a run of document from state.Cursor. It refuses
// to run while the state is waiting for a human.
func (c *Controller) Start(ctx context.Context, state *RunState, document []byte, prompt string) error {
	if state.Waiting {
		return ErrAwaitingUser
	}
	return c.drain(ctx, state, document, prompt)
}

// Resume clears a pending pause and continues the drain loop from the cursor.
func (c *Controller) Resume(ctx context.Context, state *RunState, document []byte, prompt string) error {
	state.Waiting = false
	state.WaitMessage = ""
	return c.drain(ctx, state, document, prompt)
}

// Reset returns state to idle and releases its resources. The state is reset
// even when releasing fails.
func (c *Controller) Reset(state *RunState) error {
	err := state.Resources.Release()
	if err != nil {
		c.logger.Warn("Failed to release session resources.", zap.String("session_id", state.SessionID), zap.Error(err))
	}
	state.Cursor = 0
	state.Log = ResetBanner
	state.Waiting = false
	state.WaitMessage = ""
	state.Status = StatusIdle
	state.Resources = nil
	state.interrupted.Store(false)
	return err
}

func (c *Controller) drain(ctx context.Context, state *RunState, document []byte, prompt string) error {
	logger := c.logger.With(zap.String("session_id", state.SessionID))

	sc, err := script.Parse(document, c.parseOpts...)
	if err != nil {
		state.Status = StatusAborted
		state.appendLog(fmt.Sprintf("\n\n❌ script error: %v", err))
		logger.Warn("Script rejected.", zap.Error(err))
		return err
	}

	if state.Status == StatusCompleted && state.Cursor >= sc.Len() {
		return nil
	}

	if err := c.acquire(ctx, state); err != nil {
		state.Status = StatusAborted
		state.appendLog(fmt.Sprintf("\n\n❌ resource acquisition failed: %v", errors.Unwrap(err)))
		logger.Error("Could not acquire run resources.", zap.Error(err))
		return err
	}

	state.Status = StatusRunning
	vars := TemplateVars{Today: c.clock(), Prompt: prompt}

	for state.Cursor < sc.Len() {
		if err := ctx.Err(); err != nil {
			state.Status = StatusAborted
			return err
		}
		if state.interrupted.Load() {
			state.Status = StatusAborted
			logger.Info("Run interrupted.", zap.Int("cursor", state.Cursor))
			return ErrInterrupted
		}

		step := sc.Steps[state.Cursor]
		logger.Info("Executing step.", zap.Int("cursor", state.Cursor), zap.String("step", step.Name), zap.String("type", string(step.Type)))

		started := time.Now()
		result, stepErr := c.executor.Execute(ctx, step, vars, state.Resources)
		code := CodeOf(stepErr)
		if stepErr != nil {
			var se *StepError
			if !errors.As(stepErr, &se) || !se.IsRecoverable() {
				state.Status = StatusAborted
				return stepErr
			}
		}

		state.appendLog(formatEntry(step, result, code))
		state.Cursor++

		if c.onStep != nil {
			c.onStep(StepOutcome{
				SessionID: state.SessionID,
				Step:      step,
				Code:      code,
				Paused:    result.Pause,
				Duration:  time.Since(started),
			})
		}

		if result.Pause {
			state.Waiting = true
			state.WaitMessage = result.PauseMessage
			state.Status = StatusPausedForUser
			logger.Info("Waiting for user.", zap.String("step", step.Name), zap.Int("cursor", state.Cursor))
			return nil
		}
	}

	state.Status = StatusCompleted
	state.appendLog(CompletionMarker)
	logger.Info("Run completed.", zap.Int("steps", sc.Len()))

	if c.sink != nil {
		path, err := c.sink.Save(state.SessionID, state.Log)
		if err != nil {
			logger.Warn("Failed to save run log.", zap.Error(err))
			return nil
		}
		state.appendLog(logSavedPrefix + path)
	}
	return nil
}

// formatEntry renders one step under its heading.
func formatEntry(step script.Step, result StepResult, code ErrorCode) string {
	switch {
	case code == ErrCodeUnknownStepType:
		return fmt.Sprintf("\n\n### ⚠️ %s\n%s", step.Name, result.Display)
	case code == ErrCodeStepExecutionFailure:
		return fmt.Sprintf("\n\n### ❌ %s (agent)\n%s\n", step.Name, result.Display)
	case step.Type == script.StepRequireUser:
		return fmt.Sprintf("\n\n### ⏸ %s (require_user)\n- instructions: %s\n", step.Name, result.Display)
	default:
		return fmt.Sprintf("\n\n### ✅ %s (agent)\n%s\n", step.Name, result.Display)
	}
}
