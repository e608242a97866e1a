// internal/runner/executor.go
package runner

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/handoff/internal/safety"
	"github.com/xkilldash9x/handoff/internal/script"
)

// Default messages shown when a pause does not name its own.
const (
	DefaultAgentPauseMessage   = "User action required. Resume once it is complete."
	DefaultRequireUserMessage  = "Complete this step manually, then resume."
	executionErrorDisplayLabel = "❌ execution error: "
)

// StepResult is the outcome of one step. Display is already redacted and safe
// to persist.
type StepResult struct {
	Display      string
	Pause        bool
	PauseMessage string
}

// StepExecutor runs a single step against the session's resources.
type StepExecutor struct {
	logger    *zap.Logger
	useVision bool
}

// NewStepExecutor creates a StepExecutor. useVision is passed to every agent call.
func NewStepExecutor(logger *zap.Logger, useVision bool) *StepExecutor {
	return &StepExecutor{logger: logger.Named("executor"), useVision: useVision}
}

// Execute runs step. A non-nil error is always a *StepError, and the returned
// StepResult still carries the display text to log for it.
func (e *StepExecutor) Execute(ctx context.Context, step script.Step, vars TemplateVars, res *Resources) (StepResult, error) {
	switch step.Type {
	case script.StepAgent:
		return e.executeAgent(ctx, step, vars, res)
	case script.StepRequireUser:
		msg := step.Message
		if msg == "" {
			msg = DefaultRequireUserMessage
		}
		return StepResult{Display: msg, Pause: true, PauseMessage: msg}, nil
	default:
		e.logger.Warn("Skipping step with unknown type.",
			zap.String("step", step.Name), zap.String("type", string(step.Type)))
		return StepResult{Display: fmt.Sprintf("unknown type: %s (skipped)", step.Type)},
			&StepError{Code: ErrCodeUnknownStepType, Step: step.Name, Err: fmt.Errorf("unknown step type %q", step.Type)}
	}
}

func (e *StepExecutor) executeAgent(ctx context.Context, step script.Step, vars TemplateVars, res *Resources) (StepResult, error) {
	if res == nil || res.Agent == nil {
		err := &StepError{Code: ErrCodeStepExecutionFailure, Step: step.Name, Err: fmt.Errorf("no agent available")}
		return StepResult{Display: executionErrorDisplayLabel + err.Err.Error()}, err
	}

	task := safety.Wrap(vars.Apply(step.Task))
	raw, err := res.Agent.Execute(ctx, task, e.useVision, res.Browser)
	if err != nil {
		e.logger.Warn("Agent step failed.", zap.String("step", step.Name), zap.String("error", safety.Redact(err.Error())))
		return StepResult{Display: executionErrorDisplayLabel + safety.Redact(err.Error())},
			&StepError{Code: ErrCodeStepExecutionFailure, Step: step.Name, Err: err}
	}

	pause, msg := EvaluatePause(step.WaitForUserIf, raw)
	return StepResult{
		Display:      safety.Redact(raw),
		Pause:        pause,
		PauseMessage: msg,
	}, nil
}

// EvaluatePause decides whether the raw, unredacted agent result trips cond.
// Matching is a case-insensitive substring test.
func EvaluatePause(cond *script.WaitCondition, raw string) (bool, string) {
	if cond == nil || cond.Contains == "" {
		return false, ""
	}
	if !strings.Contains(strings.ToLower(raw), strings.ToLower(cond.Contains)) {
		return false, ""
	}
	if cond.Message == "" {
		return true, DefaultAgentPauseMessage
	}
	return true, cond.Message
}
