// internal/runner/errors.go
package runner

import (
	"errors"
	"fmt"
)

// ErrorCode classifies step-level failures so the controller can choose
// between continuing and aborting without inspecting error text.
type ErrorCode string

const (
	// ErrCodeStepExecutionFailure: the agent failed on an agent step. The run continues.
	ErrCodeStepExecutionFailure ErrorCode = "STEP_EXECUTION_FAILURE"
	// ErrCodeUnknownStepType: the step type is not recognized. The step is skipped.
	ErrCodeUnknownStepType ErrorCode = "UNKNOWN_STEP_TYPE"
	// ErrCodeResourceAcquisition: the agent or browser could not be created. The run aborts.
	ErrCodeResourceAcquisition ErrorCode = "RESOURCE_ACQUISITION_FAILURE"
)

var (
	// ErrAwaitingUser is returned by Start while the run is paused for a human.
	ErrAwaitingUser = errors.New("run is waiting for user action")
	// ErrInterrupted is returned by a drain stopped through RunState.Interrupt.
	ErrInterrupted = errors.New("run was interrupted")
)

// StepError reports a failure attributed to a single step.
type StepError struct {
	Code ErrorCode
	Step string
	Err  error
}

func (e *StepError) Error() string {
	if e.Step == "" {
		return fmt.Sprintf("[%s] %v", e.Code, e.Err)
	}
	return fmt.Sprintf("[%s] step %q: %v", e.Code, e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// IsRecoverable reports whether the run may continue past this failure.
func (e *StepError) IsRecoverable() bool {
	return e.Code == ErrCodeStepExecutionFailure || e.Code == ErrCodeUnknownStepType
}

// CodeOf extracts the ErrorCode from err, or "" when err carries none.
func CodeOf(err error) ErrorCode {
	var se *StepError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}
