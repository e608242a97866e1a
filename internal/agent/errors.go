// internal/agent/errors.go
package agent

import "errors"

// ErrorCode classifies action failures so the model can pick a recovery strategy.
type ErrorCode string

const (
	// -- General Execution Errors --
	ErrCodeExecutionFailure  ErrorCode = "EXECUTION_FAILURE"
	ErrCodeInvalidParameters ErrorCode = "INVALID_PARAMETERS"
	ErrCodeUnknownAction     ErrorCode = "UNKNOWN_ACTION_TYPE"
	// -- Browser/DOM Errors --
	ErrCodeElementNotFound ErrorCode = "ELEMENT_NOT_FOUND"
	ErrCodeTimeoutError    ErrorCode = "TIMEOUT_ERROR"
	ErrCodeNavigationError ErrorCode = "NAVIGATION_ERROR"
	ErrCodeDomainBlocked   ErrorCode = "DOMAIN_BLOCKED"
)

// ErrActionBudgetExhausted is returned when the model does not conclude within
// the configured number of actions.
var ErrActionBudgetExhausted = errors.New("agent did not conclude within its action budget")
