// File: internal/script/errors.go
package script

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a document was rejected.
type ErrorKind string

const (
	KindMalformedDocument ErrorKind = "MALFORMED_DOCUMENT"
	KindMissingStepsList  ErrorKind = "MISSING_STEPS_LIST"
	KindMissingType       ErrorKind = "MISSING_TYPE"
	KindMissingTask       ErrorKind = "MISSING_TASK"
	// KindUnknownType is only produced when strict type checking is requested.
	KindUnknownType ErrorKind = "UNKNOWN_TYPE"
)

// Sentinels for errors.Is matching against a *ValidationError.
var (
	ErrMalformedDocument = errors.New("malformed script document")
	ErrMissingStepsList  = errors.New("script requires a non-empty 'steps' list")
	ErrMissingType       = errors.New("step is missing the 'type' field")
	ErrMissingTask       = errors.New("agent step requires a non-empty 'task'")
	ErrUnknownType       = errors.New("step type must be 'agent' or 'require_user'")
)

// ValidationError is returned by Parse for any script-level problem. Step is the
// 1-based position of the offending step, or 0 for document-level problems.
type ValidationError struct {
	Kind   ErrorKind
	Step   int
	Detail string
	Err    error
}

func (e *ValidationError) Error() string {
	msg := e.sentinel().Error()
	if e.Step > 0 {
		msg = fmt.Sprintf("step %d: %s", e.Step, msg)
	}
	if e.Detail != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Detail)
	}
	return msg
}

// Unwrap exposes both the kind sentinel and any underlying parser error.
func (e *ValidationError) Unwrap() []error {
	errs := []error{e.sentinel()}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func (e *ValidationError) sentinel() error {
	switch e.Kind {
	case KindMalformedDocument:
		return ErrMalformedDocument
	case KindMissingStepsList:
		return ErrMissingStepsList
	case KindMissingType:
		return ErrMissingType
	case KindMissingTask:
		return ErrMissingTask
	case KindUnknownType:
		return ErrUnknownType
	default:
		return errors.New(string(e.Kind))
	}
}
