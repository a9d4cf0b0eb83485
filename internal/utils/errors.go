package utils

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by the pipeline stages. Wrap with AppError and match with errors.Is.
var (
	ErrValidation            = errors.New("validation error")
	ErrProviderTimeout       = errors.New("provider timeout")
	ErrProviderError         = errors.New("provider error")
	ErrProviderNotConfigured = errors.New("provider not configured")
	ErrExecutionFailure      = errors.New("execution failure")
	ErrIngestionFailure      = errors.New("ingestion failure")
)

// AppError wraps an operation, human-facing message, and underlying error.
type AppError struct {
	Op  string
	Msg string
	Err error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(op, msg string, err error) error {
	return &AppError{Op: op, Msg: msg, Err: err}
}

// ErrorKind returns the short taxonomy label for err, or "error" when it matches none.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrProviderTimeout):
		return "timeout"
	case errors.Is(err, ErrProviderNotConfigured):
		return "not_configured"
	case errors.Is(err, ErrProviderError):
		return "provider"
	case errors.Is(err, ErrExecutionFailure):
		return "execution"
	case errors.Is(err, ErrIngestionFailure):
		return "ingestion"
	default:
		return "error"
	}
}
