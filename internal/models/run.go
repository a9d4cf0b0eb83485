package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// RunResult aggregates the output of every pipeline stage.
type RunResult struct {
	RunID         string
	Metrics       MetricsSnapshot
	Summary       string
	Decision      Decision
	ActionResult  ActionResult
	ExecutionTime time.Duration
}

// MarshalJSON renders the caller-facing result shape.
func (r RunResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"runId":           r.RunID,
		"metrics":         r.Metrics,
		"summary":         r.Summary,
		"decision":        r.Decision,
		"actionResult":    r.ActionResult,
		"executionTimeMs": r.ExecutionTime.Milliseconds(),
		"executionTime":   fmt.Sprintf("%dms", r.ExecutionTime.Milliseconds()),
	})
}

// RunError is the single structured failure surfaced for an unrecoverable run.
type RunError struct {
	Kind      string `json:"error"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	cause     error
}

// NewRunError wraps cause into the aggregate error shape.
func NewRunError(kind string, cause error, timestamp string) *RunError {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return &RunError{Kind: kind, Message: msg, Timestamp: timestamp, cause: cause}
}

func (e *RunError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *RunError) Unwrap() error {
	return e.cause
}
