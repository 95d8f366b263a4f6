// Package pipeerror defines the error taxonomy of the reconciliation
// pipeline. Each stage failure has its own type so the orchestrator can
// classify outcomes without string matching.
package pipeerror

import "fmt"

// ExtractionError means a message body had no recoverable text.
// Non-retryable; the message is still labeled processed.
type ExtractionError struct {
	EmailID string
	Reason  string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed for message %s: %s", e.EmailID, e.Reason)
}

// ParseError means the LLM call failed, returned malformed JSON, or the
// repaired record violated the schema contract. Non-retryable within a cycle.
type ParseError struct {
	EmailID string
	Stage   string // "llm", "json", "validate"
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse failed for message %s at %s: %v", e.EmailID, e.Stage, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// PersistenceError means the ledger write did not complete.
type PersistenceError struct {
	EmailID string
	Err     error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist failed for message %s: %v", e.EmailID, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// NotificationError means delivery to a single target failed. It never
// affects other targets or the cycle's error count.
type NotificationError struct {
	Target string
	Err    error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("notification to %s failed: %v", e.Target, e.Err)
}

func (e *NotificationError) Unwrap() error {
	return e.Err
}

// ConfigError means a required setting is missing or invalid. Fatal to the
// affected account's cycle only.
type ConfigError struct {
	Setting string
	Reason  string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error for %s: %s", e.Setting, e.Reason)
}
