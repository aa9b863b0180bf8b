package domain

import (
	"errors"
	"fmt"
)

// Pipeline error taxonomy. Every error surfaced by a component wraps
// exactly one of these so callers can decide between abort and skip.
var (
	// ErrConfiguration indicates bad, missing or contradictory inputs.
	// Detected eagerly before any I/O and never retried.
	ErrConfiguration = errors.New("configuration error")

	// ErrAuthentication indicates no usable credential could be resolved.
	ErrAuthentication = errors.New("authentication error")

	// ErrSourceFetch indicates a single item within a source failed to
	// download or parse. The item is skipped and the batch continues.
	ErrSourceFetch = errors.New("source fetch error")

	// ErrEmbeddingBackend indicates the embedding backend failed.
	ErrEmbeddingBackend = errors.New("embedding backend error")

	// ErrIndexBackend indicates the index backend failed to build,
	// insert or persist. No partial index is considered usable.
	ErrIndexBackend = errors.New("index backend error")
)

// Generic errors shared by adapters.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown format or backend type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrInvalidState indicates an index operation was called out of order.
	ErrInvalidState = errors.New("invalid index state")
)

// StageError names the pipeline stage and the item that failed.
// Kind is one of the taxonomy sentinels above.
type StageError struct {
	Stage string
	Item  string
	Kind  error
	Err   error
}

// Error implements the error interface.
func (e *StageError) Error() string {
	msg := e.Stage
	if e.Item != "" {
		msg += " [" + e.Item + "]"
	}
	if e.Kind != nil {
		msg += ": " + e.Kind.Error()
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *StageError) Unwrap() []error {
	var errs []error
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// NewStageError builds a StageError.
func NewStageError(stage, item string, kind, err error) *StageError {
	return &StageError{Stage: stage, Item: item, Kind: kind, Err: err}
}

// ConfigError returns a configuration error with a formatted message.
func ConfigError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

// Failure records an item that was skipped during extraction.
type Failure struct {
	Stage string
	Item  string
	Err   error
}

// AsError converts the failure into a SourceFetch StageError.
func (f Failure) AsError() error {
	return NewStageError(f.Stage, f.Item, ErrSourceFetch, f.Err)
}
