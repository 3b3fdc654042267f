package export

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	ErrMarshalFailed   = errors.New("marshal failed")
	ErrCorruptArtifact = errors.New("corrupt artifact")
	ErrSinkFailed      = errors.New("sink write failed")
	ErrNoSinks         = errors.New("no sinks configured")
)

// ExportError provides structured error information for export operations.
type ExportError struct {
	Op    string // Operation that failed (e.g., "marshal", "put")
	Sink  string // Sink name (e.g., "file", "s3")
	Key   string // Artifact key
	Cause error
}

// Error implements the error interface.
func (e *ExportError) Error() string {
	switch {
	case e.Sink != "" && e.Key != "":
		return fmt.Sprintf("%s %s %s: %v", e.Op, e.Sink, e.Key, e.Cause)
	case e.Key != "":
		return fmt.Sprintf("%s %s: %v", e.Op, e.Key, e.Cause)
	default:
		return fmt.Sprintf("%s: %v", e.Op, e.Cause)
	}
}

// Unwrap returns the underlying cause for error chain support.
func (e *ExportError) Unwrap() error {
	return e.Cause
}

func sinkError(sink, key string, cause error) error {
	return &ExportError{
		Op:    "put",
		Sink:  sink,
		Key:   key,
		Cause: errors.Join(ErrSinkFailed, cause),
	}
}

// IsCorrupt returns true if the error indicates a damaged compressed artifact.
func IsCorrupt(err error) bool {
	return errors.Is(err, ErrCorruptArtifact)
}
