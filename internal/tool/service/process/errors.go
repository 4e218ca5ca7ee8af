package process

import (
	"errors"
	"fmt"
)

var (
	ErrClosed    = errors.New("process manager is shut down")
	ErrTableFull = errors.New("background job table is full")
)

// UnknownJobError is returned for ids that were never issued or were reaped.
type UnknownJobError struct {
	ID int
}

func (e *UnknownJobError) Error() string {
	return fmt.Sprintf("unknown job id %d", e.ID)
}

// SpawnError is returned when a background command cannot be started.
type SpawnError struct {
	Command string
	Cause   error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to start background command %q: %v", e.Command, e.Cause)
}

func (e *SpawnError) Unwrap() error { return e.Cause }
