package fs

import "fmt"

// Stage names the step of an atomic write that failed.
type Stage string

const (
	StageCreateTemp Stage = "create temp file"
	StageWrite      Stage = "write temp file"
	StageSync       Stage = "sync temp file"
	StageClose      Stage = "close temp file"
	StageChmod      Stage = "set permissions"
	StageRename     Stage = "rename into place"
)

// AtomicWriteError reports which step of WriteFileAtomic failed.
type AtomicWriteError struct {
	Path  string
	Stage Stage
	Cause error
}

func (e *AtomicWriteError) Error() string {
	return fmt.Sprintf("write %s: %s: %v", e.Path, e.Stage, e.Cause)
}

func (e *AtomicWriteError) Unwrap() error { return e.Cause }
