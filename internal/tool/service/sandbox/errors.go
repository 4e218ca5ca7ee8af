package sandbox

import (
	"errors"
	"fmt"
)

// RootError is returned when a sandbox root cannot be canonicalised.
type RootError struct {
	Root  string
	Cause error
}

func (e *RootError) Error() string {
	return fmt.Sprintf("invalid sandbox root %s: %v", e.Root, e.Cause)
}

func (e *RootError) Unwrap() error { return e.Cause }

// OutsideError is returned when a path resolves outside every sandbox root.
type OutsideError struct {
	Path     string
	Resolved string
}

func (e *OutsideError) Error() string {
	if e.Resolved != "" && e.Resolved != e.Path {
		return fmt.Sprintf("path %s resolves to %s, which is outside the sandbox", e.Path, e.Resolved)
	}
	return fmt.Sprintf("path %s is outside the sandbox", e.Path)
}

func (e *OutsideError) Unwrap() error { return ErrOutsideSandbox }

// SymlinkLoopError is returned when resolving a path follows too many links.
type SymlinkLoopError struct {
	Path string
	Hops int
}

func (e *SymlinkLoopError) Error() string {
	return fmt.Sprintf("too many symlinks resolving %s (max %d)", e.Path, e.Hops)
}

var (
	ErrOutsideSandbox = errors.New("path is outside the sandbox")
	ErrEmptyPath      = errors.New("path is empty")
	ErrNotADirectory  = errors.New("not a directory")
)
