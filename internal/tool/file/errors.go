package file

import (
	"errors"
	"fmt"
)

// -- Sentinels --

var (
	ErrPathRequired      = errors.New("path is required")
	ErrOldStringRequired = errors.New("old_string is required")
	ErrNoChange          = errors.New("old_string and new_string are identical")
	ErrInvalidOffset     = errors.New("offset must be >= 0")
	ErrInvalidLimit      = errors.New("limit must be >= 1")
	ErrFileMissing       = errors.New("file does not exist")
	ErrIsDirectory       = errors.New("path is a directory")
	ErrNotText           = errors.New("file is not UTF-8 text")
	ErrBinaryContent     = errors.New("content contains NUL bytes")
	ErrFileTooLarge      = errors.New("file too large")
	ErrAnchorNotFound    = errors.New("old_string not found")
	ErrAnchorNotUnique   = errors.New("old_string is not unique")
	ErrOffsetPastEnd     = errors.New("offset is past the end of the file")
)

// -- Typed errors --

// PathError attaches the offending path to one of the sentinels above.
type PathError struct {
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return fmt.Sprintf("%v: %s", e.Err, e.Path)
}

func (e *PathError) Unwrap() error { return e.Err }

// TooLargeError reports a file or payload that exceeds tools.max_file_size.
type TooLargeError struct {
	Path  string
	Size  int64
	Limit int64
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("file too large: %s (size %d, limit %d)", e.Path, e.Size, e.Limit)
}

func (e *TooLargeError) Unwrap() error { return ErrFileTooLarge }

// NotUniqueError reports how many times a non-unique anchor occurred.
type NotUniqueError struct {
	Path  string
	Count int
}

func (e *NotUniqueError) Error() string {
	return fmt.Sprintf("old_string matches %d locations in %s; add surrounding context or set replace_all", e.Count, e.Path)
}

func (e *NotUniqueError) Unwrap() error { return ErrAnchorNotUnique }

// IOError wraps a failed filesystem operation.
type IOError struct {
	Op    string
	Path  string
	Cause error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("failed to %s %s: %v", e.Op, e.Path, e.Cause)
}

func (e *IOError) Unwrap() error { return e.Cause }
