package search

import "fmt"

// FileMissingError implements the behavioral interface for missing files.
type FileMissingError struct {
	Path string
}

func (e *FileMissingError) Error() string {
	return "search path does not exist: " + e.Path
}

func (e *FileMissingError) FileMissing() bool {
	return true
}

// NotDirectoryError implements the behavioral interface for non-directory paths.
type NotDirectoryError struct {
	Path string
}

func (e *NotDirectoryError) Error() string {
	return "search path is not a directory: " + e.Path
}

func (e *NotDirectoryError) NotDirectory() bool {
	return true
}

// PatternRequiredError is returned when pattern is empty.
type PatternRequiredError struct{}

func (e *PatternRequiredError) Error() string { return "pattern is required" }

func (e *PatternRequiredError) InvalidInput() bool { return true }

// InvalidPatternError is returned when a glob or regular expression does not compile.
type InvalidPatternError struct {
	Pattern string
	Cause   error
}

func (e *InvalidPatternError) Error() string {
	return fmt.Sprintf("invalid pattern %q: %v", e.Pattern, e.Cause)
}
func (e *InvalidPatternError) Unwrap() error      { return e.Cause }
func (e *InvalidPatternError) InvalidInput() bool { return true }

// NegativeValueError is returned for negative limits or context sizes.
type NegativeValueError struct {
	Field string
	Value int
}

func (e *NegativeValueError) Error() string {
	return fmt.Sprintf("%s cannot be negative: %d", e.Field, e.Value)
}

func (e *NegativeValueError) InvalidInput() bool { return true }

// StatError is returned when stat fails.
type StatError struct {
	Path  string
	Cause error
}

func (e *StatError) Error() string {
	return fmt.Sprintf("failed to stat search path %s: %v", e.Path, e.Cause)
}
func (e *StatError) Unwrap() error { return e.Cause }
func (e *StatError) IOError() bool { return true }

// WalkError is returned when the directory walk fails.
type WalkError struct {
	Path  string
	Cause error
}

func (e *WalkError) Error() string {
	return fmt.Sprintf("failed to walk %s: %v", e.Path, e.Cause)
}
func (e *WalkError) Unwrap() error { return e.Cause }
func (e *WalkError) IOError() bool { return true }
