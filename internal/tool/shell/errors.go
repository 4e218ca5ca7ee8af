package shell

import "fmt"

// CommandRequiredError is returned when a command is missing.
type CommandRequiredError struct{}

func (e *CommandRequiredError) Error() string {
	return "command cannot be empty"
}

func (e *CommandRequiredError) InvalidInput() bool {
	return true
}

// NegativeTimeoutError is returned when timeout_ms is negative.
type NegativeTimeoutError struct {
	Value int
}

func (e *NegativeTimeoutError) Error() string {
	return fmt.Sprintf("timeout_ms cannot be negative: %d", e.Value)
}

func (e *NegativeTimeoutError) InvalidInput() bool {
	return true
}

// JobIDRequiredError is returned when job_id is missing or not positive.
type JobIDRequiredError struct {
	Value int
}

func (e *JobIDRequiredError) Error() string {
	return fmt.Sprintf("job_id must be a positive integer, got %d", e.Value)
}

func (e *JobIDRequiredError) InvalidInput() bool {
	return true
}

// InvalidFilterError is returned when the bash_output filter does not compile.
type InvalidFilterError struct {
	Filter string
	Cause  error
}

func (e *InvalidFilterError) Error() string {
	return fmt.Sprintf("invalid filter %q: %v", e.Filter, e.Cause)
}

func (e *InvalidFilterError) Unwrap() error { return e.Cause }

func (e *InvalidFilterError) InvalidInput() bool {
	return true
}

// WorkingDirError is returned when working_dir is missing or not a directory.
type WorkingDirError struct {
	Path  string
	Cause error
}

func (e *WorkingDirError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("working directory %s is not usable: %v", e.Path, e.Cause)
	}
	return fmt.Sprintf("working directory %s is not a directory", e.Path)
}

func (e *WorkingDirError) Unwrap() error { return e.Cause }
