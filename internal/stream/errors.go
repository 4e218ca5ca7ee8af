package stream

import "fmt"

const (
	// MsgIncomplete is the StreamError message for a body that ends without TurnEnd.
	MsgIncomplete = "incomplete stream"
	// MsgRecordTooLarge is used when a single line exceeds maxLineBytes.
	MsgRecordTooLarge = "stream record too large"
)

// ReadError wraps a failure reading the underlying body. It is a transport
// failure, unlike StreamError events which describe the protocol.
type ReadError struct {
	Cause error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("reading event stream: %v", e.Cause)
}

func (e *ReadError) Unwrap() error { return e.Cause }
