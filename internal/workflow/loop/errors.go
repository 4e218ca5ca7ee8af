package loop

import (
	"errors"
	"fmt"
)

var (
	ErrBusy           = errors.New("a turn is already in progress")
	ErrNothingToRetry = errors.New("no failed turn to retry")
	ErrTurnLimit      = errors.New("turn limit exceeded")
	ErrEmptyInput     = errors.New("message is empty")
)

// Kind classifies why a round failed.
type Kind string

const (
	KindTransport Kind = "transport"
	KindProtocol  Kind = "protocol"
	KindResource  Kind = "resource"
	KindCancelled Kind = "cancelled"
)

// RoundError is returned when a round ends without a final answer.
type RoundError struct {
	Kind Kind
	Err  error
}

func (e *RoundError) Error() string {
	return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
}

func (e *RoundError) Unwrap() error { return e.Err }

// ProtocolError carries the message of a StreamError or an inconsistent
// event sequence.
type ProtocolError struct {
	Message string
}

func (e *ProtocolError) Error() string {
	return e.Message
}

// KindOf returns the round error kind of err, or "" if err is not a RoundError.
func KindOf(err error) Kind {
	var re *RoundError
	if errors.As(err, &re) {
		return re.Kind
	}
	return ""
}
