package workflow

import (
	"github.com/hewenyu/OperationKernel/internal/provider"
	"github.com/hewenyu/OperationKernel/internal/tool"
)

// Event is the interface for all workflow events.
// UI handles events via type switch.
type Event interface {
	isEvent()
}

// ThinkingEvent is emitted when a request is sent to the provider.
type ThinkingEvent struct {
	Round int
}

func (ThinkingEvent) isEvent() {}

// TextEvent is emitted for each streamed piece of assistant text.
type TextEvent struct {
	Text string
}

func (TextEvent) isEvent() {}

// ToolStartEvent is emitted when a tool execution begins.
type ToolStartEvent struct {
	CallID         string
	ToolName       string
	RequestDisplay string // e.g., "Reading src/index.ts"
}

func (ToolStartEvent) isEvent() {}

// ToolEndEvent is emitted when a tool execution completes.
type ToolEndEvent struct {
	CallID   string
	ToolName string
	Display  tool.ToolDisplay
	IsError  bool
}

func (ToolEndEvent) isEvent() {}

// NoticeLevel grades a NoticeEvent.
type NoticeLevel int

const (
	NoticeInfo NoticeLevel = iota
	NoticeWarning
)

// NoticeEvent reports something the user should know that does not end
// the round by itself: turn limit, repeated tool calls, job table full.
type NoticeEvent struct {
	Level NoticeLevel
	Text  string
}

func (NoticeEvent) isEvent() {}

// ErrorEvent is emitted when a round fails. Class is one of transport,
// protocol, resource or cancelled.
type ErrorEvent struct {
	Class string
	Err   error
}

func (ErrorEvent) isEvent() {}

// DoneEvent is emitted once per submitted turn, after every other event of
// that turn. Message is the final assistant message, nil when the round
// failed or was cancelled.
type DoneEvent struct {
	Message *provider.Message
}

func (DoneEvent) isEvent() {}
