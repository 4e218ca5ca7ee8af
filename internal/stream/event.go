package stream

// Event is one decoded step of a streamed model turn.
// Consumers handle events via type switch.
type Event interface {
	isEvent()
}

// TextDelta carries assistant text. Empty deltas are forwarded as-is.
type TextDelta struct {
	Text string
}

func (TextDelta) isEvent() {}

// ToolCallStart opens a tool call.
type ToolCallStart struct {
	ID   string
	Name string
}

func (ToolCallStart) isEvent() {}

// ToolCallArgsDelta is a fragment of a call's JSON arguments. Fragments are
// only meaningful once concatenated at ToolCallEnd.
type ToolCallArgsDelta struct {
	ID       string
	Fragment string
}

func (ToolCallArgsDelta) isEvent() {}

// ToolCallEnd closes a tool call.
type ToolCallEnd struct {
	ID string
}

func (ToolCallEnd) isEvent() {}

// TurnEnd finishes the turn. It is terminal.
type TurnEnd struct {
	StopReason string
}

func (TurnEnd) isEvent() {}

// StreamError ends the turn abnormally. It is terminal.
type StreamError struct {
	Message string
}

func (StreamError) isEvent() {}

// Stop reasons shared by the provider mappers.
const (
	StopEndTurn   = "end_turn"
	StopToolUse   = "tool_use"
	StopMaxTokens = "max_tokens"
)
