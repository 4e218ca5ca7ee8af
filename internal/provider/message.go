package provider

import "strings"

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Block is one piece of message content: Text, ToolCall or ToolResult.
type Block interface {
	isBlock()
}

// Text is plain message text.
type Text struct {
	Text string
}

func (Text) isBlock() {}

// ToolCall is a tool invocation requested by the model.
// Arguments is nil when RawArguments did not parse as a JSON object.
type ToolCall struct {
	ID           string
	Name         string
	Arguments    map[string]any
	RawArguments string
}

func (ToolCall) isBlock() {}

// ToolResult answers the ToolCall with the same id.
type ToolResult struct {
	ToolCallID string
	Name       string
	Content    string
	IsError    bool
}

func (ToolResult) isBlock() {}

// Message is one entry of the conversation history.
type Message struct {
	Role    Role
	Content []Block
}

// UserText builds a user message holding a single text block.
func UserText(text string) Message {
	return Message{Role: RoleUser, Content: []Block{Text{Text: text}}}
}

// ToolMessage wraps a single result in a tool message.
func ToolMessage(res ToolResult) Message {
	return Message{Role: RoleTool, Content: []Block{res}}
}

// Text concatenates the message's text blocks.
func (m Message) Text() string {
	var sb strings.Builder
	for _, b := range m.Content {
		if t, ok := b.(Text); ok {
			sb.WriteString(t.Text)
		}
	}
	return sb.String()
}

// ToolCalls returns the message's tool calls in order.
func (m Message) ToolCalls() []ToolCall {
	var calls []ToolCall
	for _, b := range m.Content {
		if c, ok := b.(ToolCall); ok {
			calls = append(calls, c)
		}
	}
	return calls
}

// ToolResults returns the message's tool results in order.
func (m Message) ToolResults() []ToolResult {
	var results []ToolResult
	for _, b := range m.Content {
		if r, ok := b.(ToolResult); ok {
			results = append(results, r)
		}
	}
	return results
}

// EmptyResultContent replaces blank tool output; both providers reject
// empty tool result content.
const EmptyResultContent = "(no output)"

// ResultContent returns r.Content, or EmptyResultContent when it is blank.
func (r ToolResult) ResultContent() string {
	if strings.TrimSpace(r.Content) == "" {
		return EmptyResultContent
	}
	return r.Content
}

// Wire is the provider-facing shape of a conversation: the engine's user
// and tool messages fold into alternating user/assistant turns because
// neither provider has a dedicated tool role.
type Wire struct {
	Role    Role
	Content []Block
}

// Fold merges consecutive messages that map to the same wire role. Tool
// messages count as user turns.
func Fold(msgs []Message) []Wire {
	var out []Wire
	for _, m := range msgs {
		role := m.Role
		if role == RoleTool {
			role = RoleUser
		}
		if len(m.Content) == 0 {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Role == role {
			out[n-1].Content = append(out[n-1].Content, m.Content...)
			continue
		}
		content := make([]Block, len(m.Content))
		copy(content, m.Content)
		out = append(out, Wire{Role: role, Content: content})
	}
	return out
}
