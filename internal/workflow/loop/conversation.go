package loop

import (
	"sync"

	"github.com/hewenyu/OperationKernel/internal/provider"
)

// Conversation is the ordered message history. The engine is its only
// writer; readers get copies.
type Conversation struct {
	mu       sync.RWMutex
	messages []provider.Message
}

// NewConversation returns an empty conversation.
func NewConversation() *Conversation {
	return &Conversation{}
}

// Append adds messages at the end.
func (c *Conversation) Append(msgs ...provider.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, msgs...)
}

// Len returns the number of messages.
func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.messages)
}

// Messages returns a copy of the history.
func (c *Conversation) Messages() []provider.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]provider.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// At returns the message at i.
func (c *Conversation) At(i int) provider.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.messages[i]
}

// Truncate drops every message from index n on.
func (c *Conversation) Truncate(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n < 0 {
		n = 0
	}
	if n < len(c.messages) {
		clear(c.messages[n:])
		c.messages = c.messages[:n]
	}
}

// Clear empties the history.
func (c *Conversation) Clear() {
	c.Truncate(0)
}
