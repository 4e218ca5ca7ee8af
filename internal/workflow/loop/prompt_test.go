package loop

import (
	"testing"
	"time"

	"github.com/hewenyu/OperationKernel/internal/provider"
	"github.com/stretchr/testify/assert"
)

func TestSystemPrompt(t *testing.T) {
	got := SystemPrompt(PromptInfo{
		WorkingDir: "/work/proj",
		Platform:   "linux/amd64",
		Date:       time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC),
		ExtraRoots: []string{"/tmp"},
		Extra:      "  Prefer table-driven tests.  ",
	})
	assert.Contains(t, got, "Working directory: /work/proj")
	assert.Contains(t, got, "Also accessible: /tmp")
	assert.Contains(t, got, "Platform: linux/amd64")
	assert.Contains(t, got, "Date: 2026-03-04")
	assert.Contains(t, got, "bash_output")
	assert.Contains(t, got, "\nPrefer table-driven tests.\n")
}

func TestLoopDetector(t *testing.T) {
	d := newLoopDetector(3)
	a := provider.ToolCall{Name: "read", Arguments: map[string]any{"path": "a", "limit": 10.0}}
	aReordered := provider.ToolCall{Name: "read", Arguments: map[string]any{"limit": 10.0, "path": "a"}}
	b := provider.ToolCall{Name: "read", Arguments: map[string]any{"path": "b"}}

	assert.Equal(t, 1, d.observe(a))
	assert.Equal(t, 2, d.observe(aReordered))
	assert.Equal(t, 1, d.observe(b))
	// The window holds three calls, so the first a has aged out.
	assert.Equal(t, 2, d.observe(a))

	d.reset()
	assert.Equal(t, 1, d.observe(a))

	assert.Zero(t, newLoopDetector(0).observe(a))
}

func TestConversationTruncate(t *testing.T) {
	c := NewConversation()
	c.Append(provider.UserText("a"), provider.UserText("b"), provider.UserText("c"))

	snapshot := c.Messages()
	c.Truncate(1)
	assert.Equal(t, 1, c.Len())
	assert.Len(t, snapshot, 3, "snapshots are copies")

	c.Truncate(5)
	assert.Equal(t, 1, c.Len())
	c.Clear()
	assert.Zero(t, c.Len())
}
