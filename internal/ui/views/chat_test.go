package views

import (
	"errors"
	"testing"

	"github.com/hewenyu/OperationKernel/internal/ui/models"
	"github.com/stretchr/testify/assert"
)

func TestRenderChat_NoMessages(t *testing.T) {
	result := RenderChat(models.State{})
	assert.Contains(t, result, "No messages yet")
}

func TestRenderChat_WithMessages(t *testing.T) {
	vp := createTestViewport()
	vp.SetContent("Rendered Content")

	state := models.State{
		Messages: []models.Message{{Role: models.RoleUser, Content: "Hello"}},
		Viewport: vp,
	}

	assert.Contains(t, RenderChat(state), "Rendered Content")
}

func TestFormatChatContent_Roles(t *testing.T) {
	renderer := &MockMarkdownRenderer{RenderFunc: func(s string, _ int) (string, error) {
		return "<md>" + s + "</md>", nil
	}}
	messages := []models.Message{
		{Role: models.RoleUser, Content: "fix it"},
		{Role: models.RoleAssistant, Content: "**ok**"},
		{Role: models.RoleTool, Content: "✔ edit a.go (+1 -1)\n-old\n+new"},
		{Role: models.RoleNotice, Content: "Turn limit exceeded"},
		{Role: models.RoleError, Content: "transport error: boom"},
	}

	got := FormatChatContent(messages, "partial", 80, renderer)

	assert.Contains(t, got, "You: fix it")
	assert.Contains(t, got, "<md>**ok**</md>")
	assert.Contains(t, got, "+new")
	assert.Contains(t, got, "! Turn limit exceeded")
	assert.Contains(t, got, "transport error: boom")
	assert.Contains(t, got, "partial")
	assert.NotContains(t, got, "<md>partial")
}

func TestFormatChatContent_RendererFailureFallsBack(t *testing.T) {
	renderer := &MockMarkdownRenderer{RenderFunc: func(string, int) (string, error) {
		return "", errors.New("bad markdown")
	}}

	got := FormatChatContent([]models.Message{{Role: models.RoleAssistant, Content: "raw answer"}}, "", 80, renderer)

	assert.Contains(t, got, "raw answer")
}
