package views

import (
	"strings"

	"github.com/hewenyu/OperationKernel/internal/ui/models"
	"github.com/hewenyu/OperationKernel/internal/ui/services"
)

// RenderChat renders the message history
func RenderChat(s models.State) string {
	if len(s.Messages) == 0 && s.Streaming == "" {
		return "No messages yet. Type a message to start, or /help."
	}
	return s.Viewport.View()
}

// FormatChatContent formats the transcript for the viewport. Streaming
// text is shown raw until the turn flushes it through the renderer.
func FormatChatContent(messages []models.Message, streaming string, width int, renderer services.MarkdownRenderer) string {
	var lines []string
	for _, msg := range messages {
		switch msg.Role {
		case models.RoleUser:
			lines = append(lines, UserMessageStyle.Render("You: "+msg.Content))
		case models.RoleTool:
			lines = append(lines, formatTool(msg.Content))
		case models.RoleNotice:
			lines = append(lines, NoticeMessageStyle.Render("! "+msg.Content))
		case models.RoleError:
			lines = append(lines, ErrorMessageStyle.Render(msg.Content))
		default:
			rendered, err := services.RenderMarkdown(msg.Content, width, renderer)
			if err != nil {
				rendered = msg.Content
			}
			lines = append(lines, AssistantMessageStyle.Render(rendered))
		}
		lines = append(lines, "")
	}
	if streaming != "" {
		lines = append(lines, AssistantMessageStyle.Render(streaming))
	}
	return strings.Join(lines, "\n")
}

// formatTool colours diff lines inside a tool summary.
func formatTool(content string) string {
	lines := strings.Split(content, "\n")
	for i, l := range lines {
		switch {
		case i == 0:
			lines[i] = ToolMessageStyle.Render(l)
		case strings.HasPrefix(l, "+") && !strings.HasPrefix(l, "+++"):
			lines[i] = DiffAddedStyle.Render(l)
		case strings.HasPrefix(l, "-") && !strings.HasPrefix(l, "---"):
			lines[i] = DiffRemovedStyle.Render(l)
		default:
			lines[i] = ToolMessageStyle.Render(l)
		}
	}
	return strings.Join(lines, "\n")
}
