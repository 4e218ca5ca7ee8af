package services

import (
	"fmt"
	"strings"

	"github.com/hewenyu/OperationKernel/internal/tool"
)

// maxPreviewLines bounds how much of a tool's output the transcript shows.
const maxPreviewLines = 12

// RenderDisplay summarises a finished tool call for the transcript.
func RenderDisplay(toolName string, display tool.ToolDisplay, isError bool) string {
	prefix := "✔ "
	if isError {
		prefix = "✘ "
	}

	switch d := display.(type) {
	case tool.DiffDisplay:
		header := fmt.Sprintf("%s%s %s (+%d -%d)", prefix, toolName, d.Path, d.AddedLines, d.RemovedLines)
		if d.Diff == "" {
			return header
		}
		return header + "\n" + clip(d.Diff)
	case tool.ShellDisplay:
		status := fmt.Sprintf("exit %d", d.ExitCode)
		if d.TimedOut {
			status = "timed out"
		}
		return fmt.Sprintf("%s$ %s (%s)", prefix, d.Command, status)
	case tool.JobDisplay:
		return fmt.Sprintf("%sjob %d %s: %s", prefix, d.JobID, d.Status, d.Command)
	case tool.StringDisplay:
		if d == "" {
			return prefix + toolName
		}
		return prefix + toolName + "\n" + clip(string(d))
	case nil:
		return prefix + toolName
	default:
		return fmt.Sprintf("%s%s", prefix, toolName)
	}
}

// clip keeps the first maxPreviewLines lines of s.
func clip(s string) string {
	s = strings.TrimRight(s, "\n")
	lines := strings.Split(s, "\n")
	if len(lines) <= maxPreviewLines {
		return s
	}
	more := len(lines) - maxPreviewLines
	return strings.Join(lines[:maxPreviewLines], "\n") + fmt.Sprintf("\n… %d more lines", more)
}
