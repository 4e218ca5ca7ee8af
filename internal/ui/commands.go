package ui

import (
	"strings"
	"time"

	"github.com/hewenyu/OperationKernel/internal/tool/service/process"
	"github.com/hewenyu/OperationKernel/internal/ui/views"
)

// Command is a parsed slash command.
type Command int

const (
	CommandNone Command = iota
	CommandClear
	CommandRetry
	CommandJobs
	CommandHelp
	CommandUnknown
)

// HelpText lists the slash commands.
const HelpText = `Available commands:
- /clear - Forget the conversation
- /retry - Re-run the last failed turn
- /jobs - List background jobs
- /help - Show this help

Esc or Ctrl+C cancels a running turn.`

// ParseCommand classifies input. Anything not starting with "/" is
// CommandNone and should be sent to the model.
func ParseCommand(input string) Command {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, "/") {
		return CommandNone
	}
	fields := strings.Fields(input)
	switch fields[0] {
	case "/clear":
		return CommandClear
	case "/retry":
		return CommandRetry
	case "/jobs":
		return CommandJobs
	case "/help":
		return CommandHelp
	default:
		return CommandUnknown
	}
}

// FormatJobs renders the job table one job per line.
func FormatJobs(jobs []process.Summary, now time.Time) string {
	if len(jobs) == 0 {
		return "No background jobs."
	}
	var sb strings.Builder
	for i, j := range jobs {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(views.FormatJobLine(j, now))
	}
	return sb.String()
}
