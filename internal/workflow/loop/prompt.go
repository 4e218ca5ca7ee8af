package loop

import (
	"fmt"
	"strings"
	"time"

	"github.com/hewenyu/OperationKernel/internal/tool"
)

// PromptInfo describes the environment the agent runs in.
type PromptInfo struct {
	WorkingDir string
	Platform   string
	Date       time.Time
	ExtraRoots []string
	Extra      string
}

// SystemPrompt renders the system prompt sent with every request.
func SystemPrompt(info PromptInfo) string {
	var b strings.Builder
	b.WriteString("You are ok, an interactive coding agent working in the user's project.\n")
	b.WriteString("Use the tools to inspect and change files and to run commands. ")
	b.WriteString("Read files before editing them, keep edits minimal, and answer concisely.\n\n")

	b.WriteString("Environment:\n")
	fmt.Fprintf(&b, "- Working directory: %s\n", info.WorkingDir)
	if len(info.ExtraRoots) > 0 {
		fmt.Fprintf(&b, "- Also accessible: %s\n", strings.Join(info.ExtraRoots, ", "))
	}
	fmt.Fprintf(&b, "- Platform: %s\n", info.Platform)
	fmt.Fprintf(&b, "- Date: %s\n\n", info.Date.Format("2006-01-02"))

	b.WriteString("Tool notes:\n")
	fmt.Fprintf(&b, "- Paths outside the directories above are rejected.\n")
	fmt.Fprintf(&b, "- %s with background=true returns a job id at once; poll it with %s and stop it with %s.\n",
		tool.Bash, tool.BashOutput, tool.KillShell)
	fmt.Fprintf(&b, "- A non-zero exit code is reported as output, not as a failure.\n")

	if extra := strings.TrimSpace(info.Extra); extra != "" {
		b.WriteString("\n")
		b.WriteString(extra)
		b.WriteString("\n")
	}
	return b.String()
}
