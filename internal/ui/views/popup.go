package views

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/hewenyu/OperationKernel/internal/ui/models"
)

// RenderJobsPopup renders the background job list opened by /jobs.
func RenderJobsPopup(s models.State, now time.Time) string {
	if !s.ShowJobs {
		return ""
	}

	var lines []string
	lines = append(lines, lipgloss.NewStyle().Bold(true).Render("Background jobs:"))
	lines = append(lines, "")

	if len(s.Jobs) == 0 {
		lines = append(lines, "  none")
	}
	for _, j := range s.Jobs {
		line := "  " + FormatJobLine(j, now)
		if j.Status.Done() {
			line = lipgloss.NewStyle().Faint(true).Render(line)
		}
		lines = append(lines, line)
	}

	lines = append(lines, "")
	lines = append(lines, lipgloss.NewStyle().Faint(true).Render("Esc: Close"))

	return PopupBoxStyle.Render(strings.Join(lines, "\n"))
}
