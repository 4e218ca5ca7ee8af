package views

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/hewenyu/OperationKernel/internal/tool/service/process"
	"github.com/hewenyu/OperationKernel/internal/ui/models"
)

// RenderRoot renders the complete UI layout
func RenderRoot(s models.State) string {
	if s.ShowJobs {
		return lipgloss.Place(
			s.Width,
			s.Height,
			lipgloss.Center,
			lipgloss.Center,
			RenderJobsPopup(s, time.Now()),
			lipgloss.WithWhitespaceChars(" "),
		)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		RenderChat(s),
		RenderInput(s),
		RenderStatus(s),
	)
}

// FormatJobLine renders one job summary.
func FormatJobLine(j process.Summary, now time.Time) string {
	age := now.Sub(j.SpawnedAt).Round(time.Second)
	return fmt.Sprintf("[%d] %-10s %6s  %s", j.JobID, j.Status.String(), age, j.Command)
}
