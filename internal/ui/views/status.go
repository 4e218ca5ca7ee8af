package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/hewenyu/OperationKernel/internal/ui/models"
)

// RenderStatus renders the status bar
func RenderStatus(s models.State) string {
	var icon string
	var style lipgloss.Style

	switch s.StatusPhase {
	case models.PhaseExecuting:
		icon = s.Spinner.View()
		style = StatusExecutingStyle
	case models.PhaseDone:
		icon = "✔"
		style = StatusDoneStyle
	case models.PhaseThinking:
		icon = s.Spinner.View()
		style = StatusThinkingStyle
		dots := strings.Repeat(".", s.DotCount)
		return withModel(style.Render(fmt.Sprintf("%s Generating%s", icon, dots)), s)
	default:
		style = StatusDefaultStyle
	}

	status := "Ready"
	if s.StatusMessage != "" {
		status = fmt.Sprintf("%s %s", icon, s.StatusMessage)
	} else if s.StatusPhase != models.PhaseReady && s.StatusPhase != "" {
		status = icon
	}
	return withModel(style.Render(status), s)
}

func withModel(left string, s models.State) string {
	if s.CurrentModel == "" {
		return left
	}
	right := lipgloss.NewStyle().Foreground(ColorMuted).Render(s.CurrentModel)
	return fmt.Sprintf("%s  %s", left, right)
}
