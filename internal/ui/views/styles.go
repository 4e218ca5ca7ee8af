package views

import "github.com/charmbracelet/lipgloss"

var (
	ColorPrimary = lipgloss.Color("39")
	ColorMuted   = lipgloss.Color("241")
	ColorSuccess = lipgloss.Color("42")
	ColorWarning = lipgloss.Color("214")
	ColorError   = lipgloss.Color("196")
)

var (
	UserMessageStyle      = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true)
	AssistantMessageStyle = lipgloss.NewStyle()
	ToolMessageStyle      = lipgloss.NewStyle().Foreground(ColorMuted)
	NoticeMessageStyle    = lipgloss.NewStyle().Foreground(ColorWarning)
	ErrorMessageStyle     = lipgloss.NewStyle().Foreground(ColorError)

	DiffAddedStyle   = lipgloss.NewStyle().Foreground(ColorSuccess)
	DiffRemovedStyle = lipgloss.NewStyle().Foreground(ColorError)

	InputStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorMuted).
			Padding(0, 1)

	StatusDefaultStyle   = lipgloss.NewStyle().Foreground(ColorMuted)
	StatusThinkingStyle  = lipgloss.NewStyle().Foreground(ColorPrimary)
	StatusExecutingStyle = lipgloss.NewStyle().Foreground(ColorPrimary)
	StatusDoneStyle      = lipgloss.NewStyle().Foreground(ColorSuccess)

	PopupBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorPrimary).
			Padding(1, 2)
)
