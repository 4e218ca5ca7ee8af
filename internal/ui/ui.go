package ui

import (
	"context"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/hewenyu/OperationKernel/internal/ui/services"
	"github.com/hewenyu/OperationKernel/internal/workflow"
)

// Options configures the TUI.
type Options struct {
	// ModelName is shown on the right of the status bar.
	ModelName string
}

// UI runs the interactive terminal interface with Bubble Tea.
type UI struct {
	model BubbleTeaModel
	opts  []tea.ProgramOption
}

// SpinnerFactory creates a new spinner
type SpinnerFactory func() spinner.Model

// NewUI creates a new Bubble Tea UI. events must be the channel the agent
// emits on; the UI is its only reader while it runs.
func NewUI(
	agent Agent,
	jobs JobLister,
	events <-chan workflow.Event,
	renderer services.MarkdownRenderer,
	spinnerFactory SpinnerFactory,
	opts Options,
) *UI {
	return &UI{
		model: newBubbleTeaModel(agent, jobs, events, renderer, spinnerFactory, opts),
		opts:  []tea.ProgramOption{tea.WithAltScreen()},
	}
}

// Start runs the program until the user quits or ctx is cancelled.
func (u *UI) Start(ctx context.Context) error {
	m := u.model
	m.ctx = ctx
	opts := append([]tea.ProgramOption{tea.WithContext(ctx)}, u.opts...)
	_, err := tea.NewProgram(m, opts...).Run()
	return err
}
