package ui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/hewenyu/OperationKernel/internal/ui/models"
	"github.com/hewenyu/OperationKernel/internal/ui/services"
	"github.com/hewenyu/OperationKernel/internal/ui/views"
	"github.com/hewenyu/OperationKernel/internal/workflow"
	"github.com/hewenyu/OperationKernel/internal/workflow/loop"
)

// BubbleTeaModel implements tea.Model
type BubbleTeaModel struct {
	state models.State
	ctx   context.Context

	agent    Agent
	jobs     JobLister
	events   <-chan workflow.Event
	renderer services.MarkdownRenderer
}

// View renders the UI
func (m BubbleTeaModel) View() string {
	return views.RenderRoot(m.state)
}

func newBubbleTeaModel(
	agent Agent,
	jobs JobLister,
	events <-chan workflow.Event,
	renderer services.MarkdownRenderer,
	spinnerFactory SpinnerFactory,
	opts Options,
) BubbleTeaModel {
	ti := textinput.New()
	ti.Placeholder = "Type a message or /help..."
	ti.Focus()

	return BubbleTeaModel{
		state: models.State{
			Input:        ti,
			Viewport:     viewport.New(80, 20),
			Spinner:      spinnerFactory(),
			StatusPhase:  models.PhaseReady,
			CurrentModel: opts.ModelName,
		},
		ctx:      context.Background(),
		agent:    agent,
		jobs:     jobs,
		events:   events,
		renderer: renderer,
	}
}

// Internal messages
type tickMsg time.Time
type eventMsg struct{ event workflow.Event }
type eventsClosedMsg struct{}
type turnFinishedMsg struct{ err error }

// Init initializes the model
func (m BubbleTeaModel) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.state.Spinner.Tick,
		tick(),
		listenForEvents(m.events),
	)
}

// Update handles messages
func (m BubbleTeaModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.state.Width = msg.Width
		m.state.Height = msg.Height
		m.state.Viewport.Width = msg.Width
		m.state.Viewport.Height = max(msg.Height-6, 1) // input box and status bar
		m.updateViewport()
		return m, nil

	case tickMsg:
		m.state.DotCount = (m.state.DotCount + 1) % 4
		return m, tick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.state.Spinner, cmd = m.state.Spinner.Update(msg)
		return m, cmd

	case eventMsg:
		m.handleEvent(msg.event)
		return m, listenForEvents(m.events)

	case eventsClosedMsg:
		return m, nil

	case turnFinishedMsg:
		m.finishTurn(msg.err)
		return m, nil
	}

	var cmd tea.Cmd
	m.state.Input, cmd = m.state.Input.Update(msg)
	return m, cmd
}

// handleKeyPress handles keyboard input
func (m BubbleTeaModel) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.state.ShowJobs {
		switch msg.String() {
		case "esc", "enter", "q":
			m.state.ShowJobs = false
		case "ctrl+c":
			return m, tea.Quit
		}
		return m, nil
	}

	switch msg.String() {
	case "ctrl+c":
		if m.state.Busy {
			m.agent.Cancel()
			return m, nil
		}
		return m, tea.Quit

	case "esc":
		if m.state.Busy {
			m.agent.Cancel()
		}
		return m, nil

	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.state.Viewport, cmd = m.state.Viewport.Update(msg)
		return m, cmd

	case "enter":
		input := strings.TrimSpace(m.state.Input.Value())
		if input == "" || m.state.Busy {
			return m, nil
		}
		m.state.Input.SetValue("")
		return m.handleCommand(input)
	}

	var cmd tea.Cmd
	m.state.Input, cmd = m.state.Input.Update(msg)
	return m, cmd
}

// handleCommand runs a slash command or submits input to the agent.
func (m BubbleTeaModel) handleCommand(input string) (tea.Model, tea.Cmd) {
	switch ParseCommand(input) {
	case CommandNone:
		m.appendMessage(models.RoleUser, input)
		agent := m.agent
		return m.startTurn(func(ctx context.Context) error {
			_, err := agent.Submit(ctx, input)
			return err
		})

	case CommandRetry:
		if !m.agent.CanRetry() {
			m.appendMessage(models.RoleNotice, "Nothing to retry.")
			return m, nil
		}
		m.appendMessage(models.RoleNotice, "Retrying the last turn.")
		agent := m.agent
		return m.startTurn(func(ctx context.Context) error {
			_, err := agent.Retry(ctx)
			return err
		})

	case CommandClear:
		if err := m.agent.Clear(); err != nil {
			m.appendMessage(models.RoleError, err.Error())
			return m, nil
		}
		m.state.Messages = nil
		m.state.Streaming = ""
		m.appendMessage(models.RoleNotice, "Conversation cleared.")

	case CommandJobs:
		m.state.Jobs = nil
		if m.jobs != nil {
			m.state.Jobs = m.jobs.List()
		}
		m.state.ShowJobs = true

	case CommandHelp:
		m.appendMessage(models.RoleAssistant, HelpText)

	case CommandUnknown:
		m.appendMessage(models.RoleError, "Unknown command "+strings.Fields(input)[0]+". Type /help.")
	}
	return m, nil
}

// startTurn runs fn off the update loop. Events arrive separately; the
// returned message only carries errors raised before the turn began.
func (m BubbleTeaModel) startTurn(fn func(ctx context.Context) error) (tea.Model, tea.Cmd) {
	m.state.Busy = true
	m.state.StatusPhase = models.PhaseThinking
	m.state.StatusMessage = ""
	ctx := m.ctx
	return m, func() tea.Msg {
		return turnFinishedMsg{err: fn(ctx)}
	}
}

// handleEvent folds one engine event into the transcript.
func (m *BubbleTeaModel) handleEvent(ev workflow.Event) {
	switch e := ev.(type) {
	case workflow.ThinkingEvent:
		m.state.StatusPhase = models.PhaseThinking
		m.state.StatusMessage = ""

	case workflow.TextEvent:
		m.state.Streaming += e.Text

	case workflow.ToolStartEvent:
		m.flushStreaming()
		desc := e.RequestDisplay
		if desc == "" {
			desc = e.ToolName
		}
		m.state.Messages = append(m.state.Messages, models.Message{Role: models.RoleTool, Content: "→ " + desc})
		m.state.StatusPhase = models.PhaseExecuting
		m.state.StatusMessage = desc

	case workflow.ToolEndEvent:
		m.state.Messages = append(m.state.Messages, models.Message{
			Role:    models.RoleTool,
			Content: services.RenderDisplay(e.ToolName, e.Display, e.IsError),
		})

	case workflow.NoticeEvent:
		m.flushStreaming()
		m.state.Messages = append(m.state.Messages, models.Message{Role: models.RoleNotice, Content: e.Text})

	case workflow.ErrorEvent:
		m.flushStreaming()
		m.state.Messages = append(m.state.Messages, models.Message{Role: models.RoleError, Content: describeError(e)})

	case workflow.DoneEvent:
		m.flushStreaming()
		m.state.Busy = false
		m.state.StatusMessage = ""
		if e.Message != nil {
			m.state.StatusPhase = models.PhaseDone
		} else {
			m.state.StatusPhase = models.PhaseReady
		}
	}
	m.updateViewport()
}

// finishTurn reports errors that kept a turn from starting. Anything else
// was already delivered as events.
func (m *BubbleTeaModel) finishTurn(err error) {
	var re *loop.RoundError
	if err == nil || errors.As(err, &re) {
		return
	}
	m.state.Busy = false
	m.state.StatusPhase = models.PhaseReady
	if !errors.Is(err, loop.ErrEmptyInput) {
		m.appendMessage(models.RoleError, err.Error())
	}
}

func (m *BubbleTeaModel) flushStreaming() {
	if strings.TrimSpace(m.state.Streaming) != "" {
		m.state.Messages = append(m.state.Messages, models.Message{Role: models.RoleAssistant, Content: m.state.Streaming})
	}
	m.state.Streaming = ""
}

func (m *BubbleTeaModel) appendMessage(role models.Role, content string) {
	m.state.Messages = append(m.state.Messages, models.Message{Role: role, Content: content})
	m.updateViewport()
}

// updateViewport updates the viewport content
func (m *BubbleTeaModel) updateViewport() {
	content := views.FormatChatContent(m.state.Messages, m.state.Streaming, m.state.Width-4, m.renderer)
	m.state.Viewport.SetContent(content)
	m.state.Viewport.GotoBottom()
}

// describeError turns a round failure into a transcript line.
func describeError(e workflow.ErrorEvent) string {
	if e.Class == string(loop.KindCancelled) {
		return "Cancelled."
	}
	msg := "Error"
	if e.Err != nil {
		msg = e.Err.Error()
	}
	return msg + "\nType /retry to try again."
}

func listenForEvents(ch <-chan workflow.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return eventsClosedMsg{}
		}
		return eventMsg{event: ev}
	}
}

func tick() tea.Cmd {
	return tea.Tick(300*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
