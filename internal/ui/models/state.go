package models

import (
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/hewenyu/OperationKernel/internal/tool/service/process"
)

// Role tags a transcript entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
	RoleNotice    Role = "notice"
	RoleError     Role = "error"
)

// Message is one entry of the on-screen transcript.
type Message struct {
	Role    Role
	Content string
}

// Status phases shown in the status bar.
const (
	PhaseReady     = "ready"
	PhaseThinking  = "thinking"
	PhaseExecuting = "executing"
	PhaseDone      = "done"
)

// State holds everything the views render.
type State struct {
	Width  int
	Height int

	Input    textinput.Model
	Viewport viewport.Model
	Spinner  spinner.Model

	Messages []Message
	// Streaming is assistant text received since the last flush.
	Streaming string

	Busy          bool
	StatusPhase   string
	StatusMessage string
	DotCount      int
	CurrentModel  string

	ShowJobs bool
	Jobs     []process.Summary
}
