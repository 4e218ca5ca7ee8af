package ui

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/hewenyu/OperationKernel/internal/provider"
	"github.com/hewenyu/OperationKernel/internal/tool/service/process"
	"github.com/hewenyu/OperationKernel/internal/workflow"
	"github.com/hewenyu/OperationKernel/internal/workflow/loop"
	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// Mock dependencies
type MockMarkdownRenderer struct {
	RenderFunc func(string, int) (string, error)
}

func (m *MockMarkdownRenderer) Render(content string, width int) (string, error) {
	if m.RenderFunc != nil {
		return m.RenderFunc(content, width)
	}
	return content, nil
}

func mockSpinnerFactory() spinner.Model {
	return spinner.New()
}

// fakeAgent replays scripted events on events and returns the scripted error.
type fakeAgent struct {
	events chan<- workflow.Event

	mu        sync.Mutex
	submitted []string
	retries   int
	cleared   int
	canRetry  bool
	clearErr  error
	turns     []fakeTurn
	cancelled atomic.Int32
}

type fakeTurn struct {
	events []workflow.Event
	err    error
}

func (a *fakeAgent) next() fakeTurn {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.turns) == 0 {
		return fakeTurn{}
	}
	t := a.turns[0]
	a.turns = a.turns[1:]
	return t
}

func (a *fakeAgent) play(t fakeTurn) (*provider.Message, error) {
	if a.events != nil {
		for _, ev := range t.events {
			a.events <- ev
		}
	}
	return nil, t.err
}

func (a *fakeAgent) Submit(ctx context.Context, text string) (*provider.Message, error) {
	a.mu.Lock()
	a.submitted = append(a.submitted, text)
	a.mu.Unlock()
	return a.play(a.next())
}

func (a *fakeAgent) Retry(ctx context.Context) (*provider.Message, error) {
	a.mu.Lock()
	a.retries++
	a.mu.Unlock()
	return a.play(a.next())
}

func (a *fakeAgent) Cancel() { a.cancelled.Add(1) }

func (a *fakeAgent) Clear() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.clearErr != nil {
		return a.clearErr
	}
	a.cleared++
	return nil
}

func (a *fakeAgent) CanRetry() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.canRetry
}

type fakeJobs []process.Summary

func (f fakeJobs) List() []process.Summary { return f }

func textTurn(text string) fakeTurn {
	msg := provider.Message{Role: provider.RoleAssistant, Content: []provider.Block{provider.Text{Text: text}}}
	return fakeTurn{events: []workflow.Event{
		workflow.ThinkingEvent{Round: 1},
		workflow.TextEvent{Text: text},
		workflow.DoneEvent{Message: &msg},
	}}
}

func failedTurn(kind loop.Kind, err error) fakeTurn {
	re := &loop.RoundError{Kind: kind, Err: err}
	return fakeTurn{
		events: []workflow.Event{
			workflow.ThinkingEvent{Round: 1},
			workflow.ErrorEvent{Class: string(kind), Err: re},
			workflow.DoneEvent{},
		},
		err: re,
	}
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		input string
		want  Command
	}{
		{"hello", CommandNone},
		{"  /clear ", CommandClear},
		{"/retry", CommandRetry},
		{"/jobs now", CommandJobs},
		{"/help", CommandHelp},
		{"/models", CommandUnknown},
		{"path/to/file", CommandNone},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseCommand(tt.input))
		})
	}
}

func TestFormatJobs(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, "No background jobs.", FormatJobs(nil, now))

	got := FormatJobs([]process.Summary{
		{JobID: 1, Command: "npm run dev", SpawnedAt: now.Add(-90 * time.Second), Status: process.Status{State: process.Running}},
		{JobID: 2, Command: "make", SpawnedAt: now.Add(-5 * time.Second), Status: process.Status{State: process.Exited, ExitCode: 2}},
	}, now)

	assert.Contains(t, got, "[1] Running")
	assert.Contains(t, got, "1m30s")
	assert.Contains(t, got, "npm run dev")
	assert.Contains(t, got, "[2] Exited(2)")
}
