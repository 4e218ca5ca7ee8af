package ui

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hewenyu/OperationKernel/internal/tool"
	"github.com/hewenyu/OperationKernel/internal/tool/service/process"
	"github.com/hewenyu/OperationKernel/internal/workflow"
	"github.com/hewenyu/OperationKernel/internal/workflow/loop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runPlain(t *testing.T, agent *fakeAgent, jobs JobLister, input string) string {
	t.Helper()
	events := make(chan workflow.Event)
	agent.events = events
	var out bytes.Buffer
	p := NewPlain(agent, jobs, &out)

	err := p.Run(context.Background(), strings.NewReader(input), events)
	require.NoError(t, err)
	return out.String()
}

func TestPlain_StreamsReply(t *testing.T) {
	agent := &fakeAgent{turns: []fakeTurn{textTurn("Hello world")}}

	out := runPlain(t, agent, nil, "hi\n\n")

	assert.Equal(t, []string{"hi"}, agent.submitted)
	assert.Equal(t, "Hello world\n", out)
}

func TestPlain_ToolEvents(t *testing.T) {
	turn := fakeTurn{events: []workflow.Event{
		workflow.TextEvent{Text: "Checking"},
		workflow.ToolStartEvent{ToolName: "bash", RequestDisplay: "Running go test"},
		workflow.ToolEndEvent{ToolName: "bash", Display: tool.ShellDisplay{Command: "go test", ExitCode: 1}},
		workflow.NoticeEvent{Level: workflow.NoticeWarning, Text: "Repeated tool call"},
		workflow.TextEvent{Text: "Tests fail."},
		workflow.DoneEvent{},
	}}
	out := runPlain(t, &fakeAgent{turns: []fakeTurn{turn}}, nil, "run tests\n")

	assert.Equal(t, "Checking\n→ Running go test\n✔ $ go test (exit 1)\n! Repeated tool call\nTests fail.\n", out)
}

func TestPlain_ErrorThenRetry(t *testing.T) {
	agent := &fakeAgent{
		turns:    []fakeTurn{failedTurn(loop.KindTransport, errors.New("503")), textTurn("recovered")},
		canRetry: true,
	}

	out := runPlain(t, agent, nil, "hi\n/retry\n")

	assert.Contains(t, out, "transport error: 503\nType /retry to try again.\n")
	assert.Contains(t, out, "recovered\n")
	assert.Equal(t, 1, agent.retries)
}

func TestPlain_ErrorsBeforeTurnDoNotBlock(t *testing.T) {
	agent := &fakeAgent{turns: []fakeTurn{{err: loop.ErrBusy}}}

	out := runPlain(t, agent, nil, "hi\n/retry\n")

	assert.Contains(t, out, "Error: a turn is already in progress")
	assert.Contains(t, out, "Nothing to retry.")
}

func TestPlain_SlashCommands(t *testing.T) {
	agent := &fakeAgent{}
	jobs := fakeJobs{{JobID: 1, Command: "sleep 60", Status: process.Status{State: process.Killed}}}

	out := runPlain(t, agent, jobs, "/help\n/jobs\n/clear\n/nope\n")

	assert.Contains(t, out, HelpText)
	assert.Contains(t, out, "[1] Killed")
	assert.Contains(t, out, "Conversation cleared.")
	assert.Contains(t, out, "Unknown command /nope")
	assert.Equal(t, 1, agent.cleared)
	assert.Empty(t, agent.submitted)
}

func TestPlain_InterruptWhenIdle(t *testing.T) {
	agent := &fakeAgent{}
	p := NewPlain(agent, nil, &bytes.Buffer{})

	assert.False(t, p.Interrupt())
	assert.Zero(t, agent.cancelled.Load())

	p.busy.Store(true)
	assert.True(t, p.Interrupt())
	assert.EqualValues(t, 1, agent.cancelled.Load())
}

func TestPlain_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := NewPlain(&fakeAgent{}, nil, &bytes.Buffer{})

	err := p.Run(ctx, strings.NewReader("hi\n"), make(chan workflow.Event))
	assert.ErrorIs(t, err, context.Canceled)
}
