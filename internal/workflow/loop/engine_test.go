package loop

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hewenyu/OperationKernel/internal/config"
	"github.com/hewenyu/OperationKernel/internal/provider"
	"github.com/hewenyu/OperationKernel/internal/provider/anthropic"
	"github.com/hewenyu/OperationKernel/internal/tool/service/process"
	"github.com/hewenyu/OperationKernel/internal/tool/service/sandbox"
	"github.com/hewenyu/OperationKernel/internal/workflow"
	"github.com/hewenyu/OperationKernel/internal/workflow/dispatch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// -- SSE fixtures in the Anthropic dialect --

func sse(event, data string) string {
	return fmt.Sprintf("event: %s\ndata: %s\n\n", event, data)
}

func textTurn(chunks ...string) string {
	var b strings.Builder
	b.WriteString(sse("message_start", `{"type":"message_start","message":{}}`))
	b.WriteString(sse("content_block_start", `{"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}`))
	for _, c := range chunks {
		data, _ := json.Marshal(map[string]any{
			"type": "content_block_delta", "index": 0,
			"delta": map[string]any{"type": "text_delta", "text": c},
		})
		b.WriteString(sse("content_block_delta", string(data)))
	}
	b.WriteString(sse("content_block_stop", `{"type":"content_block_stop","index":0}`))
	b.WriteString(sse("message_delta", `{"type":"message_delta","delta":{"stop_reason":"end_turn"}}`))
	b.WriteString(sse("message_stop", `{"type":"message_stop"}`))
	return b.String()
}

type fakeCall struct {
	id, name, args string
}

func toolTurn(calls ...fakeCall) string {
	var b strings.Builder
	b.WriteString(sse("message_start", `{"type":"message_start","message":{}}`))
	for i, c := range calls {
		b.WriteString(sse("content_block_start", fmt.Sprintf(
			`{"type":"content_block_start","index":%d,"content_block":{"type":"tool_use","id":%q,"name":%q,"input":{}}}`, i, c.id, c.name)))
		// Split the arguments to exercise fragment assembly.
		mid := len(c.args) / 2
		for _, frag := range []string{c.args[:mid], c.args[mid:]} {
			data, _ := json.Marshal(map[string]any{
				"type": "content_block_delta", "index": i,
				"delta": map[string]any{"type": "input_json_delta", "partial_json": frag},
			})
			b.WriteString(sse("content_block_delta", string(data)))
		}
		b.WriteString(sse("content_block_stop", fmt.Sprintf(`{"type":"content_block_stop","index":%d}`, i)))
	}
	b.WriteString(sse("message_delta", `{"type":"message_delta","delta":{"stop_reason":"tool_use"}}`))
	b.WriteString(sse("message_stop", `{"type":"message_stop"}`))
	return b.String()
}

// -- scripted provider --

type scriptedClient struct {
	mu       sync.Mutex
	requests []*provider.Request
	streamFn func(n int, req *provider.Request) (io.ReadCloser, error)
}

func (c *scriptedClient) Stream(ctx context.Context, req *provider.Request) (*provider.Stream, error) {
	c.mu.Lock()
	c.requests = append(c.requests, req)
	n := len(c.requests)
	c.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	body, err := c.streamFn(n, req)
	if err != nil {
		return nil, err
	}
	return &provider.Stream{Body: body, Mapper: anthropic.NewMapper()}, nil
}

func (c *scriptedClient) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.requests)
}

func bodies(turns ...string) func(int, *provider.Request) (io.ReadCloser, error) {
	return func(n int, _ *provider.Request) (io.ReadCloser, error) {
		if n > len(turns) {
			return nil, fmt.Errorf("unexpected request %d", n)
		}
		return io.NopCloser(strings.NewReader(turns[n-1])), nil
	}
}

// -- harness --

type harness struct {
	dir    string
	client *scriptedClient
	engine *Engine
	events chan workflow.Event
	jobs   *process.Manager
}

func newHarness(t *testing.T, client *scriptedClient, mutate func(*config.Config)) *harness {
	t.Helper()
	dir := t.TempDir()
	sb, err := sandbox.New(dir)
	require.NoError(t, err)

	cfg := config.DefaultConfig()
	cfg.Jobs.KillGraceMs = 200
	if mutate != nil {
		mutate(cfg)
	}
	jobs := dispatch.NewJobs(cfg, nil)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = jobs.Shutdown(ctx)
	})

	events := make(chan workflow.Event, 1024)
	d := dispatch.New(dispatch.NewTools(cfg, jobs, nil), cfg.Tools.MaxToolOutputChars, nil)
	engine := New(client, d, sb, events, Options{
		Model:         "test-model",
		System:        "sys",
		MaxToolRounds: cfg.Agent.MaxToolRounds,
		LoopWindow:    cfg.Agent.LoopDetectionWindow,
	})
	return &harness{dir: dir, client: client, engine: engine, events: events, jobs: jobs}
}

// drain returns every event buffered so far.
func (h *harness) drain() []workflow.Event {
	var out []workflow.Event
	for {
		select {
		case ev := <-h.events:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func ofType[T workflow.Event](events []workflow.Event) []T {
	var out []T
	for _, ev := range events {
		if v, ok := ev.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

// -- scenarios --

func TestScenario_BasicChat(t *testing.T) {
	client := &scriptedClient{streamFn: bodies(textTurn("Hel", "", "lo!"))}
	h := newHarness(t, client, nil)

	msg, err := h.engine.Submit(context.Background(), "Hi")
	require.NoError(t, err)
	assert.Equal(t, "Hello!", msg.Text())
	assert.Equal(t, Idle, h.engine.State())

	msgs := h.engine.Conversation().Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, provider.RoleUser, msgs[0].Role)
	assert.Equal(t, provider.RoleAssistant, msgs[1].Role)

	events := h.drain()
	assert.Equal(t, []workflow.TextEvent{{Text: "Hel"}, {Text: ""}, {Text: "lo!"}}, ofType[workflow.TextEvent](events))
	done, ok := events[len(events)-1].(workflow.DoneEvent)
	require.True(t, ok)
	assert.Equal(t, msg, done.Message)

	req := client.requests[0]
	assert.Equal(t, "test-model", req.Model)
	assert.Equal(t, "sys", req.System)
	assert.Len(t, req.Tools, 9)
}

func TestScenario_SingleGlobRound(t *testing.T) {
	client := &scriptedClient{streamFn: bodies(
		toolTurn(fakeCall{"toolu_1", "glob", `{"pattern":"*.go"}`}),
		textTurn("Found main.go."),
	)}
	h := newHarness(t, client, nil)
	require.NoError(t, os.WriteFile(filepath.Join(h.dir, "main.go"), []byte("package main\n"), 0o644))

	msg, err := h.engine.Submit(context.Background(), "list go files")
	require.NoError(t, err)
	assert.Equal(t, "Found main.go.", msg.Text())

	msgs := h.engine.Conversation().Messages()
	require.Len(t, msgs, 4)
	assert.Equal(t, provider.RoleUser, msgs[0].Role)
	calls := msgs[1].ToolCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, map[string]any{"pattern": "*.go"}, calls[0].Arguments)
	results := msgs[2].ToolResults()
	require.Len(t, results, 1)
	assert.Equal(t, "toolu_1", results[0].ToolCallID)
	assert.False(t, results[0].IsError)
	assert.Contains(t, results[0].Content, "main.go")
	assert.Equal(t, provider.RoleAssistant, msgs[3].Role)

	// The second request carries the tool result.
	require.Equal(t, 2, client.calls())
	assert.Len(t, client.requests[1].Messages, 3)

	events := h.drain()
	require.Len(t, ofType[workflow.ToolStartEvent](events), 1)
	require.Len(t, ofType[workflow.ToolEndEvent](events), 1)
}

func TestScenario_BackgroundJob(t *testing.T) {
	client := &scriptedClient{streamFn: bodies(
		toolTurn(fakeCall{"t1", "bash", `{"command":"sleep 5 && echo done","background":true}`}),
		toolTurn(fakeCall{"t2", "bash_output", `{"job_id":1}`}),
		textTurn("It is still running."),
	)}
	h := newHarness(t, client, nil)

	start := time.Now()
	_, err := h.engine.Submit(context.Background(), "run it in the background")
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 3*time.Second, "spawn must not wait for the job")

	msgs := h.engine.Conversation().Messages()
	require.Len(t, msgs, 6)
	assert.Contains(t, msgs[2].ToolResults()[0].Content, "job_id=1")
	assert.Contains(t, msgs[4].ToolResults()[0].Content, "Status: Running")

	snap, err := h.jobs.Peek(1)
	require.NoError(t, err)
	assert.False(t, snap.Status.Done(), "a finished turn leaves jobs running")
}

func TestScenario_CancelAfterThreeDeltas(t *testing.T) {
	pr, pw := io.Pipe()
	client := &scriptedClient{streamFn: func(int, *provider.Request) (io.ReadCloser, error) {
		go func() {
			_, _ = io.WriteString(pw, sse("message_start", `{"type":"message_start","message":{}}`))
			for _, c := range []string{"one ", "two ", "three "} {
				if _, err := io.WriteString(pw, sse("content_block_delta",
					fmt.Sprintf(`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":%q}}`, c))); err != nil {
					return
				}
			}
			// The stream stays open until the engine closes it.
		}()
		return pr, nil
	}}
	h := newHarness(t, client, nil)
	h.engine.Conversation().Append(provider.UserText("earlier"), provider.Message{
		Role: provider.RoleAssistant, Content: []provider.Block{provider.Text{Text: "earlier answer"}},
	})

	type result struct {
		msg *provider.Message
		err error
	}
	resCh := make(chan result, 1)
	go func() {
		msg, err := h.engine.Submit(context.Background(), "count slowly")
		resCh <- result{msg, err}
	}()

	deltas := 0
	for deltas < 3 {
		select {
		case ev := <-h.events:
			if _, ok := ev.(workflow.TextEvent); ok {
				deltas++
			}
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for deltas")
		}
	}
	h.engine.Cancel()

	var res result
	select {
	case res = <-resCh:
	case <-time.After(5 * time.Second):
		t.Fatal("cancel did not stop the turn")
	}
	_ = pw.Close()

	assert.Nil(t, res.msg)
	assert.Equal(t, KindCancelled, KindOf(res.err))
	assert.ErrorIs(t, res.err, context.Canceled)
	assert.Equal(t, Idle, h.engine.State())

	msgs := h.engine.Conversation().Messages()
	require.Len(t, msgs, 3, "partial assistant message is discarded, user message kept")
	assert.Equal(t, "count slowly", msgs[2].Text())
}

func TestScenario_CancelDuringToolExecution(t *testing.T) {
	client := &scriptedClient{streamFn: bodies(
		toolTurn(
			fakeCall{"bg", "bash", `{"command":"sleep 30","background":true}`},
			fakeCall{"w", "write", `{"path":"note.txt","content":"hi"}`},
			fakeCall{"fg", "bash", `{"command":"sleep 30"}`},
		),
	)}
	h := newHarness(t, client, nil)

	done := make(chan error, 1)
	go func() {
		_, err := h.engine.Submit(context.Background(), "do three things")
		done <- err
	}()

	// Cancel once the synchronous command is running.
	timeout := time.After(5 * time.Second)
	for started := false; !started; {
		select {
		case ev := <-h.events:
			if s, ok := ev.(workflow.ToolStartEvent); ok && s.CallID == "fg" {
				started = true
			}
		case <-timeout:
			t.Fatal("timed out waiting for the synchronous command")
		}
	}
	assert.Equal(t, ExecutingTools, h.engine.State())
	h.engine.Cancel()

	select {
	case err := <-done:
		assert.Equal(t, KindCancelled, KindOf(err))
	case <-time.After(5 * time.Second):
		t.Fatal("cancel did not stop the running tool")
	}
	assert.Equal(t, Idle, h.engine.State())
	assert.Equal(t, 1, h.engine.Conversation().Len(), "history reverts to the user message")

	snap, err := h.jobs.Peek(1)
	require.NoError(t, err)
	assert.Equal(t, process.Running, snap.Status.State, "background jobs outlive a cancelled turn")
}

func TestEngine_ToolCallResultPairing(t *testing.T) {
	client := &scriptedClient{streamFn: bodies(
		toolTurn(
			fakeCall{"a", "write", `{"path":"x.txt","content":"hi"}`},
			fakeCall{"b", "read", `{"path":"x.txt"}`},
			fakeCall{"c", "no_such_tool", `{}`},
		),
		textTurn("ok"),
	)}
	h := newHarness(t, client, nil)

	_, err := h.engine.Submit(context.Background(), "go")
	require.NoError(t, err)

	msgs := h.engine.Conversation().Messages()
	calls := msgs[1].ToolCalls()
	require.Len(t, calls, 3)
	for i, c := range calls {
		res := msgs[2+i].ToolResults()
		require.Len(t, res, 1)
		assert.Equal(t, c.ID, res[0].ToolCallID, "results follow emission order")
	}
	assert.Equal(t, "hi", msgs[3].ToolResults()[0].Content)
	assert.True(t, msgs[4].ToolResults()[0].IsError)
}

func TestEngine_TurnLimit(t *testing.T) {
	n := 0
	client := &scriptedClient{streamFn: func(int, *provider.Request) (io.ReadCloser, error) {
		n++
		return io.NopCloser(strings.NewReader(toolTurn(fakeCall{fmt.Sprintf("t%d", n), "glob", fmt.Sprintf(`{"pattern":"*.%d"}`, n)}))), nil
	}}
	h := newHarness(t, client, func(c *config.Config) { c.Agent.MaxToolRounds = 2 })

	_, err := h.engine.Submit(context.Background(), "loop forever")
	assert.ErrorIs(t, err, ErrTurnLimit)
	assert.Equal(t, KindResource, KindOf(err))
	assert.Equal(t, 2, client.calls())

	// Both rounds are complete, so every call has its result.
	assert.Len(t, h.engine.Conversation().Messages(), 5)

	notices := ofType[workflow.NoticeEvent](h.drain())
	require.NotEmpty(t, notices)
	assert.Contains(t, notices[len(notices)-1].Text, "Turn limit exceeded")
}

func TestEngine_LoopDetection(t *testing.T) {
	same := toolTurn(fakeCall{"x", "glob", `{"pattern":"*.md"}`})
	client := &scriptedClient{streamFn: bodies(same, same, same, textTurn("giving up"))}
	h := newHarness(t, client, nil)

	_, err := h.engine.Submit(context.Background(), "find docs")
	require.NoError(t, err)

	notices := ofType[workflow.NoticeEvent](h.drain())
	require.Len(t, notices, 1)
	assert.Contains(t, notices[0].Text, "Possible loop: glob")
}

func TestEngine_TransportErrorThenRetry(t *testing.T) {
	fail := true
	client := &scriptedClient{streamFn: func(int, *provider.Request) (io.ReadCloser, error) {
		if fail {
			fail = false
			return nil, provider.FromTransport(errors.New("connection refused"))
		}
		return io.NopCloser(strings.NewReader(textTurn("back"))), nil
	}}
	h := newHarness(t, client, nil)

	_, err := h.engine.Submit(context.Background(), "hello")
	require.Error(t, err)
	assert.Equal(t, KindTransport, KindOf(err))
	assert.ErrorIs(t, err, provider.ErrNetwork)
	assert.Len(t, h.engine.Conversation().Messages(), 1, "user message kept")
	assert.True(t, h.engine.CanRetry())

	errs := ofType[workflow.ErrorEvent](h.drain())
	require.Len(t, errs, 1)
	assert.Equal(t, "transport", errs[0].Class)

	msg, err := h.engine.Retry(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "back", msg.Text())
	assert.Len(t, h.engine.Conversation().Messages(), 2)
	assert.False(t, h.engine.CanRetry())

	_, err = h.engine.Retry(context.Background())
	assert.ErrorIs(t, err, ErrNothingToRetry)
}

func TestEngine_ProtocolErrorEndsTurnOnly(t *testing.T) {
	client := &scriptedClient{streamFn: bodies(
		sse("content_block_delta", `{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"par"}}`)+
			sse("error", `{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`),
		textTurn("fine now"),
	)}
	h := newHarness(t, client, nil)

	_, err := h.engine.Submit(context.Background(), "first")
	assert.Equal(t, KindProtocol, KindOf(err))
	assert.Contains(t, err.Error(), "overloaded_error: Overloaded")
	assert.Len(t, h.engine.Conversation().Messages(), 1)

	msg, err := h.engine.Submit(context.Background(), "second")
	require.NoError(t, err)
	assert.Equal(t, "fine now", msg.Text())
	// Two user messages in a row fold into one wire turn at the provider.
	assert.Len(t, h.engine.Conversation().Messages(), 3)
}

func TestEngine_JobTableFullSkipsRest(t *testing.T) {
	client := &scriptedClient{streamFn: bodies(toolTurn(
		fakeCall{"a", "bash", `{"command":"sleep 5","background":true}`},
		fakeCall{"b", "bash", `{"command":"sleep 5","background":true}`},
		fakeCall{"c", "read", `{"path":"x"}`},
	))}
	h := newHarness(t, client, func(c *config.Config) { c.Jobs.MaxJobs = 1 })

	_, err := h.engine.Submit(context.Background(), "spawn two")
	assert.Equal(t, KindResource, KindOf(err))
	assert.ErrorIs(t, err, process.ErrTableFull)

	msgs := h.engine.Conversation().Messages()
	require.Len(t, msgs, 5)
	assert.False(t, msgs[2].ToolResults()[0].IsError)
	assert.True(t, msgs[3].ToolResults()[0].IsError)
	skipped := msgs[4].ToolResults()[0]
	assert.Equal(t, "c", skipped.ToolCallID)
	assert.Equal(t, SkippedContent, skipped.Content)
}

func TestEngine_InvalidArgumentsReachModel(t *testing.T) {
	client := &scriptedClient{streamFn: bodies(
		toolTurn(fakeCall{"a", "glob", `{"pattern":`}),
		textTurn("sorry"),
	)}
	h := newHarness(t, client, nil)

	_, err := h.engine.Submit(context.Background(), "go")
	require.NoError(t, err)
	res := h.engine.Conversation().Messages()[2].ToolResults()[0]
	assert.True(t, res.IsError)
	assert.Contains(t, res.Content, "invalid arguments")
}

func TestEngine_BusyAndClear(t *testing.T) {
	pr, pw := io.Pipe()
	client := &scriptedClient{streamFn: func(int, *provider.Request) (io.ReadCloser, error) { return pr, nil }}
	h := newHarness(t, client, nil)

	done := make(chan error, 1)
	go func() {
		_, err := h.engine.Submit(context.Background(), "wait")
		done <- err
	}()
	require.Eventually(t, func() bool { return h.engine.State() == Streaming }, 5*time.Second, 10*time.Millisecond)

	_, err := h.engine.Submit(context.Background(), "again")
	assert.ErrorIs(t, err, ErrBusy)
	assert.ErrorIs(t, h.engine.Clear(), ErrBusy)

	h.engine.Cancel()
	assert.Equal(t, KindCancelled, KindOf(<-done))
	_ = pw.Close()

	require.NoError(t, h.engine.Clear())
	assert.Zero(t, h.engine.Conversation().Len())
}

func TestEngine_EmptyInput(t *testing.T) {
	h := newHarness(t, &scriptedClient{streamFn: bodies()}, nil)
	_, err := h.engine.Submit(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrEmptyInput)
}
