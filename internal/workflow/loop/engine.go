// Package loop drives the conversation: it sends the history to the
// provider, streams the reply, runs requested tools and repeats until the
// model answers without tool calls.
package loop

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/hewenyu/OperationKernel/internal/provider"
	"github.com/hewenyu/OperationKernel/internal/stream"
	"github.com/hewenyu/OperationKernel/internal/tool/service/process"
	"github.com/hewenyu/OperationKernel/internal/tool/service/sandbox"
	"github.com/hewenyu/OperationKernel/internal/workflow"
	"go.uber.org/zap"
)

// State is the engine's position in a turn.
type State int

const (
	Idle State = iota
	Requesting
	Streaming
	ExecutingTools
	Cancelled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Requesting:
		return "requesting"
	case Streaming:
		return "streaming"
	case ExecutingTools:
		return "executing_tools"
	case Cancelled:
		return "cancelled"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// SkippedContent answers calls that never ran because their round stopped early.
const SkippedContent = "skipped: the round was stopped before this call ran"

// Options configures an Engine.
type Options struct {
	Model       string
	MaxTokens   int
	Temperature *float64
	System      string
	// MaxToolRounds caps consecutive tool rounds per turn.
	MaxToolRounds int
	// LoopWindow is how many recent calls loop detection looks at; 0 disables it.
	LoopWindow int
	Logger     *zap.Logger
}

// Engine is the conversation state machine. One turn runs at a time.
type Engine struct {
	client streamClient
	tools  toolDispatcher
	sb     *sandbox.Boundary
	events chan<- workflow.Event
	opts   Options
	logger *zap.Logger

	conv     *Conversation
	detector *loopDetector

	mu        sync.Mutex
	state     State
	cancel    context.CancelFunc
	retryFrom int // index of the failed turn's user message, or -1
}

// New creates an Engine. events receives progress for every turn and may
// be nil; the consumer must keep draining it while a turn runs.
func New(client streamClient, tools toolDispatcher, sb *sandbox.Boundary, events chan<- workflow.Event, opts Options) *Engine {
	if client == nil {
		panic("client is required")
	}
	if tools == nil {
		panic("tools is required")
	}
	if sb == nil {
		panic("sandbox is required")
	}
	if opts.MaxToolRounds <= 0 {
		opts.MaxToolRounds = 25
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		client:    client,
		tools:     tools,
		sb:        sb,
		events:    events,
		opts:      opts,
		logger:    logger,
		conv:      NewConversation(),
		detector:  newLoopDetector(opts.LoopWindow),
		retryFrom: -1,
	}
}

// Conversation exposes the history for read-only use.
func (e *Engine) Conversation() *Conversation {
	return e.conv
}

// State returns the current state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// CanRetry reports whether the last turn failed and can be re-run.
func (e *Engine) CanRetry() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state == Idle && e.retryFrom >= 0
}

// Submit appends text as a user message and runs the turn to completion.
// It returns the final assistant message, or a *RoundError.
func (e *Engine) Submit(ctx context.Context, text string) (*provider.Message, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}
	ctx, err := e.begin(ctx, false)
	if err != nil {
		return nil, err
	}
	base := e.conv.Len()
	e.conv.Append(provider.UserText(text))
	return e.run(ctx, base)
}

// Retry re-runs the last failed turn from its user message, dropping
// whatever that turn had added after it.
func (e *Engine) Retry(ctx context.Context) (*provider.Message, error) {
	ctx, err := e.begin(ctx, true)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	base := e.retryFrom
	e.mu.Unlock()
	e.conv.Truncate(base + 1)
	return e.run(ctx, base)
}

// Cancel aborts the running turn, if any. The turn's history reverts to
// just after its user message. Background jobs keep running.
func (e *Engine) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil && e.state != Idle {
		e.state = Cancelled
		e.cancel()
	}
}

// Clear empties the history. It fails while a turn runs.
func (e *Engine) Clear() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != Idle {
		return ErrBusy
	}
	e.conv.Clear()
	e.detector.reset()
	e.retryFrom = -1
	return nil
}

func (e *Engine) begin(ctx context.Context, retry bool) (context.Context, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != Idle {
		return nil, ErrBusy
	}
	if retry && e.retryFrom < 0 {
		return nil, ErrNothingToRetry
	}
	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.state = Requesting
	return ctx, nil
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	defer e.mu.Unlock()
	// A pending cancel wins over progress.
	if e.state == Cancelled {
		return
	}
	e.state = s
	e.logger.Debug("engine state", zap.String("state", s.String()))
}

func (e *Engine) emit(ev workflow.Event) {
	if e.events != nil {
		e.events <- ev
	}
}

// run executes rounds until a final answer or a failure. base is the index
// of the turn's user message.
func (e *Engine) run(ctx context.Context, base int) (msg *provider.Message, err error) {
	defer func() {
		e.mu.Lock()
		e.cancel()
		e.cancel = nil
		e.state = Idle
		if err != nil {
			e.retryFrom = base
		} else {
			e.retryFrom = -1
		}
		e.mu.Unlock()
		e.emit(workflow.DoneEvent{Message: msg})
	}()

	for round := 1; ; round++ {
		assistant, err := e.request(ctx, round)
		if err != nil {
			return nil, e.fail(ctx, base, err)
		}
		e.conv.Append(*assistant)

		calls := assistant.ToolCalls()
		if len(calls) == 0 {
			return assistant, nil
		}

		e.setState(ExecutingTools)
		if err := e.executeCalls(ctx, calls); err != nil {
			return nil, e.fail(ctx, base, err)
		}

		if round >= e.opts.MaxToolRounds {
			e.emit(workflow.NoticeEvent{
				Level: workflow.NoticeWarning,
				Text:  fmt.Sprintf("Turn limit exceeded: stopped after %d tool rounds.", round),
			})
			return nil, e.fail(ctx, base, &RoundError{Kind: KindResource, Err: ErrTurnLimit})
		}
	}
}

// fail classifies err, restores history on cancellation and reports it.
func (e *Engine) fail(ctx context.Context, base int, err error) error {
	if ctx.Err() != nil {
		err = &RoundError{Kind: KindCancelled, Err: context.Canceled}
	}
	var re *RoundError
	if !errors.As(err, &re) {
		re = &RoundError{Kind: KindTransport, Err: err}
	}
	if re.Kind == KindCancelled {
		e.conv.Truncate(base + 1)
	}
	e.logger.Warn("round failed", zap.String("kind", string(re.Kind)), zap.Error(re.Err))
	e.emit(workflow.ErrorEvent{Class: string(re.Kind), Err: re})
	return re
}

// request sends the history and streams one assistant message.
func (e *Engine) request(ctx context.Context, round int) (*provider.Message, error) {
	e.setState(Requesting)
	e.emit(workflow.ThinkingEvent{Round: round})

	req := &provider.Request{
		Model:       e.opts.Model,
		System:      e.opts.System,
		Messages:    e.conv.Messages(),
		Tools:       e.tools.Declarations(),
		MaxTokens:   e.opts.MaxTokens,
		Temperature: e.opts.Temperature,
	}
	s, err := e.client.Stream(ctx, req)
	if err != nil {
		return nil, &RoundError{Kind: KindTransport, Err: err}
	}
	defer s.Body.Close()
	// Closing the body unblocks a read stuck on the network.
	stop := context.AfterFunc(ctx, func() { _ = s.Body.Close() })
	defer stop()

	e.setState(Streaming)
	return e.consume(ctx, s.Decoder())
}

type pendingCall struct {
	name string
	args strings.Builder
}

// consume assembles the assistant message from the event sequence.
func (e *Engine) consume(ctx context.Context, dec *stream.Decoder) (*provider.Message, error) {
	var (
		text    strings.Builder
		calls   []provider.ToolCall
		pending = make(map[string]*pendingCall)
	)
	for {
		ev, err := dec.Next()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, io.EOF) {
			return nil, &RoundError{Kind: KindProtocol, Err: &ProtocolError{Message: stream.MsgIncomplete}}
		}
		if err != nil {
			return nil, &RoundError{Kind: KindTransport, Err: err}
		}

		switch ev := ev.(type) {
		case stream.TextDelta:
			text.WriteString(ev.Text)
			e.emit(workflow.TextEvent{Text: ev.Text})
		case stream.ToolCallStart:
			if _, dup := pending[ev.ID]; dup {
				return nil, protocolErr("tool call %s started twice", ev.ID)
			}
			pending[ev.ID] = &pendingCall{name: ev.Name}
		case stream.ToolCallArgsDelta:
			p, ok := pending[ev.ID]
			if !ok {
				return nil, protocolErr("arguments for unknown tool call %s", ev.ID)
			}
			p.args.WriteString(ev.Fragment)
		case stream.ToolCallEnd:
			p, ok := pending[ev.ID]
			if !ok {
				return nil, protocolErr("end of unknown tool call %s", ev.ID)
			}
			delete(pending, ev.ID)
			calls = append(calls, assembleCall(ev.ID, p))
		case stream.TurnEnd:
			if len(pending) > 0 {
				return nil, protocolErr("turn ended with %d unfinished tool calls", len(pending))
			}
			if ev.StopReason == stream.StopMaxTokens {
				e.emit(workflow.NoticeEvent{Level: workflow.NoticeWarning, Text: "The reply hit the output token limit and may be cut short."})
			}
			msg := &provider.Message{Role: provider.RoleAssistant}
			if text.Len() > 0 {
				msg.Content = append(msg.Content, provider.Text{Text: text.String()})
			}
			for _, c := range calls {
				msg.Content = append(msg.Content, c)
			}
			return msg, nil
		case stream.StreamError:
			return nil, &RoundError{Kind: KindProtocol, Err: &ProtocolError{Message: ev.Message}}
		}
	}
}

func protocolErr(format string, args ...any) error {
	return &RoundError{Kind: KindProtocol, Err: &ProtocolError{Message: fmt.Sprintf(format, args...)}}
}

// assembleCall parses the concatenated argument fragments once. Unparsable
// arguments leave Arguments nil; the dispatcher reports them to the model.
func assembleCall(id string, p *pendingCall) provider.ToolCall {
	raw := p.args.String()
	call := provider.ToolCall{ID: id, Name: p.name, RawArguments: raw}
	if strings.TrimSpace(raw) == "" {
		call.Arguments = map[string]any{}
		return call
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err == nil && args != nil {
		call.Arguments = args
	}
	return call
}

// executeCalls runs calls in order and appends one tool message per call.
// When it stops early every remaining call is answered as skipped, so the
// history never holds a call without a result.
func (e *Engine) executeCalls(ctx context.Context, calls []provider.ToolCall) error {
	for i, call := range calls {
		if n := e.detector.observe(call); n >= repeatThreshold {
			e.emit(workflow.NoticeEvent{
				Level: workflow.NoticeWarning,
				Text:  fmt.Sprintf("Possible loop: %s was called with identical arguments %d times recently.", call.Name, n),
			})
		}

		out, err := e.tools.Execute(ctx, call, e.sb, e.events)
		if err != nil {
			// Cancellation; the caller reverts the round.
			return err
		}
		e.conv.Append(provider.ToolMessage(out.Result))

		if out.Exhausted {
			e.skip(calls[i+1:])
			e.emit(workflow.NoticeEvent{
				Level: workflow.NoticeWarning,
				Text:  fmt.Sprintf("Background job table is full; stopped the round at %s.", call.Name),
			})
			return &RoundError{Kind: KindResource, Err: process.ErrTableFull}
		}
	}
	return nil
}

func (e *Engine) skip(calls []provider.ToolCall) {
	for _, c := range calls {
		e.conv.Append(provider.ToolMessage(provider.ToolResult{
			ToolCallID: c.ID,
			Name:       c.Name,
			Content:    SkippedContent,
			IsError:    true,
		}))
	}
}
