package ui

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hewenyu/OperationKernel/internal/ui/services"
	"github.com/hewenyu/OperationKernel/internal/workflow"
	"github.com/hewenyu/OperationKernel/internal/workflow/loop"
)

// Plain is the line-oriented interface for pipes and dumb terminals. It
// reads one message or slash command per line and streams the reply as
// plain text.
type Plain struct {
	agent Agent
	jobs  JobLister

	mu      sync.Mutex
	out     io.Writer
	lineEnd bool

	busy atomic.Bool
	now  func() time.Time
}

// NewPlain creates a plain REPL writing to out.
func NewPlain(agent Agent, jobs JobLister, out io.Writer) *Plain {
	return &Plain{agent: agent, jobs: jobs, out: out, lineEnd: true, now: time.Now}
}

// Interrupt cancels the running turn. It reports false when no turn was
// running, so the caller can treat the interrupt as a request to quit.
func (p *Plain) Interrupt() bool {
	if !p.busy.Load() {
		return false
	}
	p.agent.Cancel()
	return true
}

// Run reads lines from in until EOF or ctx is cancelled. events must be
// the channel the agent emits on.
func (p *Plain) Run(ctx context.Context, in io.Reader, events <-chan workflow.Event) error {
	done := make(chan struct{}, 1)
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		p.printEvents(events, done, stop)
	}()
	defer func() {
		close(stop)
		wg.Wait()
	}()

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := p.handleLine(ctx, line, done); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	return nil
}

func (p *Plain) handleLine(ctx context.Context, line string, done <-chan struct{}) error {
	switch ParseCommand(line) {
	case CommandNone:
		return p.turn(ctx, done, func(ctx context.Context) error {
			_, err := p.agent.Submit(ctx, line)
			return err
		})
	case CommandRetry:
		if !p.agent.CanRetry() {
			p.println("Nothing to retry.")
			return nil
		}
		return p.turn(ctx, done, func(ctx context.Context) error {
			_, err := p.agent.Retry(ctx)
			return err
		})
	case CommandClear:
		if err := p.agent.Clear(); err != nil {
			p.println("Error: " + err.Error())
			return nil
		}
		p.println("Conversation cleared.")
	case CommandJobs:
		if p.jobs == nil {
			p.println(FormatJobs(nil, p.now()))
			return nil
		}
		p.println(FormatJobs(p.jobs.List(), p.now()))
	case CommandHelp:
		p.println(HelpText)
	case CommandUnknown:
		p.println("Unknown command " + strings.Fields(line)[0] + ". Type /help.")
	}
	return nil
}

// turn runs fn and waits until its events have been printed.
func (p *Plain) turn(ctx context.Context, done <-chan struct{}, fn func(ctx context.Context) error) error {
	p.busy.Store(true)
	err := fn(ctx)
	p.busy.Store(false)

	var re *loop.RoundError
	if err != nil && !errors.As(err, &re) {
		if !errors.Is(err, loop.ErrEmptyInput) {
			p.println("Error: " + err.Error())
		}
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Plain) printEvents(events <-chan workflow.Event, done chan<- struct{}, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			p.printEvent(ev)
			if _, isDone := ev.(workflow.DoneEvent); isDone {
				select {
				case done <- struct{}{}:
				default:
				}
			}
		}
	}
}

func (p *Plain) printEvent(ev workflow.Event) {
	switch e := ev.(type) {
	case workflow.TextEvent:
		p.write(e.Text)
	case workflow.ToolStartEvent:
		desc := e.RequestDisplay
		if desc == "" {
			desc = e.ToolName
		}
		p.println("→ " + desc)
	case workflow.ToolEndEvent:
		p.println(services.RenderDisplay(e.ToolName, e.Display, e.IsError))
	case workflow.NoticeEvent:
		p.println("! " + e.Text)
	case workflow.ErrorEvent:
		p.println(describeError(e))
	case workflow.DoneEvent:
		p.mu.Lock()
		if !p.lineEnd {
			fmt.Fprintln(p.out)
			p.lineEnd = true
		}
		p.mu.Unlock()
	}
}

func (p *Plain) write(s string) {
	if s == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	io.WriteString(p.out, s)
	p.lineEnd = strings.HasSuffix(s, "\n")
}

// println writes s on a line of its own.
func (p *Plain) println(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.lineEnd {
		fmt.Fprintln(p.out)
	}
	fmt.Fprintln(p.out, s)
	p.lineEnd = true
}
