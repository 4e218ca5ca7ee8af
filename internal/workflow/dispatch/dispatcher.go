// Package dispatch executes model tool calls against the fixed tool
// catalogue and turns every outcome into a tool result.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/hewenyu/OperationKernel/internal/provider"
	"github.com/hewenyu/OperationKernel/internal/tool"
	"github.com/hewenyu/OperationKernel/internal/tool/file"
	"github.com/hewenyu/OperationKernel/internal/tool/notebook"
	"github.com/hewenyu/OperationKernel/internal/tool/search"
	"github.com/hewenyu/OperationKernel/internal/tool/service/process"
	"github.com/hewenyu/OperationKernel/internal/tool/service/sandbox"
	"github.com/hewenyu/OperationKernel/internal/tool/shell"
	"github.com/hewenyu/OperationKernel/internal/workflow"
	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
)

// Tools is the full catalogue. Every field is required.
type Tools struct {
	Read         readTool
	Write        writeTool
	Edit         editTool
	Glob         globTool
	Grep         grepTool
	NotebookEdit notebookTool
	Bash         bashTool
	BashOutput   outputTool
	KillShell    killTool
}

// Outcome is the result of one dispatched call.
type Outcome struct {
	Result  provider.ToolResult
	Display tool.ToolDisplay
	// Exhausted is set when the call hit a resource limit (the job table)
	// and the round should stop.
	Exhausted bool
}

// Dispatcher routes tool calls over the closed tool enum.
type Dispatcher struct {
	tools    Tools
	maxChars int
	logger   *zap.Logger
}

// New creates a Dispatcher. maxChars bounds the content of each result;
// zero disables truncation.
func New(tools Tools, maxChars int, logger *zap.Logger) *Dispatcher {
	if tools.Read == nil || tools.Write == nil || tools.Edit == nil ||
		tools.Glob == nil || tools.Grep == nil || tools.NotebookEdit == nil ||
		tools.Bash == nil || tools.BashOutput == nil || tools.KillShell == nil {
		panic("every tool is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{tools: tools, maxChars: maxChars, logger: logger}
}

func (d *Dispatcher) lookup(name tool.Name) declarer {
	switch name {
	case tool.Read:
		return d.tools.Read
	case tool.Write:
		return d.tools.Write
	case tool.Edit:
		return d.tools.Edit
	case tool.Glob:
		return d.tools.Glob
	case tool.Grep:
		return d.tools.Grep
	case tool.NotebookEdit:
		return d.tools.NotebookEdit
	case tool.Bash:
		return d.tools.Bash
	case tool.BashOutput:
		return d.tools.BashOutput
	case tool.KillShell:
		return d.tools.KillShell
	}
	return nil
}

// Declarations returns the tool schemas in catalogue order.
func (d *Dispatcher) Declarations() []tool.Declaration {
	decls := make([]tool.Declaration, 0, len(tool.Catalogue))
	for _, name := range tool.Catalogue {
		decls = append(decls, d.lookup(name).Declaration())
	}
	return decls
}

// Execute runs one call inside sb and reports progress on events, which
// may be nil. Every failure of the call itself becomes an is_error result;
// the returned error is non-nil only when ctx was cancelled.
func (d *Dispatcher) Execute(ctx context.Context, call provider.ToolCall, sb *sandbox.Boundary, events chan<- workflow.Event) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}
	name := tool.Name(call.Name)
	emit := func(ev workflow.Event) {
		if events != nil {
			events <- ev
		}
	}

	if !name.Known() {
		msg := fmt.Sprintf("Error: tool %q does not exist. Available tools: %s", call.Name, catalogueList())
		emit(workflow.ToolStartEvent{CallID: call.ID, ToolName: call.Name})
		emit(workflow.ToolEndEvent{CallID: call.ID, ToolName: call.Name, Display: tool.StringDisplay("Unknown tool"), IsError: true})
		return d.errorOutcome(call, msg), nil
	}

	args, err := arguments(call)
	if err != nil {
		return d.invalidArgs(call, err, emit), nil
	}

	var (
		res     toolResult
		display string
		runErr  error
	)
	started := func(s fmt.Stringer) {
		display = s.String()
		emit(workflow.ToolStartEvent{CallID: call.ID, ToolName: call.Name, RequestDisplay: display})
	}

	switch name {
	case tool.Read:
		req := &file.ReadRequest{}
		if err := decode(args, req); err != nil {
			return d.invalidArgs(call, err, emit), nil
		}
		started(req)
		res, runErr = asResult(d.tools.Read.Run(ctx, sb, req))
	case tool.Write:
		req := &file.WriteRequest{}
		if err := decode(args, req); err != nil {
			return d.invalidArgs(call, err, emit), nil
		}
		started(req)
		res, runErr = asResult(d.tools.Write.Run(ctx, sb, req))
	case tool.Edit:
		req := &file.EditRequest{}
		if err := decode(args, req); err != nil {
			return d.invalidArgs(call, err, emit), nil
		}
		started(req)
		res, runErr = asResult(d.tools.Edit.Run(ctx, sb, req))
	case tool.Glob:
		req := &search.GlobRequest{}
		if err := decode(args, req); err != nil {
			return d.invalidArgs(call, err, emit), nil
		}
		started(req)
		res, runErr = asResult(d.tools.Glob.Run(ctx, sb, req))
	case tool.Grep:
		req := &search.GrepRequest{}
		if err := decode(args, req); err != nil {
			return d.invalidArgs(call, err, emit), nil
		}
		started(req)
		res, runErr = asResult(d.tools.Grep.Run(ctx, sb, req))
	case tool.NotebookEdit:
		req := &notebook.EditRequest{}
		if err := decode(args, req); err != nil {
			return d.invalidArgs(call, err, emit), nil
		}
		started(req)
		res, runErr = asResult(d.tools.NotebookEdit.Run(ctx, sb, req))
	case tool.Bash:
		req := &shell.BashRequest{}
		if err := decode(args, req); err != nil {
			return d.invalidArgs(call, err, emit), nil
		}
		started(req)
		res, runErr = asResult(d.tools.Bash.Run(ctx, sb, req))
	case tool.BashOutput:
		req := &shell.OutputRequest{}
		if err := decode(args, req); err != nil {
			return d.invalidArgs(call, err, emit), nil
		}
		started(req)
		res, runErr = asResult(d.tools.BashOutput.Run(ctx, req))
	case tool.KillShell:
		req := &shell.KillRequest{}
		if err := decode(args, req); err != nil {
			return d.invalidArgs(call, err, emit), nil
		}
		started(req)
		res, runErr = asResult(d.tools.KillShell.Run(ctx, req))
	}

	if runErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			emit(workflow.ToolEndEvent{CallID: call.ID, ToolName: call.Name, Display: tool.StringDisplay("Cancelled"), IsError: true})
			return Outcome{}, ctxErr
		}
		msg := fmt.Sprintf("%s failed: %v", call.Name, runErr)
		d.logger.Debug("tool failed", zap.String("tool", call.Name), zap.String("request", display), zap.Error(runErr))
		out := d.errorOutcome(call, msg)
		out.Exhausted = errors.Is(runErr, process.ErrTableFull)
		emit(workflow.ToolEndEvent{CallID: call.ID, ToolName: call.Name, Display: out.Display, IsError: true})
		return out, nil
	}

	out := Outcome{
		Result: provider.ToolResult{
			ToolCallID: call.ID,
			Name:       call.Name,
			Content:    Truncate(res.LLMContent(), d.maxChars),
		},
		Display: res.Display(),
	}
	emit(workflow.ToolEndEvent{CallID: call.ID, ToolName: call.Name, Display: out.Display})
	return out, nil
}

func (d *Dispatcher) errorOutcome(call provider.ToolCall, msg string) Outcome {
	return Outcome{
		Result: provider.ToolResult{
			ToolCallID: call.ID,
			Name:       call.Name,
			Content:    Truncate(msg, d.maxChars),
			IsError:    true,
		},
		Display: tool.StringDisplay(msg),
	}
}

func (d *Dispatcher) invalidArgs(call provider.ToolCall, err error, emit func(workflow.Event)) Outcome {
	schema, _ := json.MarshalIndent(d.lookup(tool.Name(call.Name)).Declaration().Parameters, "", "  ")
	msg := fmt.Sprintf("%s failed: invalid arguments: %v\n\nExpected schema:\n%s", call.Name, err, schema)
	emit(workflow.ToolStartEvent{CallID: call.ID, ToolName: call.Name})
	emit(workflow.ToolEndEvent{CallID: call.ID, ToolName: call.Name, Display: tool.StringDisplay("Invalid tool request"), IsError: true})
	return d.errorOutcome(call, msg)
}

// asResult adapts a typed tool return to toolResult.
func asResult[R toolResult](r R, err error) (toolResult, error) {
	if err != nil {
		return nil, err
	}
	return r, nil
}

// arguments returns the call's argument map, parsing RawArguments when the
// engine could not.
func arguments(call provider.ToolCall) (map[string]any, error) {
	if call.Arguments != nil {
		return call.Arguments, nil
	}
	raw := strings.TrimSpace(call.RawArguments)
	if raw == "" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, fmt.Errorf("arguments are not a JSON object: %v", err)
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

// decode maps arguments onto a request struct by its json tags. Weak
// typing accepts "7" for an int and 1 for a bool, which models produce.
func decode(args map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(args)
}

func catalogueList() string {
	names := make([]string, len(tool.Catalogue))
	for i, n := range tool.Catalogue {
		names[i] = string(n)
	}
	return strings.Join(names, ", ")
}

// Truncate bounds s to max characters, keeping its head and tail around a
// marker that says how much was dropped. max <= 0 disables it.
func Truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	head := max / 2
	tail := max - head
	dropped := len(runes) - head - tail
	return fmt.Sprintf("%s\n\n... [%d characters truncated] ...\n\n%s", string(runes[:head]), dropped, string(runes[len(runes)-tail:]))
}
