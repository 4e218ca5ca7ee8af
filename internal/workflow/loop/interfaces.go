package loop

import (
	"context"

	"github.com/hewenyu/OperationKernel/internal/provider"
	"github.com/hewenyu/OperationKernel/internal/tool"
	"github.com/hewenyu/OperationKernel/internal/tool/service/sandbox"
	"github.com/hewenyu/OperationKernel/internal/workflow"
	"github.com/hewenyu/OperationKernel/internal/workflow/dispatch"
)

// streamClient opens streamed turns against the provider.
type streamClient interface {
	Stream(ctx context.Context, req *provider.Request) (*provider.Stream, error)
}

// toolDispatcher executes tool calls.
type toolDispatcher interface {
	// Declarations returns all tool schemas for the LLM.
	Declarations() []tool.Declaration

	// Execute runs a tool call inside sb. It emits ToolStartEvent and
	// ToolEndEvent to events, and returns an error only when ctx is done.
	Execute(ctx context.Context, call provider.ToolCall, sb *sandbox.Boundary, events chan<- workflow.Event) (dispatch.Outcome, error)
}
