package dispatch

import (
	"context"

	"github.com/hewenyu/OperationKernel/internal/tool"
	"github.com/hewenyu/OperationKernel/internal/tool/file"
	"github.com/hewenyu/OperationKernel/internal/tool/notebook"
	"github.com/hewenyu/OperationKernel/internal/tool/search"
	"github.com/hewenyu/OperationKernel/internal/tool/service/sandbox"
	"github.com/hewenyu/OperationKernel/internal/tool/shell"
)

// toolResult is returned by tools after execution.
type toolResult interface {
	// LLMContent returns the string content sent to the LLM.
	LLMContent() string

	// Display returns the display type for UI rendering.
	Display() tool.ToolDisplay
}

type declarer interface {
	Declaration() tool.Declaration
}

type readTool interface {
	declarer
	Run(ctx context.Context, sb *sandbox.Boundary, req *file.ReadRequest) (*file.ReadResponse, error)
}

type writeTool interface {
	declarer
	Run(ctx context.Context, sb *sandbox.Boundary, req *file.WriteRequest) (*file.WriteResponse, error)
}

type editTool interface {
	declarer
	Run(ctx context.Context, sb *sandbox.Boundary, req *file.EditRequest) (*file.EditResponse, error)
}

type globTool interface {
	declarer
	Run(ctx context.Context, sb *sandbox.Boundary, req *search.GlobRequest) (*search.GlobResponse, error)
}

type grepTool interface {
	declarer
	Run(ctx context.Context, sb *sandbox.Boundary, req *search.GrepRequest) (*search.GrepResponse, error)
}

type notebookTool interface {
	declarer
	Run(ctx context.Context, sb *sandbox.Boundary, req *notebook.EditRequest) (*notebook.EditResponse, error)
}

type bashTool interface {
	declarer
	Run(ctx context.Context, sb *sandbox.Boundary, req *shell.BashRequest) (*shell.BashResponse, error)
}

type outputTool interface {
	declarer
	Run(ctx context.Context, req *shell.OutputRequest) (*shell.OutputResponse, error)
}

type killTool interface {
	declarer
	Run(ctx context.Context, req *shell.KillRequest) (*shell.KillResponse, error)
}
