package file

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/hewenyu/OperationKernel/internal/config"
	"github.com/hewenyu/OperationKernel/internal/tool"
	"github.com/hewenyu/OperationKernel/internal/tool/helper/content"
	"github.com/hewenyu/OperationKernel/internal/tool/service/sandbox"
)

// ReadTool handles file reading operations.
type ReadTool struct {
	fileOps fileReader
	config  *config.Config
}

// NewReadTool creates a new ReadTool with injected dependencies.
func NewReadTool(fileOps fileReader, cfg *config.Config) *ReadTool {
	if fileOps == nil {
		panic("fileOps is required")
	}
	if cfg == nil {
		panic("config is required")
	}
	return &ReadTool{fileOps: fileOps, config: cfg}
}

func (t *ReadTool) Name() tool.Name {
	return tool.Read
}

func (t *ReadTool) Declaration() tool.Declaration {
	return tool.Declaration{
		Name:        string(tool.Read),
		Description: "Read a UTF-8 text file. Returns the raw file content. Use offset and limit to page through large files.",
		Parameters: &tool.Schema{
			Type: tool.TypeObject,
			Properties: map[string]*tool.Schema{
				"path":   {Type: tool.TypeString, Description: "Path to the file (absolute or relative to the working directory)"},
				"offset": {Type: tool.TypeInteger, Description: "0-based line to start reading from"},
				"limit":  {Type: tool.TypeInteger, Description: "Maximum number of lines to return"},
			},
			Required: []string{"path"},
		},
	}
}

// Run reads a file inside the sandbox. The path is resolved against sb
// before the file is touched.
//
// Note: ctx is only checked up front; file I/O is synchronous.
func (t *ReadTool) Run(ctx context.Context, sb *sandbox.Boundary, req *ReadRequest) (*ReadResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	abs, err := sb.Resolve(req.Path)
	if err != nil {
		return nil, err
	}
	rel := sb.Rel(abs)

	info, err := t.fileOps.Stat(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &PathError{Path: rel, Err: ErrFileMissing}
		}
		return nil, &IOError{Op: "stat", Path: rel, Cause: err}
	}
	if info.IsDir() {
		return nil, &PathError{Path: rel, Err: ErrIsDirectory}
	}
	if info.Size() > t.config.Tools.MaxFileSize {
		return nil, &TooLargeError{Path: rel, Size: info.Size(), Limit: t.config.Tools.MaxFileSize}
	}

	data, err := t.fileOps.ReadFile(abs)
	if err != nil {
		return nil, &IOError{Op: "read", Path: rel, Cause: err}
	}
	text, err := content.DecodeText(data)
	if err != nil {
		return nil, &PathError{Path: rel, Err: ErrNotText}
	}

	lines := content.SplitLinesInclusive(text)
	if req.Offset > 0 && req.Offset >= len(lines) {
		return nil, &PathError{Path: rel, Err: ErrOffsetPastEnd}
	}

	limit := req.Limit
	if limit == 0 {
		limit = t.config.Tools.DefaultReadLimit
	}
	end := min(req.Offset+limit, len(lines))

	return &ReadResponse{
		Path:         rel,
		AbsolutePath: abs,
		Content:      strings.Join(lines[req.Offset:end], ""),
		StartLine:    req.Offset,
		Lines:        end - req.Offset,
		TotalLines:   len(lines),
	}, nil
}
