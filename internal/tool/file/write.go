package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/hewenyu/OperationKernel/internal/config"
	"github.com/hewenyu/OperationKernel/internal/tool"
	"github.com/hewenyu/OperationKernel/internal/tool/helper/content"
	"github.com/hewenyu/OperationKernel/internal/tool/service/sandbox"
)

const defaultFilePerm os.FileMode = 0o644

// WriteTool creates or overwrites files.
type WriteTool struct {
	fileOps fileWriter
	config  *config.Config
}

// NewWriteTool creates a new WriteTool with injected dependencies.
func NewWriteTool(fileOps fileWriter, cfg *config.Config) *WriteTool {
	if fileOps == nil {
		panic("fileOps is required")
	}
	if cfg == nil {
		panic("config is required")
	}
	return &WriteTool{fileOps: fileOps, config: cfg}
}

func (t *WriteTool) Name() tool.Name {
	return tool.Write
}

func (t *WriteTool) Declaration() tool.Declaration {
	return tool.Declaration{
		Name:        string(tool.Write),
		Description: "Create or overwrite a file with the given content. Missing parent directories are created.",
		Parameters: &tool.Schema{
			Type: tool.TypeObject,
			Properties: map[string]*tool.Schema{
				"path":    {Type: tool.TypeString, Description: "Path to the file (absolute or relative to the working directory)"},
				"content": {Type: tool.TypeString, Description: "Full file content"},
			},
			Required: []string{"path", "content"},
		},
	}
}

// Run writes req.Content atomically. Existing files keep their permissions
// and the response carries a diff against the previous content.
func (t *WriteTool) Run(ctx context.Context, sb *sandbox.Boundary, req *WriteRequest) (*WriteResponse, error) {
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

	data := []byte(req.Content)
	if int64(len(data)) > t.config.Tools.MaxFileSize {
		return nil, &TooLargeError{Path: rel, Size: int64(len(data)), Limit: t.config.Tools.MaxFileSize}
	}
	if content.IsBinaryContent(data) {
		return nil, &PathError{Path: rel, Err: ErrBinaryContent}
	}

	perm := defaultFilePerm
	created := true
	var previous string

	info, err := t.fileOps.Stat(abs)
	switch {
	case err == nil:
		if info.IsDir() {
			return nil, &PathError{Path: rel, Err: ErrIsDirectory}
		}
		created = false
		perm = info.Mode().Perm()
		if old, readErr := t.fileOps.ReadFile(abs); readErr == nil {
			previous, _ = content.DecodeText(old)
		}
	case errors.Is(err, os.ErrNotExist):
		parent := filepath.Dir(abs)
		if err := t.fileOps.EnsureDirs(parent); err != nil {
			return nil, &IOError{Op: "create directories for", Path: rel, Cause: err}
		}
	default:
		return nil, &IOError{Op: "stat", Path: rel, Cause: err}
	}

	if err := t.fileOps.WriteFileAtomic(abs, data, perm); err != nil {
		return nil, &IOError{Op: "write", Path: rel, Cause: err}
	}

	return &WriteResponse{
		Path:         rel,
		AbsolutePath: abs,
		BytesWritten: len(data),
		Created:      created,
		Diff:         computeUnifiedDiff(filepath.Base(abs), previous, req.Content),
	}, nil
}
