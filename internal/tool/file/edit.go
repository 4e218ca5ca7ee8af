package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/hewenyu/OperationKernel/internal/config"
	"github.com/hewenyu/OperationKernel/internal/tool"
	"github.com/hewenyu/OperationKernel/internal/tool/helper/content"
	"github.com/hewenyu/OperationKernel/internal/tool/service/sandbox"
)

// EditTool performs exact string replacement in an existing file.
type EditTool struct {
	fileOps fileWriter
	config  *config.Config
}

// NewEditTool creates a new EditTool with injected dependencies.
func NewEditTool(fileOps fileWriter, cfg *config.Config) *EditTool {
	if fileOps == nil {
		panic("fileOps is required")
	}
	if cfg == nil {
		panic("config is required")
	}
	return &EditTool{fileOps: fileOps, config: cfg}
}

func (t *EditTool) Name() tool.Name {
	return tool.Edit
}

func (t *EditTool) Declaration() tool.Declaration {
	return tool.Declaration{
		Name: string(tool.Edit),
		Description: "Replace an exact string in a file. old_string must occur exactly once unless replace_all is set; " +
			"include enough surrounding context to make it unique.",
		Parameters: &tool.Schema{
			Type: tool.TypeObject,
			Properties: map[string]*tool.Schema{
				"path":        {Type: tool.TypeString, Description: "Path to the file to edit"},
				"old_string":  {Type: tool.TypeString, Description: "Exact text to find, including whitespace"},
				"new_string":  {Type: tool.TypeString, Description: "Replacement text"},
				"replace_all": {Type: tool.TypeBoolean, Description: "Replace every occurrence instead of requiring a unique match"},
			},
			Required: []string{"path", "old_string", "new_string"},
		},
	}
}

// Run applies the replacement and writes the file atomically.
// Bytes outside the matched text are left alone. In a file whose every line
// ends in CRLF, old_string and new_string are matched and written as CRLF.
func (t *EditTool) Run(ctx context.Context, sb *sandbox.Boundary, req *EditRequest) (*EditResponse, error) {
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
	raw, err := content.DecodeText(data)
	if err != nil {
		return nil, &PathError{Path: rel, Err: ErrNotText}
	}

	before, after := req.OldString, req.NewString
	if uniformCRLF(raw) {
		before, after = toCRLF(before), toCRLF(after)
	}

	count := strings.Count(raw, before)
	switch {
	case count == 0:
		return nil, &PathError{Path: rel, Err: ErrAnchorNotFound}
	case count > 1 && !req.ReplaceAll:
		return nil, &NotUniqueError{Path: rel, Count: count}
	}

	replacements := 1
	if req.ReplaceAll {
		replacements = count
	}
	final := strings.Replace(raw, before, after, replacements)

	if int64(len(final)) > t.config.Tools.MaxFileSize {
		return nil, &TooLargeError{Path: rel, Size: int64(len(final)), Limit: t.config.Tools.MaxFileSize}
	}

	if err := t.fileOps.WriteFileAtomic(abs, []byte(final), info.Mode().Perm()); err != nil {
		return nil, &IOError{Op: "write", Path: rel, Cause: err}
	}

	return &EditResponse{
		Path:         rel,
		AbsolutePath: abs,
		Replacements: replacements,
		Diff:         computeUnifiedDiff(filepath.Base(abs), toLF(raw), toLF(final)),
	}, nil
}

// uniformCRLF reports whether s has line breaks and all of them are CRLF.
func uniformCRLF(s string) bool {
	crlf := strings.Count(s, "\r\n")
	return crlf > 0 && crlf == strings.Count(s, "\n")
}

func toLF(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}

func toCRLF(s string) string {
	return strings.ReplaceAll(toLF(s), "\n", "\r\n")
}
