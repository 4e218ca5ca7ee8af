package file

import (
	"fmt"

	"github.com/hewenyu/OperationKernel/internal/tool"
)

// -- Read --

type ReadRequest struct {
	Path   string `json:"path"`
	Offset int    `json:"offset,omitempty"` // 0-based line
	Limit  int    `json:"limit,omitempty"`  // lines; 0 means the configured default
}

func (r *ReadRequest) Validate() error {
	if r.Path == "" {
		return ErrPathRequired
	}
	if r.Offset < 0 {
		return ErrInvalidOffset
	}
	if r.Limit < 0 {
		return ErrInvalidLimit
	}
	return nil
}

func (r *ReadRequest) String() string {
	return fmt.Sprintf("Reading %s", r.Path)
}

type ReadResponse struct {
	Path         string // display path
	AbsolutePath string
	Content      string
	StartLine    int
	Lines        int
	TotalLines   int
}

// Truncated reports whether lines remain after the returned range.
func (r *ReadResponse) Truncated() bool {
	return r.StartLine+r.Lines < r.TotalLines
}

// LLMContent is the raw file text. A partial read gets a trailing
// note telling the model where to continue.
func (r *ReadResponse) LLMContent() string {
	if !r.Truncated() {
		return r.Content
	}
	next := r.StartLine + r.Lines
	return fmt.Sprintf("%s\n[showing lines %d-%d of %d; read again with offset=%d to continue]",
		r.Content, r.StartLine+1, next, r.TotalLines, next)
}

func (r *ReadResponse) Display() tool.ToolDisplay {
	return tool.StringDisplay(fmt.Sprintf("Read %s (%d of %d lines)", r.Path, r.Lines, r.TotalLines))
}

// -- Write --

type WriteRequest struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

func (r *WriteRequest) Validate() error {
	if r.Path == "" {
		return ErrPathRequired
	}
	return nil
}

func (r *WriteRequest) String() string {
	return fmt.Sprintf("Writing %s", r.Path)
}

type WriteResponse struct {
	Path         string
	AbsolutePath string
	BytesWritten int
	Created      bool
	Diff         diffStat
}

func (r *WriteResponse) LLMContent() string {
	if r.Created {
		return fmt.Sprintf("Created %s (%d bytes)", r.Path, r.BytesWritten)
	}
	return fmt.Sprintf("Overwrote %s (%d bytes, +%d -%d lines)", r.Path, r.BytesWritten, r.Diff.Added, r.Diff.Removed)
}

func (r *WriteResponse) Display() tool.ToolDisplay {
	return r.Diff.display(r.Path)
}

// -- Edit --

type EditRequest struct {
	Path       string `json:"path"`
	OldString  string `json:"old_string"`
	NewString  string `json:"new_string"`
	ReplaceAll bool   `json:"replace_all,omitempty"`
}

func (r *EditRequest) Validate() error {
	if r.Path == "" {
		return ErrPathRequired
	}
	if r.OldString == "" {
		return ErrOldStringRequired
	}
	if r.OldString == r.NewString {
		return ErrNoChange
	}
	return nil
}

func (r *EditRequest) String() string {
	return fmt.Sprintf("Editing %s", r.Path)
}

type EditResponse struct {
	Path         string
	AbsolutePath string
	Replacements int
	Diff         diffStat
}

func (r *EditResponse) LLMContent() string {
	return fmt.Sprintf("Edited %s: %d replacement(s)\n\n%s", r.Path, r.Replacements, r.Diff.Text)
}

func (r *EditResponse) Display() tool.ToolDisplay {
	return r.Diff.display(r.Path)
}
