package search

import (
	"fmt"
	"strings"

	"github.com/hewenyu/OperationKernel/internal/tool"
)

// -- Glob --

type GlobRequest struct {
	Pattern    string `json:"pattern"`
	Path       string `json:"path,omitempty"`
	ShowHidden bool   `json:"show_hidden,omitempty"`
	MaxResults int    `json:"max_results,omitempty"`
}

func (r *GlobRequest) Validate() error {
	if strings.TrimSpace(r.Pattern) == "" {
		return &PatternRequiredError{}
	}
	if r.MaxResults < 0 {
		return &NegativeValueError{Field: "max_results", Value: r.MaxResults}
	}
	return nil
}

func (r *GlobRequest) String() string {
	return fmt.Sprintf("Finding %s", r.Pattern)
}

type GlobResponse struct {
	Pattern   string
	Matches   []string // sorted, relative to the working directory when inside it
	Total     int
	Truncated bool
}

func (r *GlobResponse) LLMContent() string {
	if len(r.Matches) == 0 {
		return fmt.Sprintf("No files matched %q.", r.Pattern)
	}
	var b strings.Builder
	for _, m := range r.Matches {
		b.WriteString(m)
		b.WriteByte('\n')
	}
	if r.Truncated {
		fmt.Fprintf(&b, "(showing %d of %d matches; narrow the pattern or raise max_results)\n", len(r.Matches), r.Total)
	}
	return b.String()
}

func (r *GlobResponse) Display() tool.ToolDisplay {
	return tool.StringDisplay(fmt.Sprintf("Found %d files matching %s", r.Total, r.Pattern))
}

// -- Grep --

type GrepRequest struct {
	Pattern         string `json:"pattern"`
	Path            string `json:"path,omitempty"`
	Include         string `json:"include,omitempty"`
	CaseInsensitive bool   `json:"case_insensitive,omitempty"`
	ContextLines    int    `json:"context_lines,omitempty"`
	MaxResults      int    `json:"max_results,omitempty"`
}

func (r *GrepRequest) Validate() error {
	if r.Pattern == "" {
		return &PatternRequiredError{}
	}
	if r.ContextLines < 0 {
		return &NegativeValueError{Field: "context_lines", Value: r.ContextLines}
	}
	if r.MaxResults < 0 {
		return &NegativeValueError{Field: "max_results", Value: r.MaxResults}
	}
	return nil
}

func (r *GrepRequest) String() string {
	return fmt.Sprintf("Searching for %s", r.Pattern)
}

// GrepMatch is one matching line.
type GrepMatch struct {
	File       string
	LineNumber int // 1-based
	Line       string
}

type GrepResponse struct {
	Pattern       string
	Matches       []GrepMatch
	Output        string // ripgrep-style listing with context
	FilesSearched int
	BinarySkipped int
	Truncated     bool
}

func (r *GrepResponse) LLMContent() string {
	if len(r.Matches) == 0 {
		return fmt.Sprintf("No matches found for pattern %q (searched %d files).", r.Pattern, r.FilesSearched)
	}
	out := r.Output
	if r.Truncated {
		out += fmt.Sprintf("(stopped after %d matches; narrow the search or raise max_results)\n", len(r.Matches))
	}
	return out
}

func (r *GrepResponse) Display() tool.ToolDisplay {
	return tool.StringDisplay(fmt.Sprintf("Found %d matches for %s in %d files", len(r.Matches), r.Pattern, r.FilesSearched))
}
