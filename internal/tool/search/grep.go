package search

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/hewenyu/OperationKernel/internal/config"
	"github.com/hewenyu/OperationKernel/internal/tool"
	"github.com/hewenyu/OperationKernel/internal/tool/helper/content"
	"github.com/hewenyu/OperationKernel/internal/tool/service/git"
	"github.com/hewenyu/OperationKernel/internal/tool/service/sandbox"
)

// GrepTool searches file contents with a regular expression.
type GrepTool struct {
	fs     fileSystem
	config *config.Config
}

// NewGrepTool creates a new GrepTool with injected dependencies.
func NewGrepTool(fs fileSystem, cfg *config.Config) *GrepTool {
	if fs == nil {
		panic("fs is required")
	}
	if cfg == nil {
		panic("config is required")
	}
	return &GrepTool{fs: fs, config: cfg}
}

func (t *GrepTool) Name() tool.Name {
	return tool.Grep
}

func (t *GrepTool) Declaration() tool.Declaration {
	return tool.Declaration{
		Name: string(tool.Grep),
		Description: "Search file contents with a regular expression (RE2 syntax). Output lines are 'path:line:text'; " +
			"context lines use '-' separators. Binary and .gitignored files are skipped.",
		Parameters: &tool.Schema{
			Type: tool.TypeObject,
			Properties: map[string]*tool.Schema{
				"pattern":          {Type: tool.TypeString, Description: "Regular expression to search for"},
				"path":             {Type: tool.TypeString, Description: "File or directory to search (default: working directory)"},
				"include":          {Type: tool.TypeString, Description: "Glob restricting which files are searched, e.g. '*.go'"},
				"case_insensitive": {Type: tool.TypeBoolean, Description: "Match case-insensitively"},
				"context_lines":    {Type: tool.TypeInteger, Description: "Lines of context before and after each match"},
				"max_results":      {Type: tool.TypeInteger, Description: "Maximum number of matching lines"},
			},
			Required: []string{"pattern"},
		},
	}
}

// Run searches a single file or every text file under a directory.
func (t *GrepTool) Run(ctx context.Context, sb *sandbox.Boundary, req *GrepRequest) (*GrepResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	expr := req.Pattern
	if req.CaseInsensitive {
		expr = "(?i)" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, &InvalidPatternError{Pattern: req.Pattern, Cause: err}
	}

	var include *git.PathPattern
	if req.Include != "" {
		include, err = git.CompilePattern(req.Include)
		if err != nil {
			return nil, &InvalidPatternError{Pattern: req.Include, Cause: err}
		}
	}

	limit := t.config.Tools.MaxGrepResults
	if req.MaxResults > 0 && req.MaxResults < limit {
		limit = req.MaxResults
	}

	s := &grepSearch{
		tool:    t,
		sb:      sb,
		re:      re,
		context: req.ContextLines,
		limit:   limit,
		resp:    &GrepResponse{Pattern: req.Pattern},
	}

	target := req.Path
	if target == "" {
		target = "."
	}
	abs, err := sb.Resolve(target)
	if err != nil {
		return nil, err
	}
	info, err := t.fs.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &FileMissingError{Path: sb.Rel(abs)}
		}
		return nil, &StatError{Path: sb.Rel(abs), Cause: err}
	}

	if !info.IsDir() {
		s.searchFile(abs)
	} else {
		err = walkFiles(ctx, abs, loadIgnore(abs), false, func(path, rel string, d fs.DirEntry) error {
			if !d.Type().IsRegular() {
				return nil
			}
			if include != nil && !include.Match(rel) {
				return nil
			}
			s.searchFile(path)
			if s.resp.Truncated {
				return errStopWalk
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	s.resp.Output = s.out.String()
	return s.resp, nil
}

type grepSearch struct {
	tool    *GrepTool
	sb      *sandbox.Boundary
	re      *regexp.Regexp
	context int
	limit   int
	resp    *GrepResponse
	out     strings.Builder
}

// searchFile appends the matches of one file. Unreadable, oversized and
// binary files are counted or skipped silently.
func (s *grepSearch) searchFile(abs string) {
	info, err := s.tool.fs.Stat(abs)
	if err != nil || info.Size() > s.tool.config.Tools.MaxFileSize {
		return
	}
	data, err := s.tool.fs.ReadFile(abs)
	if err != nil {
		return
	}
	s.resp.FilesSearched++
	text, err := content.DecodeText(data)
	if err != nil {
		s.resp.BinarySkipped++
		return
	}

	rel := s.sb.Rel(abs)
	lines := content.SplitLines(text)
	lastPrinted := -1
	for i, line := range lines {
		if !s.re.MatchString(line) {
			continue
		}
		if len(s.resp.Matches) >= s.limit {
			s.resp.Truncated = true
			return
		}
		s.resp.Matches = append(s.resp.Matches, GrepMatch{File: rel, LineNumber: i + 1, Line: line})

		from := max(i-s.context, lastPrinted+1)
		if lastPrinted >= 0 && from > lastPrinted+1 {
			s.out.WriteString("--\n")
		}
		for j := from; j < i; j++ {
			s.writeLine(rel, j, '-', lines[j])
		}
		s.writeLine(rel, i, ':', line)
		lastPrinted = i

		// Trailing context stops at the next match; that line is printed by the outer loop.
		for j := i + 1; j <= min(i+s.context, len(lines)-1); j++ {
			if s.re.MatchString(lines[j]) {
				break
			}
			s.writeLine(rel, j, '-', lines[j])
			lastPrinted = j
		}
	}
}

func (s *grepSearch) writeLine(rel string, idx int, sep byte, line string) {
	maxLen := s.tool.config.Tools.MaxLineLength
	if len(line) > maxLen {
		line = truncateUTF8(line, maxLen) + "...[truncated]"
	}
	fmt.Fprintf(&s.out, "%s%c%d%c%s\n", filepath.ToSlash(rel), sep, idx+1, sep, line)
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !isRuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
