package search

import (
	"context"
	"io/fs"
	"sort"

	"github.com/hewenyu/OperationKernel/internal/config"
	"github.com/hewenyu/OperationKernel/internal/tool"
	"github.com/hewenyu/OperationKernel/internal/tool/helper/pagination"
	"github.com/hewenyu/OperationKernel/internal/tool/service/git"
	"github.com/hewenyu/OperationKernel/internal/tool/service/sandbox"
)

// GlobTool finds files by name pattern.
type GlobTool struct {
	fs     fileSystem
	config *config.Config
}

// NewGlobTool creates a new GlobTool with injected dependencies.
func NewGlobTool(fs fileSystem, cfg *config.Config) *GlobTool {
	if fs == nil {
		panic("fs is required")
	}
	if cfg == nil {
		panic("config is required")
	}
	return &GlobTool{fs: fs, config: cfg}
}

func (t *GlobTool) Name() tool.Name {
	return tool.Glob
}

func (t *GlobTool) Declaration() tool.Declaration {
	return tool.Declaration{
		Name: string(tool.Glob),
		Description: "Find files by glob pattern (e.g. '**/*.go', 'src/*.ts'). A pattern without '/' matches at any depth. " +
			"Results are sorted and respect .gitignore.",
		Parameters: &tool.Schema{
			Type: tool.TypeObject,
			Properties: map[string]*tool.Schema{
				"pattern":     {Type: tool.TypeString, Description: "Glob pattern relative to path"},
				"path":        {Type: tool.TypeString, Description: "Directory to search (default: working directory)"},
				"show_hidden": {Type: tool.TypeBoolean, Description: "Include dot-files and dot-directories"},
				"max_results": {Type: tool.TypeInteger, Description: "Maximum number of paths to return"},
			},
			Required: []string{"pattern"},
		},
	}
}

// Run walks the search root and collects files whose root-relative path
// matches the pattern. Zero matches is a successful, empty result.
func (t *GlobTool) Run(ctx context.Context, sb *sandbox.Boundary, req *GlobRequest) (*GlobResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	pattern, err := git.CompilePattern(req.Pattern)
	if err != nil {
		return nil, &InvalidPatternError{Pattern: req.Pattern, Cause: err}
	}
	root, err := resolveRoot(t.fs, sb, req.Path)
	if err != nil {
		return nil, err
	}

	limit := t.config.Tools.MaxGlobResults
	if req.MaxResults > 0 && req.MaxResults < limit {
		limit = req.MaxResults
	}

	var matches []string
	err = walkFiles(ctx, root, loadIgnore(root), req.ShowHidden, func(abs, rel string, _ fs.DirEntry) error {
		if pattern.Match(rel) {
			matches = append(matches, sb.Rel(abs))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(matches)
	page, res := pagination.Apply(matches, 0, limit)
	return &GlobResponse{Pattern: req.Pattern, Matches: page, Total: res.Total, Truncated: res.Truncated}, nil
}
