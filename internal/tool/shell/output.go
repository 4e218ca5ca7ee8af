package shell

import (
	"context"
	"regexp"
	"strings"

	"github.com/hewenyu/OperationKernel/internal/tool"
)

// OutputTool reads new output from a background job.
type OutputTool struct {
	jobs jobTable
}

// NewOutputTool creates a new OutputTool.
func NewOutputTool(jobs jobTable) *OutputTool {
	if jobs == nil {
		panic("jobs is required")
	}
	return &OutputTool{jobs: jobs}
}

func (t *OutputTool) Name() tool.Name {
	return tool.BashOutput
}

func (t *OutputTool) Declaration() tool.Declaration {
	return tool.Declaration{
		Name:        string(tool.BashOutput),
		Description: "Return a background job's status and the output it produced since the previous bash_output call.",
		Parameters: &tool.Schema{
			Type: tool.TypeObject,
			Properties: map[string]*tool.Schema{
				"job_id": {Type: tool.TypeInteger, Description: "Job id returned by bash"},
				"filter": {Type: tool.TypeString, Description: "Optional regular expression; only matching lines are returned"},
			},
			Required: []string{"job_id"},
		},
	}
}

// Run advances the job's read cursor. Lines removed by the filter are
// consumed all the same.
func (t *OutputTool) Run(ctx context.Context, req *OutputRequest) (*OutputResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var filter *regexp.Regexp
	if req.Filter != "" {
		re, err := regexp.Compile(req.Filter)
		if err != nil {
			return nil, &InvalidFilterError{Filter: req.Filter, Cause: err}
		}
		filter = re
	}

	snap, err := t.jobs.Query(req.JobID)
	if err != nil {
		return nil, err
	}

	return &OutputResponse{
		Snapshot: snap,
		Stdout:   filterLines(snap.NewStdout, filter),
		Stderr:   filterLines(snap.NewStderr, filter),
		Filtered: filter != nil,
	}, nil
}

func filterLines(s string, re *regexp.Regexp) string {
	if re == nil || s == "" {
		return s
	}
	var b strings.Builder
	for _, line := range strings.SplitAfter(s, "\n") {
		if line == "" {
			continue
		}
		if re.MatchString(strings.TrimRight(line, "\r\n")) {
			b.WriteString(line)
		}
	}
	return b.String()
}
