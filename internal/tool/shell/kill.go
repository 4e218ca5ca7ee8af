package shell

import (
	"context"

	"github.com/hewenyu/OperationKernel/internal/tool"
)

// KillTool terminates background jobs.
type KillTool struct {
	jobs jobTable
}

// NewKillTool creates a new KillTool.
func NewKillTool(jobs jobTable) *KillTool {
	if jobs == nil {
		panic("jobs is required")
	}
	return &KillTool{jobs: jobs}
}

func (t *KillTool) Name() tool.Name {
	return tool.KillShell
}

func (t *KillTool) Declaration() tool.Declaration {
	return tool.Declaration{
		Name:        string(tool.KillShell),
		Description: "Terminate a background job (SIGTERM, then SIGKILL after a grace period). Killing a finished job succeeds and reports its final status.",
		Parameters: &tool.Schema{
			Type: tool.TypeObject,
			Properties: map[string]*tool.Schema{
				"job_id": {Type: tool.TypeInteger, Description: "Job id returned by bash"},
			},
			Required: []string{"job_id"},
		},
	}
}

// Run returns once the job is confirmed gone.
func (t *KillTool) Run(ctx context.Context, req *KillRequest) (*KillResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	before, err := t.jobs.Peek(req.JobID)
	if err != nil {
		return nil, err
	}
	resp := &KillResponse{JobID: req.JobID, Command: before.Command}
	if before.Status.Done() {
		resp.Status = before.Status
		resp.AlreadyStopped = true
		return resp, nil
	}

	status, err := t.jobs.Kill(ctx, req.JobID)
	if err != nil {
		return nil, err
	}
	resp.Status = status
	return resp, nil
}
