package shell

import (
	"context"
	"errors"
	"time"

	"github.com/hewenyu/OperationKernel/internal/config"
	"github.com/hewenyu/OperationKernel/internal/tool"
	"github.com/hewenyu/OperationKernel/internal/tool/service/executor"
	"github.com/hewenyu/OperationKernel/internal/tool/service/sandbox"
	"go.uber.org/zap"
)

// BashTool runs shell commands, either to completion or as background jobs.
type BashTool struct {
	fs     dirStatter
	runner commandRunner
	jobs   jobTable
	config *config.Config
	logger *zap.Logger
}

// NewBashTool creates a new BashTool with injected dependencies.
func NewBashTool(fs dirStatter, runner commandRunner, jobs jobTable, cfg *config.Config, logger *zap.Logger) *BashTool {
	if fs == nil {
		panic("fs is required")
	}
	if runner == nil {
		panic("runner is required")
	}
	if jobs == nil {
		panic("jobs is required")
	}
	if cfg == nil {
		panic("cfg is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BashTool{fs: fs, runner: runner, jobs: jobs, config: cfg, logger: logger}
}

func (t *BashTool) Name() tool.Name {
	return tool.Bash
}

func (t *BashTool) Declaration() tool.Declaration {
	return tool.Declaration{
		Name: string(tool.Bash),
		Description: "Run a shell command. By default waits for it and returns stdout, stderr and the exit code " +
			"(a non-zero exit is reported, not treated as a failure). With background=true the command is started " +
			"as a job and its id returned immediately; poll it with bash_output and stop it with kill_shell.",
		Parameters: &tool.Schema{
			Type: tool.TypeObject,
			Properties: map[string]*tool.Schema{
				"command":     {Type: tool.TypeString, Description: "Shell command line"},
				"working_dir": {Type: tool.TypeString, Description: "Directory to run in (default: working directory)"},
				"timeout_ms":  {Type: tool.TypeInteger, Description: "Timeout for foreground commands in milliseconds"},
				"background":  {Type: tool.TypeBoolean, Description: "Start as a background job"},
				"description": {Type: tool.TypeString, Description: "Short human-readable description of the command"},
			},
			Required: []string{"command"},
		},
	}
}

// Run executes the command in a sandbox-validated directory.
//
// Spawn failures and a full job table are returned as errors. A timeout is
// not: the partial output comes back with TimedOut set and exit code -1.
// Cancellation of ctx stops the command and returns ctx.Err().
func (t *BashTool) Run(ctx context.Context, sb *sandbox.Boundary, req *BashRequest) (*BashResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	dir, err := t.resolveDir(sb, req.WorkingDir)
	if err != nil {
		return nil, err
	}

	if req.Background {
		id, err := t.jobs.Spawn(req.Command, dir)
		if err != nil {
			return nil, err
		}
		return &BashResponse{Command: req.Command, WorkingDir: sb.Rel(dir), JobID: id}, nil
	}

	timeoutMs := req.TimeoutMs
	if timeoutMs == 0 {
		timeoutMs = t.config.Tools.DefaultShellTimeoutMs
	}
	timeoutMs = min(timeoutMs, t.config.Tools.MaxShellTimeoutMs)

	res, err := t.runner.Run(ctx, req.Command, dir, nil, time.Duration(timeoutMs)*time.Millisecond)
	if err != nil && !errors.Is(err, executor.ErrTimeout) {
		return nil, err
	}
	if res.TimedOut {
		t.logger.Info("shell command timed out", zap.String("command", req.Command), zap.Int("timeout_ms", timeoutMs))
	}

	return &BashResponse{
		Command:    req.Command,
		WorkingDir: sb.Rel(dir),
		Stdout:     res.Stdout,
		Stderr:     res.Stderr,
		ExitCode:   res.ExitCode,
		TimedOut:   res.TimedOut,
		TimeoutMs:  timeoutMs,
		Truncated:  res.Truncated,
	}, nil
}

func (t *BashTool) resolveDir(sb *sandbox.Boundary, wd string) (string, error) {
	if wd == "" {
		return sb.WorkingDir(), nil
	}
	dir, err := sb.Resolve(wd)
	if err != nil {
		return "", err
	}
	info, err := t.fs.Stat(dir)
	if err != nil {
		return "", &WorkingDirError{Path: sb.Rel(dir), Cause: err}
	}
	if !info.IsDir() {
		return "", &WorkingDirError{Path: sb.Rel(dir)}
	}
	return dir, nil
}
