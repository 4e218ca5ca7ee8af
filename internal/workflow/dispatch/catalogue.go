package dispatch

import (
	"time"

	"github.com/hewenyu/OperationKernel/internal/config"
	"github.com/hewenyu/OperationKernel/internal/tool/file"
	"github.com/hewenyu/OperationKernel/internal/tool/notebook"
	"github.com/hewenyu/OperationKernel/internal/tool/search"
	"github.com/hewenyu/OperationKernel/internal/tool/service/executor"
	"github.com/hewenyu/OperationKernel/internal/tool/service/fs"
	"github.com/hewenyu/OperationKernel/internal/tool/service/process"
	"github.com/hewenyu/OperationKernel/internal/tool/shell"
	"go.uber.org/zap"
)

// NewTools builds the standard catalogue on the OS filesystem. Background
// jobs go to jobs, which the caller owns and shuts down.
func NewTools(cfg *config.Config, jobs *process.Manager, logger *zap.Logger) Tools {
	osfs := fs.NewOSFileSystem()
	runner := executor.NewRunner(
		int(cfg.Tools.MaxCommandOutputSize),
		time.Duration(cfg.Jobs.KillGraceMs)*time.Millisecond,
		logger,
	)
	return Tools{
		Read:         file.NewReadTool(osfs, cfg),
		Write:        file.NewWriteTool(osfs, cfg),
		Edit:         file.NewEditTool(osfs, cfg),
		Glob:         search.NewGlobTool(osfs, cfg),
		Grep:         search.NewGrepTool(osfs, cfg),
		NotebookEdit: notebook.NewEditTool(osfs),
		Bash:         shell.NewBashTool(osfs, runner, jobs, cfg, logger),
		BashOutput:   shell.NewOutputTool(jobs),
		KillShell:    shell.NewKillTool(jobs),
	}
}

// NewJobs builds a Process Manager from the jobs section of cfg.
func NewJobs(cfg *config.Config, logger *zap.Logger) *process.Manager {
	return process.NewManager(process.Options{
		MaxRunning:  cfg.Jobs.MaxJobs,
		BufferBytes: cfg.Jobs.OutputBufferBytes,
		Grace:       time.Duration(cfg.Jobs.KillGraceMs) * time.Millisecond,
		Logger:      logger,
	})
}
