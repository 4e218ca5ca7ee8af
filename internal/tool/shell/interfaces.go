package shell

import (
	"context"
	"os"
	"time"

	"github.com/hewenyu/OperationKernel/internal/tool/service/executor"
	"github.com/hewenyu/OperationKernel/internal/tool/service/process"
)

// dirStatter checks working directories.
type dirStatter interface {
	Stat(path string) (os.FileInfo, error)
}

// commandRunner runs a command to completion.
type commandRunner interface {
	Run(ctx context.Context, command, dir string, env []string, timeout time.Duration) (*executor.Result, error)
}

// jobTable is the subset of the Process Manager the shell tools use.
type jobTable interface {
	Spawn(command, dir string) (int, error)
	Query(id int) (process.Snapshot, error)
	Peek(id int) (process.Snapshot, error)
	Kill(ctx context.Context, id int) (process.Status, error)
}
