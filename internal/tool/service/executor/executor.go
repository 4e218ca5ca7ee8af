package executor

import (
	"context"
	"errors"
	"os/exec"
	"time"

	"github.com/hewenyu/OperationKernel/internal/tool/service/sysproc"
	"go.uber.org/zap"
)

// Result represents the outcome of a command execution.
type Result struct {
	Stdout    string
	Stderr    string
	ExitCode  int
	Truncated bool
	TimedOut  bool
	Duration  time.Duration
}

// Runner executes shell snippets synchronously with bounded output capture.
type Runner struct {
	maxOutput int
	grace     time.Duration
	logger    *zap.Logger
}

// NewRunner creates a Runner. maxOutput bounds each stream; grace is how long
// a stopped command gets between SIGTERM and SIGKILL.
func NewRunner(maxOutput int, grace time.Duration, logger *zap.Logger) *Runner {
	if maxOutput <= 0 {
		panic("maxOutput must be positive")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{maxOutput: maxOutput, grace: grace, logger: logger}
}

// Run executes command through the shell in dir and waits for it.
//
// A non-zero exit status is not an error: it is reported in Result.ExitCode.
// Errors are returned for spawn failures (*CommandError), timeouts
// (ErrTimeout, with the partial Result) and context cancellation (ctx.Err(),
// with the partial Result). In the last two cases the process group is sent
// SIGTERM and, after the grace period, SIGKILL.
func (r *Runner) Run(ctx context.Context, command, dir string, env []string, timeout time.Duration) (*Result, error) {
	if command == "" {
		return nil, ErrEmptyCommand
	}

	cmd := sysproc.ShellCommand(command)
	cmd.Dir = dir
	if env != nil {
		cmd.Env = env
	}
	stdout := newCollector(r.maxOutput)
	stderr := newCollector(r.maxOutput)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	// Background grandchildren may hold the pipes open after the shell exits.
	cmd.WaitDelay = r.grace

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, &CommandError{Cmd: command, Stage: "start", Cause: err}
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	var timeoutC <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timeoutC = timer.C
	}

	var waitErr, runErr error
	select {
	case waitErr = <-done:
	case <-ctx.Done():
		waitErr = r.stop(cmd, done)
		runErr = ctx.Err()
	case <-timeoutC:
		waitErr = r.stop(cmd, done)
		runErr = ErrTimeout
	}

	res := &Result{
		Stdout:    stdout.String(),
		Stderr:    stderr.String(),
		ExitCode:  exitCode(waitErr),
		Truncated: stdout.Truncated() || stderr.Truncated(),
		TimedOut:  errors.Is(runErr, ErrTimeout),
		Duration:  time.Since(start),
	}
	if runErr != nil {
		r.logger.Debug("command stopped",
			zap.String("command", command),
			zap.Error(runErr),
			zap.Duration("elapsed", res.Duration))
		res.ExitCode = -1
		return res, runErr
	}

	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) && !errors.Is(waitErr, exec.ErrWaitDelay) {
		return res, &CommandError{Cmd: command, Stage: "wait", Cause: waitErr}
	}
	return res, nil
}

func (r *Runner) stop(cmd *exec.Cmd, done <-chan error) error {
	_ = sysproc.Terminate(cmd)
	select {
	case err := <-done:
		return err
	case <-time.After(r.grace):
		_ = sysproc.Kill(cmd)
		return <-done
	}
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
