package shell

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hewenyu/OperationKernel/internal/config"
	"github.com/hewenyu/OperationKernel/internal/tool"
	"github.com/hewenyu/OperationKernel/internal/tool/service/executor"
	"github.com/hewenyu/OperationKernel/internal/tool/service/fs"
	"github.com/hewenyu/OperationKernel/internal/tool/service/process"
	"github.com/hewenyu/OperationKernel/internal/tool/service/sandbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type harness struct {
	sb   *sandbox.Boundary
	cfg  *config.Config
	jobs *process.Manager
	bash *BashTool
	out  *OutputTool
	kill *KillTool
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	sb, err := sandbox.New(t.TempDir())
	require.NoError(t, err)
	cfg := config.DefaultConfig()
	jobs := process.NewManager(process.Options{MaxRunning: 2, Grace: 200 * time.Millisecond})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = jobs.Shutdown(ctx)
	})
	runner := executor.NewRunner(64*1024, 200*time.Millisecond, nil)
	return &harness{
		sb:   sb,
		cfg:  cfg,
		jobs: jobs,
		bash: NewBashTool(fs.NewOSFileSystem(), runner, jobs, cfg, nil),
		out:  NewOutputTool(jobs),
		kill: NewKillTool(jobs),
	}
}

func TestBash_Sync(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	t.Run("stdout and exit code", func(t *testing.T) {
		resp, err := h.bash.Run(ctx, h.sb, &BashRequest{Command: "echo hello"})
		require.NoError(t, err)
		assert.Equal(t, "hello\nExit code: 0", resp.LLMContent())
	})

	t.Run("non-zero exit is content", func(t *testing.T) {
		resp, err := h.bash.Run(ctx, h.sb, &BashRequest{Command: "echo oops >&2; exit 3"})
		require.NoError(t, err)
		assert.Equal(t, 3, resp.ExitCode)
		assert.Equal(t, "--- STDERR ---\noops\nExit code: 3", resp.LLMContent())
	})

	t.Run("no output", func(t *testing.T) {
		resp, err := h.bash.Run(ctx, h.sb, &BashRequest{Command: "true"})
		require.NoError(t, err)
		assert.Equal(t, "(No output)\nExit code: 0", resp.LLMContent())
	})

	t.Run("working dir", func(t *testing.T) {
		require.NoError(t, os.Mkdir(filepath.Join(h.sb.WorkingDir(), "sub"), 0o755))
		resp, err := h.bash.Run(ctx, h.sb, &BashRequest{Command: "pwd", WorkingDir: "sub"})
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(h.sb.WorkingDir(), "sub")+"\n", resp.Stdout)
		shell, ok := resp.Display().(tool.ShellDisplay)
		require.True(t, ok)
		assert.Equal(t, "sub", shell.WorkingDir)
	})

	t.Run("working dir outside sandbox", func(t *testing.T) {
		_, err := h.bash.Run(ctx, h.sb, &BashRequest{Command: "pwd", WorkingDir: "/"})
		assert.ErrorIs(t, err, sandbox.ErrOutsideSandbox)
	})

	t.Run("working dir is a file", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(h.sb.WorkingDir(), "f"), nil, 0o644))
		_, err := h.bash.Run(ctx, h.sb, &BashRequest{Command: "pwd", WorkingDir: "f"})
		var wdErr *WorkingDirError
		assert.ErrorAs(t, err, &wdErr)
	})

	t.Run("timeout is reported, not failed", func(t *testing.T) {
		resp, err := h.bash.Run(ctx, h.sb, &BashRequest{Command: "echo started; sleep 10", TimeoutMs: 200})
		require.NoError(t, err)
		assert.True(t, resp.TimedOut)
		assert.Equal(t, -1, resp.ExitCode)
		assert.Contains(t, resp.LLMContent(), "started")
		assert.Contains(t, resp.LLMContent(), "timed out after 200ms")
	})

	t.Run("timeout clamped to max", func(t *testing.T) {
		h.cfg.Tools.MaxShellTimeoutMs = 100
		defer func() { h.cfg.Tools.MaxShellTimeoutMs = 600000 }()
		resp, err := h.bash.Run(ctx, h.sb, &BashRequest{Command: "sleep 10", TimeoutMs: 60000})
		require.NoError(t, err)
		assert.True(t, resp.TimedOut)
		assert.Equal(t, 100, resp.TimeoutMs)
	})

	t.Run("cancellation returns ctx error", func(t *testing.T) {
		cctx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
		defer cancel()
		_, err := h.bash.Run(cctx, h.sb, &BashRequest{Command: "sleep 10"})
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("empty command", func(t *testing.T) {
		_, err := h.bash.Run(ctx, h.sb, &BashRequest{Command: "  "})
		var required *CommandRequiredError
		assert.ErrorAs(t, err, &required)
	})
}

func TestBash_BackgroundLifecycle(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	resp, err := h.bash.Run(ctx, h.sb, &BashRequest{Command: "echo one; sleep 0.3; echo two", Background: true})
	require.NoError(t, err)
	require.Equal(t, 1, resp.JobID)
	assert.Contains(t, resp.LLMContent(), "job_id=1")

	_, err = h.jobs.Wait(ctx, resp.JobID)
	require.NoError(t, err)

	out, err := h.out.Run(ctx, &OutputRequest{JobID: 1})
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo\n", out.Stdout)
	assert.Contains(t, out.LLMContent(), "Status: Exited(0)")

	again, err := h.out.Run(ctx, &OutputRequest{JobID: 1})
	require.NoError(t, err)
	assert.Contains(t, again.LLMContent(), "(No new output)")
}

func TestBashOutput_Filter(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	resp, err := h.bash.Run(ctx, h.sb, &BashRequest{Command: "printf 'ok 1\\nERROR x\\nok 2\\n'", Background: true})
	require.NoError(t, err)
	_, err = h.jobs.Wait(ctx, resp.JobID)
	require.NoError(t, err)

	out, err := h.out.Run(ctx, &OutputRequest{JobID: resp.JobID, Filter: "^ok"})
	require.NoError(t, err)
	assert.Equal(t, "ok 1\nok 2\n", out.Stdout)

	_, err = h.out.Run(ctx, &OutputRequest{JobID: resp.JobID, Filter: "("})
	var invalid *InvalidFilterError
	assert.ErrorAs(t, err, &invalid)
}

func TestKillShell_Idempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	resp, err := h.bash.Run(ctx, h.sb, &BashRequest{Command: "sleep 30", Background: true})
	require.NoError(t, err)

	first, err := h.kill.Run(ctx, &KillRequest{JobID: resp.JobID})
	require.NoError(t, err)
	assert.Equal(t, process.Killed, first.Status.State)
	assert.False(t, first.AlreadyStopped)

	second, err := h.kill.Run(ctx, &KillRequest{JobID: resp.JobID})
	require.NoError(t, err)
	assert.Equal(t, process.Killed, second.Status.State)
	assert.True(t, second.AlreadyStopped)
	assert.True(t, strings.HasPrefix(second.LLMContent(), "Job 1 had already finished"))
}

func TestUnknownJob(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.out.Run(ctx, &OutputRequest{JobID: 99})
	var unknown *process.UnknownJobError
	assert.ErrorAs(t, err, &unknown)

	_, err = h.kill.Run(ctx, &KillRequest{JobID: 99})
	assert.ErrorAs(t, err, &unknown)

	_, err = h.kill.Run(ctx, &KillRequest{})
	var required *JobIDRequiredError
	assert.ErrorAs(t, err, &required)
}

func TestBash_TableFull(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	for range 2 {
		_, err := h.bash.Run(ctx, h.sb, &BashRequest{Command: "sleep 30", Background: true})
		require.NoError(t, err)
	}
	_, err := h.bash.Run(ctx, h.sb, &BashRequest{Command: "sleep 30", Background: true})
	assert.True(t, errors.Is(err, process.ErrTableFull))
}
