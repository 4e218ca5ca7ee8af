// Package process runs shell commands in the background, buffers their
// output and terminates them on request or at session end.
package process

import (
	"context"
	"errors"
	"os/exec"
	"sort"
	"sync"
	"time"

	"github.com/hewenyu/OperationKernel/internal/tool/service/sysproc"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Options configures a Manager.
type Options struct {
	// MaxRunning caps concurrently running jobs; Spawn returns ErrTableFull beyond it.
	MaxRunning int
	// BufferBytes bounds each of a job's stdout and stderr buffers.
	BufferBytes int
	// Grace is the wait between SIGTERM and SIGKILL.
	Grace  time.Duration
	Logger *zap.Logger
}

// Manager owns the job table. Job ids start at 1 and are never reused.
type Manager struct {
	opts Options

	// start launches a prepared command; replaced in tests.
	start func(*exec.Cmd) error

	mu       sync.Mutex
	jobs     map[int]*job
	nextID   int
	starting int
	closed   bool
}

// NewManager creates a Manager, filling zero options with defaults.
func NewManager(opts Options) *Manager {
	if opts.MaxRunning <= 0 {
		opts.MaxRunning = 32
	}
	if opts.BufferBytes <= 0 {
		opts.BufferBytes = 1 << 20
	}
	if opts.Grace <= 0 {
		opts.Grace = 2 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Manager{
		opts:   opts,
		start:  (*exec.Cmd).Start,
		jobs:   make(map[int]*job),
		nextID: 1,
	}
}

// Spawn starts command through the shell in dir, which the caller must
// already have validated, and returns the new job id. The table lock is not
// held while the process starts; an id whose start fails stays retired.
func (m *Manager) Spawn(command, dir string) (int, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return 0, ErrClosed
	}
	if m.runningLocked()+m.starting >= m.opts.MaxRunning {
		m.mu.Unlock()
		return 0, ErrTableFull
	}
	id := m.nextID
	m.nextID++
	m.starting++
	m.mu.Unlock()

	j := newJob(id, command, dir, m.opts.BufferBytes)
	cmd := sysproc.ShellCommand(command)
	cmd.Dir = dir
	cmd.Stdin = nil
	cmd.Stdout = streamWriter{j: j, buf: &j.stdout}
	cmd.Stderr = streamWriter{j: j, buf: &j.stderr}
	cmd.WaitDelay = m.opts.Grace
	j.cmd = cmd

	err := m.start(cmd)
	if err == nil {
		go m.wait(j)
	}

	m.mu.Lock()
	m.starting--
	closed := m.closed
	if err == nil && !closed {
		m.jobs[id] = j
	}
	m.mu.Unlock()

	if err != nil {
		return 0, &SpawnError{Command: command, Cause: err}
	}
	if closed {
		// Shutdown ran while the process was starting and could not see it.
		ctx, cancel := context.WithTimeout(context.Background(), 2*m.opts.Grace)
		defer cancel()
		_, _ = m.terminate(ctx, j)
		return 0, ErrClosed
	}

	m.opts.Logger.Info("background job started",
		zap.Int("job_id", id),
		zap.String("command", command),
		zap.Int("pid", cmd.Process.Pid))
	return id, nil
}

func (m *Manager) wait(j *job) {
	err := j.cmd.Wait()

	code := 0
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code = exitErr.ExitCode()
	} else if err != nil && !errors.Is(err, exec.ErrWaitDelay) {
		code = -1
	}

	j.mu.Lock()
	if j.killRequested {
		j.status = Status{State: Killed, ExitCode: code}
	} else {
		j.status = Status{State: Exited, ExitCode: code}
	}
	status := j.status
	j.mu.Unlock()
	close(j.done)

	m.opts.Logger.Info("background job finished",
		zap.Int("job_id", j.id),
		zap.Stringer("status", status))
}

// Query returns the job's status and the output produced since the previous
// Query. The cursor advance happens under the job lock, so concurrent
// queries split the new output between them without losing any.
func (m *Manager) Query(id int) (Snapshot, error) {
	j, err := m.get(id)
	if err != nil {
		return Snapshot{}, err
	}
	return j.snapshot(true), nil
}

// Peek is Query without advancing the cursor.
func (m *Manager) Peek(id int) (Snapshot, error) {
	j, err := m.get(id)
	if err != nil {
		return Snapshot{}, err
	}
	return j.snapshot(false), nil
}

// Wait blocks until the job terminates or ctx is done.
func (m *Manager) Wait(ctx context.Context, id int) (Status, error) {
	j, err := m.get(id)
	if err != nil {
		return Status{}, err
	}
	select {
	case <-j.done:
		return j.currentStatus(), nil
	case <-ctx.Done():
		return j.currentStatus(), ctx.Err()
	}
}

// Kill terminates a running job: SIGTERM to its process group, then SIGKILL
// after the grace period. It returns once the process is gone, with status
// Killed. Killing a job that already finished is a no-op returning its status.
func (m *Manager) Kill(ctx context.Context, id int) (Status, error) {
	j, err := m.get(id)
	if err != nil {
		return Status{}, err
	}
	return m.terminate(ctx, j)
}

func (m *Manager) terminate(ctx context.Context, j *job) (Status, error) {
	j.mu.Lock()
	if j.status.Done() {
		s := j.status
		j.mu.Unlock()
		return s, nil
	}
	alreadyRequested := j.killRequested
	j.killRequested = true
	j.mu.Unlock()

	if !alreadyRequested {
		m.opts.Logger.Info("terminating background job", zap.Int("job_id", j.id))
		_ = sysproc.Terminate(j.cmd)
	}

	timer := time.NewTimer(m.opts.Grace)
	defer timer.Stop()
	select {
	case <-j.done:
		return j.currentStatus(), nil
	case <-timer.C:
		m.opts.Logger.Warn("job ignored SIGTERM, killing", zap.Int("job_id", j.id))
		_ = sysproc.Kill(j.cmd)
	case <-ctx.Done():
		return j.currentStatus(), ctx.Err()
	}

	select {
	case <-j.done:
		return j.currentStatus(), nil
	case <-ctx.Done():
		return j.currentStatus(), ctx.Err()
	}
}

// Reap kills the job if needed and forgets it. Its id stays retired.
func (m *Manager) Reap(ctx context.Context, id int) error {
	j, err := m.get(id)
	if err != nil {
		return err
	}
	if _, err := m.terminate(ctx, j); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.jobs, id)
	m.mu.Unlock()
	return nil
}

// List returns every job still in the table, ordered by id.
func (m *Manager) List() []Summary {
	m.mu.Lock()
	jobs := make([]*job, 0, len(m.jobs))
	for _, j := range m.jobs {
		jobs = append(jobs, j)
	}
	m.mu.Unlock()

	sort.Slice(jobs, func(a, b int) bool { return jobs[a].id < jobs[b].id })
	out := make([]Summary, len(jobs))
	for i, j := range jobs {
		out[i] = Summary{JobID: j.id, Command: j.command, SpawnedAt: j.spawnedAt, Status: j.currentStatus()}
	}
	return out
}

// Shutdown ends the session: no new jobs are accepted, every running job is
// killed in parallel and the table is emptied.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	jobs := make([]*job, 0, len(m.jobs))
	for _, j := range m.jobs {
		jobs = append(jobs, j)
	}
	m.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, j := range jobs {
		g.Go(func() error {
			_, err := m.terminate(gctx, j)
			return err
		})
	}
	err := g.Wait()

	m.mu.Lock()
	for _, j := range jobs {
		delete(m.jobs, j.id)
	}
	m.mu.Unlock()
	return err
}

func (m *Manager) get(id int) (*job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, &UnknownJobError{ID: id}
	}
	return j, nil
}

func (m *Manager) runningLocked() int {
	n := 0
	for _, j := range m.jobs {
		if !j.currentStatus().Done() {
			n++
		}
	}
	return n
}
