package process

import (
	"fmt"
	"os/exec"
	"sync"
	"time"
)

// State is the lifecycle state of a background job.
type State int

const (
	Running State = iota
	Exited
	Killed
)

// Status is a job's state plus its exit code once it has exited.
type Status struct {
	State    State
	ExitCode int
}

func (s Status) String() string {
	switch s.State {
	case Running:
		return "Running"
	case Exited:
		return fmt.Sprintf("Exited(%d)", s.ExitCode)
	case Killed:
		return "Killed"
	default:
		return "Unknown"
	}
}

// Done reports whether the job has terminated.
func (s Status) Done() bool {
	return s.State != Running
}

// Snapshot is a copy of a job's state taken under its lock.
type Snapshot struct {
	JobID     int
	Command   string
	Dir       string
	SpawnedAt time.Time
	Status    Status

	// Output produced since the previous Query.
	NewStdout string
	NewStderr string

	// Everything buffered so far.
	Stdout string
	Stderr string

	// DroppedBytes counts output discarded because a buffer was full.
	DroppedBytes int64
}

// Summary is the short form used by List.
type Summary struct {
	JobID     int
	Command   string
	SpawnedAt time.Time
	Status    Status
}

// outputBuffer keeps the first limit bytes of a stream and counts the rest.
// Data is never moved, so read cursors into it stay valid.
type outputBuffer struct {
	data    []byte
	limit   int
	dropped int64
	cursor  int
}

func (b *outputBuffer) append(p []byte) {
	room := b.limit - len(b.data)
	if room <= 0 {
		b.dropped += int64(len(p))
		return
	}
	if len(p) > room {
		b.dropped += int64(len(p) - room)
		p = p[:room]
	}
	b.data = append(b.data, p...)
}

// unread returns the bytes after the cursor and, if advance is set, moves
// the cursor to the end.
func (b *outputBuffer) unread(advance bool) string {
	s := string(b.data[b.cursor:])
	if advance {
		b.cursor = len(b.data)
	}
	return s
}

type job struct {
	id        int
	command   string
	dir       string
	spawnedAt time.Time
	cmd       *exec.Cmd
	done      chan struct{}

	mu            sync.Mutex
	status        Status
	killRequested bool
	stdout        outputBuffer
	stderr        outputBuffer
}

func newJob(id int, command, dir string, limit int) *job {
	return &job{
		id:        id,
		command:   command,
		dir:       dir,
		spawnedAt: time.Now(),
		done:      make(chan struct{}),
		status:    Status{State: Running},
		stdout:    outputBuffer{limit: limit},
		stderr:    outputBuffer{limit: limit},
	}
}

// streamWriter feeds one of a job's buffers; exec runs one copy goroutine per stream.
type streamWriter struct {
	j   *job
	buf *outputBuffer
}

func (w streamWriter) Write(p []byte) (int, error) {
	w.j.mu.Lock()
	w.buf.append(p)
	w.j.mu.Unlock()
	return len(p), nil
}

func (j *job) snapshot(advance bool) Snapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	return Snapshot{
		JobID:        j.id,
		Command:      j.command,
		Dir:          j.dir,
		SpawnedAt:    j.spawnedAt,
		Status:       j.status,
		NewStdout:    j.stdout.unread(advance),
		NewStderr:    j.stderr.unread(advance),
		Stdout:       string(j.stdout.data),
		Stderr:       string(j.stderr.data),
		DroppedBytes: j.stdout.dropped + j.stderr.dropped,
	}
}

func (j *job) currentStatus() Status {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}
