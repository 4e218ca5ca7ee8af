package shell

import (
	"fmt"
	"strings"

	"github.com/hewenyu/OperationKernel/internal/tool"
	"github.com/hewenyu/OperationKernel/internal/tool/service/process"
)

// -- bash --

type BashRequest struct {
	Command     string `json:"command"`
	WorkingDir  string `json:"working_dir,omitempty"`
	TimeoutMs   int    `json:"timeout_ms,omitempty"`
	Background  bool   `json:"background,omitempty"`
	Description string `json:"description,omitempty"`
}

func (r *BashRequest) Validate() error {
	if strings.TrimSpace(r.Command) == "" {
		return &CommandRequiredError{}
	}
	if r.TimeoutMs < 0 {
		return &NegativeTimeoutError{Value: r.TimeoutMs}
	}
	return nil
}

func (r *BashRequest) String() string {
	if r.Description != "" {
		return r.Description
	}
	if r.Background {
		return fmt.Sprintf("$ %s &", r.Command)
	}
	return fmt.Sprintf("$ %s", r.Command)
}

// BashResponse covers both modes: a finished command, or a spawned job (JobID > 0).
type BashResponse struct {
	Command    string
	WorkingDir string

	Stdout    string
	Stderr    string
	ExitCode  int
	TimedOut  bool
	TimeoutMs int
	Truncated bool

	JobID int
}

func (r *BashResponse) LLMContent() string {
	if r.JobID > 0 {
		return fmt.Sprintf("Started background job %d: %s\nUse bash_output with job_id=%d to read its output and kill_shell to stop it.",
			r.JobID, r.Command, r.JobID)
	}

	var b strings.Builder
	b.WriteString(r.Stdout)
	if r.Stderr != "" {
		if r.Stdout != "" && !strings.HasSuffix(r.Stdout, "\n") {
			b.WriteByte('\n')
		}
		b.WriteString("--- STDERR ---\n")
		b.WriteString(r.Stderr)
	}
	if r.Stdout == "" && r.Stderr == "" {
		b.WriteString("(No output)")
	}
	if !strings.HasSuffix(b.String(), "\n") {
		b.WriteByte('\n')
	}
	if r.Truncated {
		b.WriteString("[output truncated]\n")
	}
	if r.TimedOut {
		fmt.Fprintf(&b, "Command timed out after %dms and was terminated.\n", r.TimeoutMs)
	}
	fmt.Fprintf(&b, "Exit code: %d", r.ExitCode)
	return b.String()
}

func (r *BashResponse) Display() tool.ToolDisplay {
	if r.JobID > 0 {
		return tool.JobDisplay{JobID: r.JobID, Command: r.Command, Status: process.Status{State: process.Running}.String()}
	}
	return tool.ShellDisplay{Command: r.Command, WorkingDir: r.WorkingDir, ExitCode: r.ExitCode, TimedOut: r.TimedOut}
}

// -- bash_output --

type OutputRequest struct {
	JobID  int    `json:"job_id"`
	Filter string `json:"filter,omitempty"`
}

func (r *OutputRequest) Validate() error {
	if r.JobID <= 0 {
		return &JobIDRequiredError{Value: r.JobID}
	}
	return nil
}

func (r *OutputRequest) String() string {
	return fmt.Sprintf("Reading output of job %d", r.JobID)
}

type OutputResponse struct {
	Snapshot process.Snapshot
	Stdout   string // new stdout, filtered when a filter was given
	Stderr   string
	Filtered bool
}

func (r *OutputResponse) LLMContent() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Job %d: %s\nStatus: %s\n", r.Snapshot.JobID, r.Snapshot.Command, r.Snapshot.Status)
	if r.Stdout != "" {
		b.WriteString("--- STDOUT (new) ---\n")
		b.WriteString(r.Stdout)
		if !strings.HasSuffix(r.Stdout, "\n") {
			b.WriteByte('\n')
		}
	}
	if r.Stderr != "" {
		b.WriteString("--- STDERR (new) ---\n")
		b.WriteString(r.Stderr)
		if !strings.HasSuffix(r.Stderr, "\n") {
			b.WriteByte('\n')
		}
	}
	if r.Stdout == "" && r.Stderr == "" {
		if r.Filtered {
			b.WriteString("(No new output matched the filter)\n")
		} else {
			b.WriteString("(No new output)\n")
		}
	}
	if r.Snapshot.DroppedBytes > 0 {
		fmt.Fprintf(&b, "[%d bytes dropped: output buffer full]\n", r.Snapshot.DroppedBytes)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func (r *OutputResponse) Display() tool.ToolDisplay {
	return tool.JobDisplay{JobID: r.Snapshot.JobID, Command: r.Snapshot.Command, Status: r.Snapshot.Status.String()}
}

// -- kill_shell --

type KillRequest struct {
	JobID int `json:"job_id"`
}

func (r *KillRequest) Validate() error {
	if r.JobID <= 0 {
		return &JobIDRequiredError{Value: r.JobID}
	}
	return nil
}

func (r *KillRequest) String() string {
	return fmt.Sprintf("Killing job %d", r.JobID)
}

type KillResponse struct {
	JobID          int
	Command        string
	Status         process.Status
	AlreadyStopped bool
}

func (r *KillResponse) LLMContent() string {
	if r.AlreadyStopped {
		return fmt.Sprintf("Job %d had already finished: %s", r.JobID, r.Status)
	}
	return fmt.Sprintf("Job %d terminated: %s", r.JobID, r.Status)
}

func (r *KillResponse) Display() tool.ToolDisplay {
	return tool.JobDisplay{JobID: r.JobID, Command: r.Command, Status: r.Status.String()}
}
