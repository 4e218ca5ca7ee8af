//go:build !unix

package sysproc

import (
	"os"
	"os/exec"
)

func shellPath() string {
	return "sh"
}

// Prepare is a no-op where process groups are unavailable.
func Prepare(cmd *exec.Cmd) {}

// Terminate sends an interrupt to the process.
func Terminate(cmd *exec.Cmd) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	return cmd.Process.Signal(os.Interrupt)
}

// Kill force-kills the process.
func Kill(cmd *exec.Cmd) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}
