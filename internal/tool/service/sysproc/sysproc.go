// Package sysproc holds the platform-specific parts of running and stopping
// shell commands: process groups and termination signals.
package sysproc

import "os/exec"

// ShellCommand builds the command line used to run a shell snippet.
func ShellCommand(command string) *exec.Cmd {
	cmd := exec.Command(shellPath(), "-c", command)
	Prepare(cmd)
	return cmd
}
