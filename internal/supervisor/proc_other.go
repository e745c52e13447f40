//go:build windows

package supervisor

import "os/exec"

func setProcessGroup(*exec.Cmd) {}

// Windows has no SIGTERM, so a graceful stop is a kill.
func terminate(cmd *exec.Cmd) error {
	return cmd.Process.Kill()
}

func kill(cmd *exec.Cmd) error {
	return cmd.Process.Kill()
}
