//go:build !windows

package mpv

import (
	"os/exec"
	"syscall"
)

// setupProcess puts mpv in its own process group so a terminal interrupt reaches only us
func setupProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
}
