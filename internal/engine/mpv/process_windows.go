//go:build windows

package mpv

import (
	"os/exec"
	"syscall"
)

// setupProcess puts mpv in its own process group so a console interrupt reaches only us
func setupProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP,
	}
}
