//go:build unix

package main

import (
	"os/exec"
	"syscall"
)

// detachDaemon starts learnlensd in its own process group so it outlives
// the CLI
func detachDaemon(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
}
