//go:build !windows

package process

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
)

// configureProcAttr puts the child in its own process group so that the
// whole tree can be killed on timeout. Arguments go to execve untouched.
func configureProcAttr(cmd *exec.Cmd) error {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
	return nil
}

// terminate kills the process group led by cmd, falling back to the single
// process if the group is gone.
func terminate(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	pid := cmd.Process.Pid
	if err := syscall.Kill(-pid, syscall.SIGKILL); err != nil {
		if err2 := cmd.Process.Kill(); err2 != nil && !errors.Is(err2, os.ErrProcessDone) {
			return err2
		}
	}
	return nil
}
