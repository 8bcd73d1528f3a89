//go:build windows

package process

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
)

// configureProcAttr renders the command line explicitly so every argument
// reaches the child verbatim. Batch scripts are routed through cmd.exe with
// quoting that neutralizes its metacharacters.
func configureProcAttr(cmd *exec.Cmd) error {
	attr := &syscall.SysProcAttr{
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP,
	}

	args := cmd.Args[1:]
	if IsBatchFile(cmd.Path) {
		interpreter := os.Getenv("ComSpec")
		if interpreter == "" {
			interpreter = `C:\Windows\System32\cmd.exe`
		}
		line, err := BatchCommandLine(interpreter, cmd.Path, args)
		if err != nil {
			return err
		}
		cmd.Path = interpreter
		attr.CmdLine = line
	} else {
		attr.CmdLine = WindowsCommandLine(cmd.Path, args)
	}

	cmd.SysProcAttr = attr
	return nil
}

// terminate kills the child. Windows has no process groups that can be
// signalled like Unix ones; grandchildren may outlive it.
func terminate(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}
