//go:build windows

package procgroup

import (
	"os/exec"
	"syscall"
)

// Set is a no-op on Windows; job objects would be required for true group
// termination, which is out of scope for this driver.
func Set(cmd *exec.Cmd) {}

// Signal, Terminate and Kill fall back to killing the process directly —
// os/exec has no portable SIGTERM on Windows, so Terminate and Kill behave
// identically here.
func Signal(cmd *exec.Cmd, _ syscall.Signal) error { return cmd.Process.Kill() }
func Terminate(cmd *exec.Cmd) error                { return cmd.Process.Kill() }
func Kill(cmd *exec.Cmd) error                     { return cmd.Process.Kill() }
