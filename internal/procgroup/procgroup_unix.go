//go:build !windows

// Package procgroup sets up and tears down child-process groups so the
// Inspector Driver can terminate an entire ffmpeg process tree on timeout
// or cancellation rather than leaking orphaned children.
package procgroup

import (
	"os/exec"
	"syscall"
)

// Set configures cmd to start in its own process group.
func Set(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
}

// Signal delivers sig to the whole process group started for cmd.
// Must be called only after cmd.Start succeeds.
func Signal(cmd *exec.Cmd, sig syscall.Signal) error {
	pgid, err := syscall.Getpgid(cmd.Process.Pid)
	if err != nil {
		// The process may have already exited; fall back to signalling
		// the pid directly rather than failing the caller's shutdown.
		return cmd.Process.Signal(sig)
	}
	return syscall.Kill(-pgid, sig)
}

// Terminate sends SIGTERM to the group. Kill sends SIGKILL.
func Terminate(cmd *exec.Cmd) error { return Signal(cmd, syscall.SIGTERM) }
func Kill(cmd *exec.Cmd) error      { return Signal(cmd, syscall.SIGKILL) }
