package shell

import (
	"context"
	"fmt"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// LocalBackend runs commands through /bin/sh -c on the local machine. Each
// command gets its own process group so that a forwarded signal reaches the
// whole subtree a shell command may have spawned, not just the shell.
type LocalBackend struct {
	Shell string // defaults to "/bin/sh" when empty
}

// Run implements Backend.
func (b LocalBackend) Run(ctx context.Context, req Request) (int, error) {
	shell := b.Shell
	if shell == "" {
		shell = "/bin/sh"
	}

	cmd := exec.Command(shell, "-c", req.Command)
	cmd.Dir = req.WorkingDir
	cmd.Env = req.Env
	cmd.Stdout = req.Stdout
	cmd.Stderr = req.Stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		return -1, fmt.Errorf("starting command: %w", err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case <-ctx.Done():
		forwardSignal(cmd, syscall.SIGINT)
		<-done
		return -1, ctx.Err()
	case err := <-done:
		if err == nil {
			return 0, nil
		}
		if exitErr, ok := err.(*exec.ExitError); ok {
			return exitErr.ExitCode(), nil
		}
		return -1, fmt.Errorf("running command: %w", err)
	}
}

// forwardSignal delivers sig to the command's entire process group so that
// children spawned by the shell are reached too.
func forwardSignal(cmd *exec.Cmd, sig syscall.Signal) {
	if cmd.Process == nil {
		return
	}
	pgid, err := unix.Getpgid(cmd.Process.Pid)
	if err != nil {
		_ = cmd.Process.Signal(sig)
		return
	}
	_ = unix.Kill(-pgid, sig)
}
