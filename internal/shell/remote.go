package shell

import (
	"bytes"
	"context"
	"fmt"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// RemoteBackend runs commands over an established SSH connection instead of
// locally, so a recipe's tasks can execute on a remote host without the
// executor knowing the difference. It exists to prove the Backend interface
// is genuinely pluggable, not just a wrapper around os/exec.
type RemoteBackend struct {
	Client *ssh.Client
}

// Run implements Backend by opening one SSH session per invocation, since a
// session cannot be reused across commands.
func (b *RemoteBackend) Run(ctx context.Context, req Request) (int, error) {
	if req.WorkingDir != "" {
		if err := b.ensureRemoteDir(req.WorkingDir); err != nil {
			return -1, fmt.Errorf("preparing remote working directory: %w", err)
		}
	}

	session, err := b.Client.NewSession()
	if err != nil {
		return -1, fmt.Errorf("opening SSH session: %w", err)
	}
	defer session.Close()

	if req.Stdout != nil {
		session.Stdout = req.Stdout
	}
	if req.Stderr != nil {
		session.Stderr = req.Stderr
	}

	command := req.Command
	if req.WorkingDir != "" {
		command = fmt.Sprintf("cd %s && %s", shellQuote(req.WorkingDir), req.Command)
	}

	done := make(chan error, 1)
	go func() { done <- session.Run(command) }()

	select {
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGTERM)
		<-done
		return -1, ctx.Err()
	case err := <-done:
		if err == nil {
			return 0, nil
		}
		if exitErr, ok := err.(*ssh.ExitError); ok {
			return exitErr.ExitStatus(), nil
		}
		return -1, fmt.Errorf("running remote command: %w", err)
	}
}

// ensureRemoteDir creates the task's working directory on the remote host
// via SFTP before the command runs, so a recipe's working_dir need not
// already exist there.
func (b *RemoteBackend) ensureRemoteDir(dir string) error {
	client, err := sftp.NewClient(b.Client)
	if err != nil {
		return err
	}
	defer client.Close()
	return client.MkdirAll(dir)
}

func shellQuote(s string) string {
	var buf bytes.Buffer
	buf.WriteByte('\'')
	for _, r := range s {
		if r == '\'' {
			buf.WriteString(`'\''`)
			continue
		}
		buf.WriteRune(r)
	}
	buf.WriteByte('\'')
	return buf.String()
}
