package ssh

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/ssh"
)

// Run executes cmd on the remote host, streaming its output. A command that ran
// and exited non-zero returns its exit code and a nil error.
func (c *Client) Run(ctx context.Context, cmd string, stdout, stderr io.Writer) (int, error) {
	startTime := time.Now()
	log.Debug().Str("host", c.config.Host).Str("command", cmd).Msg("executing command")

	client, err := c.getClient()
	if err != nil {
		return -1, err
	}

	session, err := client.NewSession()
	if err != nil {
		return -1, &TransportError{Op: "exec", Err: fmt.Errorf("failed to create session: %w", err)}
	}
	defer session.Close()

	session.Stdout = stdout
	session.Stderr = stderr

	doneChan := make(chan error, 1)
	go func() {
		doneChan <- session.Run(cmd)
	}()

	var execErr error
	select {
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGTERM)
		time.Sleep(100 * time.Millisecond)
		_ = session.Signal(ssh.SIGKILL)
		return -1, &TransportError{Op: "exec", Err: ctx.Err()}
	case execErr = <-doneChan:
	}

	log.Debug().
		Str("host", c.config.Host).
		Str("command", cmd).
		Dur("duration", time.Since(startTime)).
		Err(execErr).
		Msg("command completed")

	if execErr == nil {
		return 0, nil
	}

	var exitErr *ssh.ExitError
	if errors.As(execErr, &exitErr) {
		return exitErr.ExitStatus(), nil
	}
	return -1, &TransportError{Op: "exec", Err: execErr}
}
