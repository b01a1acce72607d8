// Package ssh runs commands on instances over SSH.
package ssh

import (
	"context"
	"io"
)

// Transport runs commands on one remote host.
type Transport interface {
	// Connect establishes the SSH connection, through the jump host if one is configured.
	Connect(ctx context.Context) error

	// Disconnect closes the connection and releases all resources.
	Disconnect() error

	// Run executes cmd and streams its output to stdout and stderr. It returns the
	// exit status of the command; an error means the command could not be run or
	// did not report a status.
	Run(ctx context.Context, cmd string, stdout, stderr io.Writer) (int, error)
}

// TransportError represents an error from the transport layer.
type TransportError struct {
	// Op is the operation that failed (e.g., "connect", "exec")
	Op string

	// Err is the underlying error
	Err error

	// IsAuthError indicates if the error is related to authentication
	IsAuthError bool
}

func (e *TransportError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
