package console

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// ttyPath is the controlling terminal, read when stdin is not a terminal.
const ttyPath = "/dev/tty"

// LineConfirmer asks for confirmation by reading one line of input.
type LineConfirmer struct {
	open func() (io.ReadCloser, error)
	out  io.Writer
}

// NewLineConfirmer creates a confirmer reading answers from in and writing prompts to out.
func NewLineConfirmer(in io.Reader, out io.Writer) *LineConfirmer {
	return &LineConfirmer{
		open: func() (io.ReadCloser, error) { return io.NopCloser(in), nil },
		out:  out,
	}
}

// NewTerminalConfirmer creates a confirmer that reads answers from stdin when it
// is a terminal and from the controlling terminal otherwise, so instance ids can be
// piped on stdin while the operator still confirms interactively.
func NewTerminalConfirmer(stdin *os.File, out io.Writer) *LineConfirmer {
	return &LineConfirmer{
		open: func() (io.ReadCloser, error) {
			if term.IsTerminal(int(stdin.Fd())) {
				return io.NopCloser(stdin), nil
			}
			tty, err := os.Open(ttyPath)
			if err != nil {
				return nil, fmt.Errorf("no terminal to ask for confirmation: %w", err)
			}
			return tty, nil
		},
		out: out,
	}
}

// Confirm writes prompt and reports whether the answer equals expected.
func (c *LineConfirmer) Confirm(prompt, expected string) (bool, error) {
	in, err := c.open()
	if err != nil {
		return false, err
	}
	defer in.Close()

	if _, err := fmt.Fprint(c.out, prompt); err != nil {
		return false, err
	}

	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}

	return strings.TrimRight(answer, "\r\n") == expected, nil
}
