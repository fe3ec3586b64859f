package pam

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// ErrNoResponse indicates the user gave no answer to a prompt.
var ErrNoResponse = errors.New("pam: no response from user")

// Conversation is the user-facing side of an authentication attempt: one
// masked prompt plus informational and error messages. It mirrors the
// conversation calls a PAM module makes on the host stack.
type Conversation interface {
	// Prompt asks the user for a line of input without echoing it.
	Prompt(msg string) (string, error)
	// Info shows an informational message.
	Info(msg string) error
	// Error shows an error message.
	Error(msg string) error
}

// TerminalConversation is a Conversation on a terminal. Prompted input is
// read with echo disabled when In is a TTY; otherwise a plain line is read,
// which keeps pam_exec-style pipe invocations working.
type TerminalConversation struct {
	In  *os.File
	Out *os.File

	// reader buffers non-TTY input across prompts.
	reader *bufio.Reader
}

var _ Conversation = (*TerminalConversation)(nil)

// NewTerminalConversation returns a conversation on stdin/stderr. Messages
// go to stderr so prompts do not mix with command output.
func NewTerminalConversation() *TerminalConversation {
	return &TerminalConversation{In: os.Stdin, Out: os.Stderr}
}

// Prompt asks for a masked line of input.
func (c *TerminalConversation) Prompt(msg string) (string, error) {
	if _, err := fmt.Fprint(c.Out, msg); err != nil {
		return "", err
	}

	fd := int(c.In.Fd())
	if term.IsTerminal(fd) {
		line, err := term.ReadPassword(fd)
		fmt.Fprintln(c.Out)
		if err != nil {
			return "", err
		}
		if len(line) == 0 {
			return "", ErrNoResponse
		}
		return string(line), nil
	}

	if c.reader == nil {
		c.reader = bufio.NewReader(c.In)
	}
	line, err := c.reader.ReadString('\n')
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		if err != nil {
			return "", err
		}
		return "", ErrNoResponse
	}
	return line, nil
}

// Info writes an informational message.
func (c *TerminalConversation) Info(msg string) error {
	_, err := fmt.Fprintln(c.Out, msg)
	return err
}

// Error writes an error message.
func (c *TerminalConversation) Error(msg string) error {
	_, err := fmt.Fprintln(c.Out, msg)
	return err
}
