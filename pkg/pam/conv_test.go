package pam

import (
	"errors"
	"os"
	"strings"
	"testing"
)

// pipeConversation builds a TerminalConversation whose input is a pipe
// carrying the given lines, as in pam_exec-style invocations.
func pipeConversation(t *testing.T, input string) (*TerminalConversation, *os.File) {
	t.Helper()

	inR, inW, err := os.Pipe()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	outR, outW, err := os.Pipe()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() {
		inR.Close()
		outR.Close()
		outW.Close()
	})

	if _, err := inW.WriteString(input); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	inW.Close()

	return &TerminalConversation{In: inR, Out: outW}, outR
}

// TestPromptFromPipe tests non-TTY prompt input
func TestPromptFromPipe(t *testing.T) {
	conv, out := pipeConversation(t, "123456\n")

	code, err := conv.Prompt("Verification code: ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if code != "123456" {
		t.Errorf("got %q, want 123456", code)
	}

	buf := make([]byte, 64)
	n, _ := out.Read(buf)
	if !strings.Contains(string(buf[:n]), "Verification code: ") {
		t.Errorf("prompt text not written: %q", buf[:n])
	}
}

// TestPromptCarriageReturn tests CRLF input from Windows-side terminals
func TestPromptCarriageReturn(t *testing.T) {
	conv, _ := pipeConversation(t, "654321\r\n")

	code, err := conv.Prompt("code: ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if code != "654321" {
		t.Errorf("got %q, want 654321", code)
	}
}

// TestPromptNoResponse tests the no-response sentinel
func TestPromptNoResponse(t *testing.T) {
	conv, _ := pipeConversation(t, "\n")

	if _, err := conv.Prompt("code: "); !errors.Is(err, ErrNoResponse) {
		t.Errorf("expected ErrNoResponse, got %v", err)
	}
}

// TestInfoAndError test message output
func TestInfoAndError(t *testing.T) {
	conv, out := pipeConversation(t, "")

	if err := conv.Info("enrollment required"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := conv.Error("verification failed"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	buf := make([]byte, 128)
	n, _ := out.Read(buf)
	got := string(buf[:n])
	if !strings.Contains(got, "enrollment required") || !strings.Contains(got, "verification failed") {
		t.Errorf("messages not written: %q", got)
	}
}
