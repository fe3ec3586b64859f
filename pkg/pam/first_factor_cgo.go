//go:build cgo

package pam

import (
	"context"
	"errors"
	"fmt"
	"sync"

	pam "github.com/msteinert/pam/v2"
)

var _ SessionOpener = stackOpener{}

func init() {
	stackSessionOpener = stackOpener{}
}

// stackOpener opens transactions against the host PAM stack.
type stackOpener struct{}

func (stackOpener) Open(ctx context.Context, service, principal string) (Session, error) {
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	sess := &stackSession{}
	txn, err := pam.StartFunc(service, principal, sess.conversation)
	if err != nil {
		return nil, err
	}
	sess.txn = txn
	return sess, nil
}

type stackSession struct {
	txn      *pam.Transaction
	mu       sync.Mutex
	password string
}

// conversation answers the stack's echo-off prompt with the stored
// password. Anything else is unexpected for a password-only service.
func (s *stackSession) conversation(style pam.Style, msg string) (string, error) {
	switch style {
	case pam.PromptEchoOff:
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.password == "" {
			return "", errors.New("pam: password not set")
		}
		return s.password, nil
	case pam.PromptEchoOn:
		return "", fmt.Errorf("pam: unexpected echo-on prompt: %s", msg)
	case pam.ErrorMsg, pam.TextInfo:
		return "", nil
	default:
		return "", fmt.Errorf("pam: unsupported conversation style: %d", style)
	}
}

func (s *stackSession) Authenticate(ctx context.Context, password string) error {
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return err
		}
	}

	s.setPassword(password)
	defer s.setPassword("")

	if err := s.txn.Authenticate(pam.Silent); err != nil {
		return err
	}
	return s.txn.AcctMgmt(pam.Silent)
}

func (s *stackSession) Close() error {
	return s.txn.End()
}

func (s *stackSession) setPassword(password string) {
	s.mu.Lock()
	s.password = password
	s.mu.Unlock()
}
