package pam

import (
	"context"
	"errors"
)

// Session is one transaction against the host PAM stack.
type Session interface {
	Authenticate(ctx context.Context, password string) error
	Close() error
}

// SessionOpener creates host PAM sessions for a service/principal pair.
type SessionOpener interface {
	Open(ctx context.Context, service, principal string) (Session, error)
}

var (
	errStackUnavailable = errors.New("pam: host stack unavailable; requires cgo build with PAM support")
	stackSessionOpener  SessionOpener
)

// FirstFactor validates a principal's password against the host PAM stack.
// It covers the password leg of a two-factor login; SecondFactor covers
// the TOTP leg.
type FirstFactor struct {
	service string
	opener  SessionOpener
}

// NewFirstFactor creates a first-factor authenticator for the named PAM
// service. A nil opener selects the cgo-backed host stack implementation.
func NewFirstFactor(service string, opener SessionOpener) (*FirstFactor, error) {
	if service == "" {
		return nil, errors.New("pam: service name must not be empty")
	}
	if opener == nil {
		if stackSessionOpener == nil {
			return nil, errStackUnavailable
		}
		opener = stackSessionOpener
	}
	return &FirstFactor{service: service, opener: opener}, nil
}

// Authenticate validates the principal/password pair, including account
// management checks, against the configured PAM service.
func (f *FirstFactor) Authenticate(ctx context.Context, principal, password string) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if principal == "" {
		return errors.New("pam: principal must not be empty")
	}
	if password == "" {
		return errors.New("pam: password must not be empty")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	session, err := f.opener.Open(ctx, f.service, principal)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := session.Close(); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
	}()

	return session.Authenticate(ctx, password)
}
