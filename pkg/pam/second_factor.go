package pam

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jhahn/pam-totp/pkg/keystore"
	"github.com/jhahn/pam-totp/pkg/otp"
)

// Errors returned by SecondFactor.Authenticate.
var (
	// ErrAuthFailed indicates the code was rejected. Wrong, malformed, and
	// replayed codes are not distinguished.
	ErrAuthFailed = errors.New("pam: authentication failed")
	// ErrSecretUnavailable indicates the principal's secret could not be
	// loaded. This is "cannot authenticate", distinct from "wrong code".
	ErrSecretUnavailable = errors.New("pam: secret unavailable")
	// ErrNotEnrolled indicates the principal has no enrolled secret.
	ErrNotEnrolled = fmt.Errorf("%w: not enrolled", ErrSecretUnavailable)
)

// SecondFactorConfig configures the TOTP second-factor flow.
type SecondFactorConfig struct {
	// Store supplies per-principal secrets (required).
	Store keystore.SecretStore
	// Verifier checks candidate codes (required).
	Verifier *otp.Verifier
	// Conversation prompts the user (required).
	Conversation Conversation
	// PromptMsg is shown when asking for the code.
	// Default: "Verification code: "
	PromptMsg string
	// AllowMissing makes authentication succeed for principals with no
	// enrolled secret, so the factor can be rolled out gradually.
	AllowMissing bool
	// Logger receives operator diagnostics. Silent when nil.
	Logger *slog.Logger
}

func (c SecondFactorConfig) validate() error {
	if c.Store == nil {
		return errors.New("pam: secret store must not be nil")
	}
	if c.Verifier == nil {
		return errors.New("pam: verifier must not be nil")
	}
	if c.Conversation == nil {
		return errors.New("pam: conversation must not be nil")
	}
	return nil
}

// SecondFactor runs the TOTP leg of a two-factor authentication: load the
// principal's secret, prompt for a code, and verify it with replay
// protection.
type SecondFactor struct {
	cfg SecondFactorConfig
}

// NewSecondFactor creates a second-factor authenticator. The configuration
// is validated and an error is returned if invalid.
func NewSecondFactor(cfg SecondFactorConfig) (*SecondFactor, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.PromptMsg == "" {
		cfg.PromptMsg = "Verification code: "
	}
	return &SecondFactor{cfg: cfg}, nil
}

// Authenticate prompts the principal for a TOTP code and verifies it.
// It returns nil on acceptance, ErrAuthFailed on rejection, and
// ErrSecretUnavailable when the secret could not be loaded. The secret is
// zeroed before returning.
func (s *SecondFactor) Authenticate(ctx context.Context, principal string) error {
	if s == nil {
		return ErrAuthFailed
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if principal == "" {
		return errors.New("pam: principal must not be empty")
	}

	secret, err := s.cfg.Store.Load(ctx, principal)
	if errors.Is(err, keystore.ErrNotFound) {
		if s.cfg.AllowMissing {
			s.log("principal not enrolled, allowed through", principal)
			return nil
		}
		return ErrNotEnrolled
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSecretUnavailable, err)
	}
	defer otp.Zero(secret)

	code, err := s.cfg.Conversation.Prompt(s.cfg.PromptMsg)
	if err != nil {
		s.log("prompt failed", principal)
		return ErrAuthFailed
	}

	if !s.cfg.Verifier.Verify(ctx, code, secret, time.Now(), principal) {
		s.cfg.Conversation.Error("Verification failed.")
		return ErrAuthFailed
	}
	return nil
}

func (s *SecondFactor) log(msg, principal string) {
	if s.cfg.Logger != nil {
		s.cfg.Logger.Info(msg, "principal", principal)
	}
}
