package otp

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"time"
)

// ReplayGuard records accepted counters per principal so a code can only
// ever be consumed once. Implementations must serialize Consume across
// processes, not just goroutines; see pkg/replay for the file-backed
// default.
type ReplayGuard interface {
	// Consume atomically checks and marks (principal, counter). It returns
	// true if the counter was fresh and is now recorded, false if it was
	// already consumed. A non-nil error means freshness could not be
	// confirmed; the verifier treats that as a failure (fail closed).
	Consume(ctx context.Context, principal string, counter uint64) (bool, error)
}

// VerifierConfig holds verifier parameters. Parameters are validated once
// at construction; Verify itself never fails on configuration.
type VerifierConfig struct {
	// Digits is the code width (4-10). Default: 6
	Digits int
	// Period is the TOTP time step in seconds. Default: 30
	Period int
	// Algorithm selects the HOTP hash. Default: SHA1
	Algorithm Algorithm
	// Window is the number of counters checked on either side of the
	// current one, to tolerate clock drift. Zero means exact match only.
	Window int
	// Guard, when set, rejects replayed codes for calls that supply a
	// principal. Without a guard, replay protection is the caller's problem.
	Guard ReplayGuard
	// Logger, when set, receives operator diagnostics that distinguish
	// wrong codes from replays and persistence failures. Verify's boolean
	// result deliberately does not.
	Logger *slog.Logger
}

func (c VerifierConfig) validate() error {
	if c.Digits != 0 && (c.Digits < MinDigits || c.Digits > MaxDigits) {
		return fmt.Errorf("%w: digits must be between %d and %d, got %d",
			ErrInvalidParameter, MinDigits, MaxDigits, c.Digits)
	}
	if c.Period < 0 {
		return fmt.Errorf("%w: period must be positive, got %d", ErrInvalidParameter, c.Period)
	}
	if c.Algorithm != "" && !c.Algorithm.Valid() {
		return fmt.Errorf("%w: algorithm must be SHA1, SHA256, or SHA512, got %q",
			ErrInvalidParameter, c.Algorithm)
	}
	if c.Window < 0 {
		return fmt.Errorf("%w: window must not be negative, got %d", ErrInvalidParameter, c.Window)
	}
	return nil
}

// Verifier checks candidate TOTP codes against a shared secret.
// It is safe for concurrent use.
type Verifier struct {
	cfg VerifierConfig
}

// NewVerifier creates a verifier. The configuration is validated and an
// error is returned if invalid.
func NewVerifier(cfg VerifierConfig) (*Verifier, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if cfg.Digits == 0 {
		cfg.Digits = DefaultDigits
	}
	if cfg.Period == 0 {
		cfg.Period = DefaultPeriod
	}
	if cfg.Algorithm == "" {
		cfg.Algorithm = AlgorithmSHA1
	}

	return &Verifier{cfg: cfg}, nil
}

// Verify reports whether candidate is a valid, previously unused code for
// the secret at the given time.
//
// Wrong codes, malformed codes, replayed codes, and replay-store failures
// all collapse to false so callers cannot tell which branch rejected the
// attempt. Operator-facing detail goes to the configured Logger instead.
//
// When principal is non-empty and a guard is configured, the matched
// counter is atomically checked and recorded, so the same code is accepted
// at most once per principal even across concurrent processes. An empty
// principal skips replay checking entirely; only do that in single-attempt
// contexts.
//
// Verify may block on replay-store I/O.
func (v *Verifier) Verify(ctx context.Context, candidate string, secret []byte, at time.Time, principal string) bool {
	if v == nil {
		return false
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if ctx.Err() != nil {
		return false
	}

	cfg := v.cfg
	center, err := Counter(at, cfg.Period)
	if err != nil {
		return false
	}

	if !validFormat(candidate, cfg.Digits) {
		// Burn one HOTP computation so a malformed candidate costs the
		// same as a well-formed one that misses the whole window.
		HOTP(secret, center, cfg.Digits, cfg.Algorithm)
		v.log("verify rejected: malformed code", principal)
		return false
	}

	// Scan the full window without early exit. Counters below zero clamp
	// to zero and are still compared, keeping the work per call fixed.
	matched := false
	var matchedCounter uint64
	for offset := -cfg.Window; offset <= cfg.Window; offset++ {
		counter := center
		if offset < 0 {
			if n := uint64(-offset); n >= counter {
				counter = 0
			} else {
				counter -= n
			}
		} else {
			counter += uint64(offset)
		}

		expected, err := HOTP(secret, counter, cfg.Digits, cfg.Algorithm)
		if err != nil {
			return false
		}
		if subtle.ConstantTimeCompare([]byte(expected), []byte(candidate)) == 1 {
			matched = true
			matchedCounter = counter
		}
	}

	if !matched {
		v.log("verify rejected: no match in window", principal)
		return false
	}
	if principal == "" || cfg.Guard == nil {
		return true
	}

	fresh, err := cfg.Guard.Consume(ctx, principal, matchedCounter)
	if err != nil {
		// Freshness unknown; fail closed rather than risk a replay.
		if cfg.Logger != nil {
			cfg.Logger.Error("verify rejected: replay store failure",
				"principal", principal, "error", err)
		}
		return false
	}
	if !fresh {
		v.log("verify rejected: code already used", principal)
		return false
	}
	return true
}

// validFormat reports whether the candidate is exactly digits decimal
// characters.
func validFormat(candidate string, digits int) bool {
	if len(candidate) != digits {
		return false
	}
	for i := 0; i < len(candidate); i++ {
		if candidate[i] < '0' || candidate[i] > '9' {
			return false
		}
	}
	return true
}

func (v *Verifier) log(msg, principal string) {
	if v.cfg.Logger != nil {
		v.cfg.Logger.Info(msg, "principal", principal)
	}
}
