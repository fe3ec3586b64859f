package otp

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeGuard records consumed counters in memory.
type fakeGuard struct {
	used        map[string]map[uint64]bool
	consumeErr  error
	lastCounter uint64
	calls       int
}

func newFakeGuard() *fakeGuard {
	return &fakeGuard{used: make(map[string]map[uint64]bool)}
}

func (g *fakeGuard) Consume(_ context.Context, principal string, counter uint64) (bool, error) {
	g.calls++
	g.lastCounter = counter
	if g.consumeErr != nil {
		return false, g.consumeErr
	}
	if g.used[principal] == nil {
		g.used[principal] = make(map[uint64]bool)
	}
	if g.used[principal][counter] {
		return false, nil
	}
	g.used[principal][counter] = true
	return true, nil
}

func mustVerifier(t *testing.T, cfg VerifierConfig) *Verifier {
	t.Helper()
	v, err := NewVerifier(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return v
}

func mustCode(t *testing.T, secret []byte, at time.Time, digits, period int, algo Algorithm) string {
	t.Helper()
	code, err := Generate(secret, at, digits, period, algo)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return code
}

// TestNewVerifierValidation tests configuration validation
func TestNewVerifierValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  VerifierConfig
	}{
		{"digits too small", VerifierConfig{Digits: 3}},
		{"digits too large", VerifierConfig{Digits: 11}},
		{"negative period", VerifierConfig{Period: -30}},
		{"bad algorithm", VerifierConfig{Algorithm: "MD5"}},
		{"negative window", VerifierConfig{Window: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewVerifier(tt.cfg); !errors.Is(err, ErrInvalidParameter) {
				t.Errorf("expected ErrInvalidParameter, got %v", err)
			}
		})
	}
}

// TestNewVerifierDefaults tests that the zero config gets usable defaults
func TestNewVerifierDefaults(t *testing.T) {
	v := mustVerifier(t, VerifierConfig{})

	secret := []byte("12345678901234567890")
	at := time.Unix(59, 0)
	code := mustCode(t, secret, at, DefaultDigits, DefaultPeriod, AlgorithmSHA1)

	if !v.Verify(context.Background(), code, secret, at, "") {
		t.Error("expected default-config verifier to accept a default-parameter code")
	}
}

// TestVerifyMatch tests acceptance of a correct code
func TestVerifyMatch(t *testing.T) {
	secret := []byte("12345678901234567890")
	v := mustVerifier(t, VerifierConfig{Digits: 8, Window: 1})

	at := time.Unix(59, 0)
	if !v.Verify(context.Background(), "94287082", secret, at, "") {
		t.Error("expected RFC vector code to verify")
	}
	if v.Verify(context.Background(), "00000000", secret, at, "") {
		t.Error("expected wrong code to fail")
	}
}

// TestVerifyWindowBoundary tests that window=1 tolerates one period of
// drift and window=0 does not
func TestVerifyWindowBoundary(t *testing.T) {
	secret := []byte("12345678901234567890")
	now := time.Unix(3000, 0)
	previous := now.Add(-30 * time.Second) // counter-1
	next := now.Add(30 * time.Second)      // counter+1
	twoBack := now.Add(-60 * time.Second)  // counter-2

	staleCode := mustCode(t, secret, previous, 6, 30, AlgorithmSHA1)
	aheadCode := mustCode(t, secret, next, 6, 30, AlgorithmSHA1)
	olderCode := mustCode(t, secret, twoBack, 6, 30, AlgorithmSHA1)

	windowed := mustVerifier(t, VerifierConfig{Window: 1})
	exact := mustVerifier(t, VerifierConfig{Window: 0})

	if !windowed.Verify(context.Background(), staleCode, secret, now, "") {
		t.Error("window=1 should accept a code from counter-1")
	}
	if !windowed.Verify(context.Background(), aheadCode, secret, now, "") {
		t.Error("window=1 should accept a code from counter+1")
	}
	if windowed.Verify(context.Background(), olderCode, secret, now, "") {
		t.Error("window=1 should reject a code from counter-2")
	}
	if exact.Verify(context.Background(), staleCode, secret, now, "") {
		t.Error("window=0 should reject a code from counter-1")
	}
}

// TestVerifyFormatRejection tests rejection of malformed candidates
func TestVerifyFormatRejection(t *testing.T) {
	secret := []byte("12345678901234567890")
	v := mustVerifier(t, VerifierConfig{Window: 1})
	at := time.Unix(59, 0)

	candidates := []string{
		"",
		"12345",   // too short
		"1234567", // too long
		"12a456",  // non-digit
		"12345\n", // control character
		" 23456",  // leading space
		"123456 ", // wrong length
	}

	for _, candidate := range candidates {
		if v.Verify(context.Background(), candidate, secret, at, "") {
			t.Errorf("expected %q to be rejected", candidate)
		}
	}
}

// TestVerifyReplay tests that a consumed counter cannot be replayed for
// the same principal but stays valid for others
func TestVerifyReplay(t *testing.T) {
	secret := []byte("12345678901234567890")
	guard := newFakeGuard()
	v := mustVerifier(t, VerifierConfig{Window: 1, Guard: guard})

	at := time.Unix(59, 0)
	code := mustCode(t, secret, at, 6, 30, AlgorithmSHA1)

	if !v.Verify(context.Background(), code, secret, at, "alice") {
		t.Fatal("first use should be accepted")
	}
	if v.Verify(context.Background(), code, secret, at, "alice") {
		t.Error("second use for the same principal should be rejected")
	}
	if !v.Verify(context.Background(), code, secret, at, "bob") {
		t.Error("same code for a different principal should be accepted")
	}
}

// TestVerifyReplayCounterIdentity tests that the guard sees the counter
// the code actually matched, not the center counter
func TestVerifyReplayCounterIdentity(t *testing.T) {
	secret := []byte("12345678901234567890")
	guard := newFakeGuard()
	v := mustVerifier(t, VerifierConfig{Window: 1, Guard: guard})

	now := time.Unix(3000, 0) // counter 100
	stale := mustCode(t, secret, now.Add(-30*time.Second), 6, 30, AlgorithmSHA1)

	if !v.Verify(context.Background(), stale, secret, now, "alice") {
		t.Fatal("expected stale-but-windowed code to be accepted")
	}
	if guard.lastCounter != 99 {
		t.Errorf("guard saw counter %d, want 99", guard.lastCounter)
	}
}

// TestVerifyGuardFailureFailsClosed tests that persistence failures reject
func TestVerifyGuardFailureFailsClosed(t *testing.T) {
	secret := []byte("12345678901234567890")
	guard := newFakeGuard()
	guard.consumeErr = errors.New("disk on fire")
	v := mustVerifier(t, VerifierConfig{Window: 1, Guard: guard})

	at := time.Unix(59, 0)
	code := mustCode(t, secret, at, 6, 30, AlgorithmSHA1)

	if v.Verify(context.Background(), code, secret, at, "alice") {
		t.Error("expected failure when the guard cannot confirm freshness")
	}
}

// TestVerifyNoPrincipalSkipsGuard tests that empty principals bypass the guard
func TestVerifyNoPrincipalSkipsGuard(t *testing.T) {
	secret := []byte("12345678901234567890")
	guard := newFakeGuard()
	v := mustVerifier(t, VerifierConfig{Window: 1, Guard: guard})

	at := time.Unix(59, 0)
	code := mustCode(t, secret, at, 6, 30, AlgorithmSHA1)

	if !v.Verify(context.Background(), code, secret, at, "") {
		t.Fatal("expected acceptance without principal")
	}
	if !v.Verify(context.Background(), code, secret, at, "") {
		t.Error("expected repeat acceptance without principal")
	}
	if guard.calls != 0 {
		t.Errorf("guard consulted %d times, want 0", guard.calls)
	}
}

// TestVerifyNoGuardMatchIsEnough tests cryptographic match without a guard
func TestVerifyNoGuardMatchIsEnough(t *testing.T) {
	secret := []byte("12345678901234567890")
	v := mustVerifier(t, VerifierConfig{Window: 1})

	at := time.Unix(59, 0)
	code := mustCode(t, secret, at, 6, 30, AlgorithmSHA1)

	if !v.Verify(context.Background(), code, secret, at, "alice") {
		t.Error("expected acceptance when no guard is configured")
	}
}

// TestVerifyEarlyCounterClamp tests windows that reach below counter zero
func TestVerifyEarlyCounterClamp(t *testing.T) {
	secret := []byte("12345678901234567890")
	v := mustVerifier(t, VerifierConfig{Window: 2})

	// Center counter is 0; offsets -2 and -1 clamp to 0.
	at := time.Unix(10, 0)
	code := mustCode(t, secret, at, 6, 30, AlgorithmSHA1)

	if !v.Verify(context.Background(), code, secret, at, "") {
		t.Error("expected code at counter 0 to verify with a clamped window")
	}
}

// TestVerifyNilAndCancelled tests nil receiver and cancelled context
func TestVerifyNilAndCancelled(t *testing.T) {
	var nilVerifier *Verifier
	if nilVerifier.Verify(context.Background(), "123456", []byte("x"), time.Now(), "") {
		t.Error("nil verifier should reject")
	}

	secret := []byte("12345678901234567890")
	v := mustVerifier(t, VerifierConfig{Window: 1})
	at := time.Unix(59, 0)
	code := mustCode(t, secret, at, 6, 30, AlgorithmSHA1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if v.Verify(ctx, code, secret, at, "") {
		t.Error("cancelled context should reject")
	}
}
