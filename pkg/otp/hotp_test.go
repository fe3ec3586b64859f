package otp

import (
	"errors"
	"testing"
)

// rfc4226Secret is the shared secret from RFC 4226 appendix D.
var rfc4226Secret = []byte("12345678901234567890")

// TestHOTPVectors tests the RFC 4226 appendix D test vectors
func TestHOTPVectors(t *testing.T) {
	want := []string{
		"755224", "287082", "359152", "969429", "338314",
		"254676", "287922", "162583", "399871", "520489",
	}

	for counter, wantCode := range want {
		code, err := HOTP(rfc4226Secret, uint64(counter), 6, AlgorithmSHA1)
		if err != nil {
			t.Fatalf("counter %d: unexpected error: %v", counter, err)
		}
		if code != wantCode {
			t.Errorf("counter %d: got %s, want %s", counter, code, wantCode)
		}
	}
}

// TestHOTPLeadingZeros tests that codes keep their full width
func TestHOTPLeadingZeros(t *testing.T) {
	// Scan counters until a code with a leading zero shows up; the point
	// is the width contract, not a specific counter.
	found := false
	for counter := uint64(0); counter < 200; counter++ {
		code, err := HOTP(rfc4226Secret, counter, 6, AlgorithmSHA1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("counter %d: code %q is not 6 characters", counter, code)
		}
		if code[0] == '0' {
			found = true
		}
	}
	if !found {
		t.Error("expected at least one code with a leading zero in 200 counters")
	}
}

// TestHOTPDigitWidths tests all supported digit widths
func TestHOTPDigitWidths(t *testing.T) {
	for digits := MinDigits; digits <= MaxDigits; digits++ {
		code, err := HOTP(rfc4226Secret, 0, digits, AlgorithmSHA1)
		if err != nil {
			t.Fatalf("digits %d: unexpected error: %v", digits, err)
		}
		if len(code) != digits {
			t.Errorf("digits %d: code %q has wrong width", digits, code)
		}
	}
}

// TestHOTPInvalidParameters tests configuration validation
func TestHOTPInvalidParameters(t *testing.T) {
	tests := []struct {
		name      string
		digits    int
		algorithm Algorithm
	}{
		{"digits too small", 3, AlgorithmSHA1},
		{"digits too large", 11, AlgorithmSHA1},
		{"zero digits", 0, AlgorithmSHA1},
		{"negative digits", -6, AlgorithmSHA1},
		{"unknown algorithm", 6, Algorithm("MD5")},
		{"empty algorithm", 6, Algorithm("")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := HOTP(rfc4226Secret, 0, tt.digits, tt.algorithm)
			if !errors.Is(err, ErrInvalidParameter) {
				t.Errorf("expected ErrInvalidParameter, got %v", err)
			}
		})
	}
}

// TestHOTPAlgorithmsDiffer tests that the three hash variants produce
// distinct codes for the same input
func TestHOTPAlgorithmsDiffer(t *testing.T) {
	codes := make(map[string]Algorithm)
	for _, algo := range []Algorithm{AlgorithmSHA1, AlgorithmSHA256, AlgorithmSHA512} {
		code, err := HOTP(rfc4226Secret, 1, 8, algo)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", algo, err)
		}
		if prev, ok := codes[code]; ok {
			t.Errorf("%s and %s produced the same code %s", algo, prev, code)
		}
		codes[code] = algo
	}
}
