package otp

import (
	"testing"
	"time"

	pquerna "github.com/pquerna/otp"
	pquernatotp "github.com/pquerna/otp/totp"

	b32 "github.com/jhahn/pam-totp/pkg/base32"
)

// TestGenerateAgainstOracle cross-checks the generator against an
// independent RFC 6238 implementation across algorithms, digit widths,
// and times.
func TestGenerateAgainstOracle(t *testing.T) {
	algorithms := map[Algorithm]pquerna.Algorithm{
		AlgorithmSHA1:   pquerna.AlgorithmSHA1,
		AlgorithmSHA256: pquerna.AlgorithmSHA256,
		AlgorithmSHA512: pquerna.AlgorithmSHA512,
	}
	times := []int64{59, 1111111109, 1234567890, 2000000000}
	secret := []byte("12345678901234567890")
	encoded := b32.Encode(secret)

	for ours, theirs := range algorithms {
		for _, digits := range []int{6, 7, 8} {
			for _, unix := range times {
				at := time.Unix(unix, 0)

				got, err := Generate(secret, at, digits, 30, ours)
				if err != nil {
					t.Fatalf("%s/%d/%d: unexpected error: %v", ours, digits, unix, err)
				}

				want, err := pquernatotp.GenerateCodeCustom(encoded, at, pquernatotp.ValidateOpts{
					Period:    30,
					Digits:    pquerna.Digits(digits),
					Algorithm: theirs,
				})
				if err != nil {
					t.Fatalf("%s/%d/%d: oracle error: %v", ours, digits, unix, err)
				}

				if got != want {
					t.Errorf("%s/%d/%d: got %s, oracle says %s", ours, digits, unix, got, want)
				}
			}
		}
	}
}
