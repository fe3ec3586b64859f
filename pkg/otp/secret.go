package otp

import (
	"crypto/rand"
	"fmt"
)

// GenerateSecret draws a new shared secret from the system's secure random
// source. A non-positive length selects the recommended 20 bytes (160 bits).
//
// A failure of the random source is returned as ErrRandomSource and must be
// treated as fatal by the caller: a short or predictable secret is a
// security failure, not a retryable condition.
func GenerateSecret(length int) ([]byte, error) {
	if length <= 0 {
		length = DefaultSecretLength
	}
	secret := make([]byte, length)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRandomSource, err)
	}
	return secret, nil
}

// Zero overwrites a secret in place. This is best-effort only: the garbage
// collector may already have copied the backing array, so callers should
// also keep secret lifetimes short (load, use, drop the reference).
func Zero(secret []byte) {
	for i := range secret {
		secret[i] = 0
	}
}
