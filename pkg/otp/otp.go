package otp

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"errors"
	"hash"
)

// Algorithm selects the hash used inside HOTP.
type Algorithm string

const (
	// AlgorithmSHA1 uses HMAC-SHA1 (default, what most authenticator apps expect).
	AlgorithmSHA1 Algorithm = "SHA1"
	// AlgorithmSHA256 uses HMAC-SHA256.
	AlgorithmSHA256 Algorithm = "SHA256"
	// AlgorithmSHA512 uses HMAC-SHA512.
	AlgorithmSHA512 Algorithm = "SHA512"
)

// Defaults and limits for code parameters.
const (
	// DefaultDigits is the code width used when none is configured.
	DefaultDigits = 6
	// DefaultPeriod is the TOTP time step in seconds used when none is configured.
	DefaultPeriod = 30
	// MinDigits and MaxDigits bound the supported code width.
	MinDigits = 4
	MaxDigits = 10
	// DefaultSecretLength is the recommended shared secret size (160 bits).
	DefaultSecretLength = 20
)

// Common errors returned by this package.
var (
	// ErrInvalidParameter indicates bad digits, period, or algorithm.
	// This is a configuration error surfaced at construction time.
	ErrInvalidParameter = errors.New("otp: invalid parameter")
	// ErrRandomSource indicates the secure random source failed during
	// secret generation. Callers must treat this as fatal; continuing
	// would silently produce a weak secret.
	ErrRandomSource = errors.New("otp: random source unavailable")
	// ErrNilVerifier indicates a nil verifier was used.
	ErrNilVerifier = errors.New("otp: verifier is nil")
)

// hasher returns the hash constructor for the algorithm, or nil if the
// algorithm is not one of the supported variants.
func (a Algorithm) hasher() func() hash.Hash {
	switch a {
	case AlgorithmSHA1:
		return sha1.New
	case AlgorithmSHA256:
		return sha256.New
	case AlgorithmSHA512:
		return sha512.New
	default:
		return nil
	}
}

// Valid reports whether a is a supported algorithm.
func (a Algorithm) Valid() bool {
	return a.hasher() != nil
}
