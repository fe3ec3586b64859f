package otp

import (
	"crypto/hmac"
	"encoding/binary"
	"fmt"
)

// HOTP computes an RFC 4226 one-time code from a shared secret and a
// 64-bit counter. The counter is rendered as 8 bytes big-endian, run
// through HMAC with the selected hash, dynamically truncated to a 31-bit
// value, and reduced modulo 10^digits. Leading zeros are preserved.
func HOTP(secret []byte, counter uint64, digits int, algorithm Algorithm) (string, error) {
	if digits < MinDigits || digits > MaxDigits {
		return "", fmt.Errorf("%w: digits must be between %d and %d, got %d",
			ErrInvalidParameter, MinDigits, MaxDigits, digits)
	}
	h := algorithm.hasher()
	if h == nil {
		return "", fmt.Errorf("%w: algorithm must be SHA1, SHA256, or SHA512, got %q",
			ErrInvalidParameter, algorithm)
	}

	var counterBytes [8]byte
	binary.BigEndian.PutUint64(counterBytes[:], counter)

	mac := hmac.New(h, secret)
	mac.Write(counterBytes[:])
	sum := mac.Sum(nil)

	// RFC 4226 §5.3 dynamic truncation: the low nibble of the last byte
	// selects a 4-byte slice, whose top bit is masked off.
	offset := sum[len(sum)-1] & 0x0f
	value := uint64(binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7fffffff)

	mod := uint64(1)
	for i := 0; i < digits; i++ {
		mod *= 10
	}

	return fmt.Sprintf("%0*d", digits, value%mod), nil
}
