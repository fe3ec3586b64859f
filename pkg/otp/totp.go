package otp

import (
	"fmt"
	"time"
)

// Counter maps a wall-clock time to an RFC 6238 counter value:
// floor(unixSeconds / period). The period is a positive number of seconds.
func Counter(t time.Time, period int) (uint64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("%w: period must be positive, got %d", ErrInvalidParameter, period)
	}
	unix := t.Unix()
	if unix < 0 {
		unix = 0
	}
	return uint64(unix) / uint64(period), nil
}

// Generate computes the TOTP code for the given time by mapping it to a
// counter and delegating to HOTP.
func Generate(secret []byte, t time.Time, digits, period int, algorithm Algorithm) (string, error) {
	counter, err := Counter(t, period)
	if err != nil {
		return "", err
	}
	return HOTP(secret, counter, digits, algorithm)
}
