package otp

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	b32 "github.com/jhahn/pam-totp/pkg/base32"
)

// ErrInvalidURI indicates an otpauth:// URI could not be parsed.
var ErrInvalidURI = errors.New("otp: invalid provisioning URI")

// Key describes an enrolled TOTP credential in the form exchanged with
// authenticator apps via otpauth:// URIs and QR codes.
type Key struct {
	// Issuer is the name of the issuing organization or service.
	Issuer string
	// AccountName identifies the principal, e.g. a username.
	AccountName string
	// Secret is the raw shared secret.
	Secret []byte
	// Digits is the code width (defaults to 6 when zero).
	Digits int
	// Period is the time step in seconds (defaults to 30 when zero).
	Period int
	// Algorithm selects the HOTP hash (defaults to SHA1 when empty).
	Algorithm Algorithm
}

// URI renders the key as an otpauth://totp/ provisioning URI. The secret
// is base32-encoded without padding, which is what authenticator apps
// expect to scan.
func (k Key) URI() string {
	digits := k.Digits
	if digits == 0 {
		digits = DefaultDigits
	}
	period := k.Period
	if period == 0 {
		period = DefaultPeriod
	}
	algorithm := k.Algorithm
	if algorithm == "" {
		algorithm = AlgorithmSHA1
	}

	v := url.Values{}
	v.Set("secret", strings.TrimRight(b32.Encode(k.Secret), "="))
	v.Set("issuer", k.Issuer)
	v.Set("algorithm", string(algorithm))
	v.Set("digits", strconv.Itoa(digits))
	v.Set("period", strconv.Itoa(period))

	label := url.PathEscape(fmt.Sprintf("%s:%s", k.Issuer, k.AccountName))
	return fmt.Sprintf("otpauth://totp/%s?%s", label, v.Encode())
}

// ParseURI parses an otpauth://totp/ provisioning URI back into a Key.
func ParseURI(raw string) (*Key, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURI, err)
	}
	if u.Scheme != "otpauth" {
		return nil, fmt.Errorf("%w: scheme %q, want otpauth", ErrInvalidURI, u.Scheme)
	}
	if u.Host != "totp" {
		return nil, fmt.Errorf("%w: type %q, want totp", ErrInvalidURI, u.Host)
	}

	q := u.Query()
	secret, err := b32.Decode(q.Get("secret"))
	if err != nil {
		return nil, fmt.Errorf("%w: secret: %v", ErrInvalidURI, err)
	}
	if len(secret) == 0 {
		return nil, fmt.Errorf("%w: missing secret", ErrInvalidURI)
	}

	k := &Key{
		Secret:    secret,
		Issuer:    q.Get("issuer"),
		Digits:    DefaultDigits,
		Period:    DefaultPeriod,
		Algorithm: AlgorithmSHA1,
	}

	// Label is "issuer:account"; the issuer prefix is optional.
	label := strings.TrimPrefix(u.Path, "/")
	if issuer, account, ok := strings.Cut(label, ":"); ok {
		k.AccountName = account
		if k.Issuer == "" {
			k.Issuer = issuer
		}
	} else {
		k.AccountName = label
	}

	if s := q.Get("digits"); s != "" {
		d, err := strconv.Atoi(s)
		if err != nil || d < MinDigits || d > MaxDigits {
			return nil, fmt.Errorf("%w: digits %q", ErrInvalidURI, s)
		}
		k.Digits = d
	}
	if s := q.Get("period"); s != "" {
		p, err := strconv.Atoi(s)
		if err != nil || p <= 0 {
			return nil, fmt.Errorf("%w: period %q", ErrInvalidURI, s)
		}
		k.Period = p
	}
	if s := q.Get("algorithm"); s != "" {
		a := Algorithm(strings.ToUpper(s))
		if !a.Valid() {
			return nil, fmt.Errorf("%w: algorithm %q", ErrInvalidURI, s)
		}
		k.Algorithm = a
	}

	return k, nil
}
