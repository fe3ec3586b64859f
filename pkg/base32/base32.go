// Package base32 implements the RFC 4648 base32 codec used to exchange
// TOTP secrets with authenticator apps.
//
// Encoding follows the standard alphabet (A-Z, 2-7) with '=' padding to a
// multiple of eight characters. Decoding is deliberately lenient about the
// two things authenticator apps disagree on: letter case and padding.
// Lowercase input is accepted and '=' characters are ignored wherever they
// appear. Any other character outside the alphabet is rejected.
package base32

import (
	"encoding/base32"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidCharacter indicates the input contains a character outside the
// RFC 4648 base32 alphabet.
var ErrInvalidCharacter = errors.New("base32: invalid character")

var unpadded = base32.StdEncoding.WithPadding(base32.NoPadding)

// Encode returns the RFC 4648 base32 encoding of b, padded with '=' to a
// multiple of eight characters. Empty input encodes to the empty string.
func Encode(b []byte) string {
	return base32.StdEncoding.EncodeToString(b)
}

// Decode parses an RFC 4648 base32 string. It accepts lowercase input and
// ignores '=' padding. Decode(Encode(b)) == b for every byte sequence b.
func Decode(s string) ([]byte, error) {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z':
			c -= 'a' - 'A'
		case c >= 'A' && c <= 'Z':
		case c >= '2' && c <= '7':
		case c == '=':
			continue
		default:
			return nil, fmt.Errorf("%w: %q at position %d", ErrInvalidCharacter, c, i)
		}
		b.WriteByte(c)
	}

	out, err := unpadded.DecodeString(b.String())
	if err != nil {
		// Trailing bits that cannot form a whole byte, e.g. a lone "A".
		return nil, fmt.Errorf("%w: %v", ErrInvalidCharacter, err)
	}
	return out, nil
}
