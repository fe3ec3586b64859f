// Package principal maps principal names to safe on-disk file names.
package principal

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmpty indicates an empty principal name.
var ErrEmpty = errors.New("principal: name must not be empty")

// Filename escapes a principal name so it can be used as a single path
// component. Letters, digits, '.', '_' and '-' pass through; every other
// byte is escaped as %XX so names cannot introduce path separators or
// collide with each other.
func Filename(name string) (string, error) {
	if name == "" {
		return "", ErrEmpty
	}

	var b strings.Builder
	b.Grow(len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			b.WriteByte(c)
		case c == '.' || c == '_' || c == '-':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String(), nil
}
