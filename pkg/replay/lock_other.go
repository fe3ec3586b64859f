//go:build !unix

package replay

import "errors"

// Replay records require OS-level file locking, which this build lacks.
// Failing here keeps the guard fail-closed rather than racy.
func lockFile(path string) (func(), error) {
	return nil, errors.New("file locking unsupported on this platform")
}
