// Package keystore stores per-principal TOTP secrets.
//
// SecretStore is the boundary the verifier-side code depends on; FileStore
// is the shipped default, holding one base32-encoded secret per principal
// in a permission-restricted directory. Deployments with a platform
// credential store implement SecretStore against it instead.
package keystore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jhahn/pam-totp/internal/principal"
	b32 "github.com/jhahn/pam-totp/pkg/base32"
)

// Common errors returned by secret stores.
var (
	// ErrNotFound indicates no secret is enrolled for the principal.
	ErrNotFound = errors.New("keystore: secret not found")
)

// SecretStore loads and saves shared secrets per principal.
type SecretStore interface {
	// Load returns the principal's secret, or ErrNotFound.
	Load(ctx context.Context, principal string) ([]byte, error)
	// Save stores the principal's secret, replacing any existing one.
	Save(ctx context.Context, principal string, secret []byte) error
	// Exists reports whether a secret is enrolled for the principal.
	Exists(ctx context.Context, principal string) (bool, error)
	// Delete removes the principal's secret. Deleting a missing secret
	// returns ErrNotFound.
	Delete(ctx context.Context, principal string) error
}

// FileStore is a SecretStore keeping one file per principal under a
// directory readable only by the owning service identity (0700 directory,
// 0600 files).
type FileStore struct {
	dir string
}

var _ SecretStore = (*FileStore)(nil)

// NewFileStore creates a file-backed secret store rooted at dir, creating
// the directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("keystore: directory must not be empty")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("keystore: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(name string) (string, error) {
	base, err := principal.Filename(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.dir, base+".totp"), nil
}

// Load returns the principal's secret.
func (s *FileStore) Load(ctx context.Context, name string) ([]byte, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	path, err := s.path(name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("keystore: %w", err)
	}

	secret, err := b32.Decode(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, fmt.Errorf("keystore: corrupt secret for %s: %w", name, err)
	}
	return secret, nil
}

// Save stores the principal's secret, replacing any existing one. The file
// is written to a temporary name first and renamed into place.
func (s *FileStore) Save(ctx context.Context, name string, secret []byte) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	if len(secret) == 0 {
		return errors.New("keystore: secret must not be empty")
	}
	path, err := s.path(name)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("keystore: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("keystore: %w", err)
	}
	if _, err := tmp.WriteString(b32.Encode(secret) + "\n"); err != nil {
		tmp.Close()
		return fmt.Errorf("keystore: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("keystore: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("keystore: %w", err)
	}
	return nil
}

// Exists reports whether a secret is enrolled for the principal.
func (s *FileStore) Exists(ctx context.Context, name string) (bool, error) {
	if err := ctxErr(ctx); err != nil {
		return false, err
	}
	path, err := s.path(name)
	if err != nil {
		return false, err
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return false, nil
	} else if err != nil {
		return false, fmt.Errorf("keystore: %w", err)
	}
	return true, nil
}

// Delete removes the principal's secret.
func (s *FileStore) Delete(ctx context.Context, name string) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	path, err := s.path(name)
	if err != nil {
		return err
	}

	if err := os.Remove(path); errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	} else if err != nil {
		return fmt.Errorf("keystore: %w", err)
	}
	return nil
}

func ctxErr(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	return ctx.Err()
}
