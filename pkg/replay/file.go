package replay

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/jhahn/pam-totp/internal/principal"
)

// DefaultRetention is the number of counter units a used entry is kept
// before being pruned (10 periods, about 5 minutes at the default 30s
// period). Retention must be at least 2*window+1 so no counter can be
// pruned while it could still match.
const DefaultRetention = 10

const recordPerm = 0o600

// FileGuard is a Guard backed by one record file per principal. Records
// are plain text, one decimal counter per line, created with mode 0600
// inside a 0700 directory. A separate per-principal lock file carries the
// flock so the record itself can be replaced by rename without losing the
// lock.
type FileGuard struct {
	dir       string
	retention uint64
}

// NewFileGuard creates a file-backed replay guard rooted at dir, creating
// the directory if needed. A zero retention selects DefaultRetention.
func NewFileGuard(dir string, retention uint64) (*FileGuard, error) {
	if dir == "" {
		return nil, errors.New("replay: directory must not be empty")
	}
	if retention == 0 {
		retention = DefaultRetention
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return &FileGuard{dir: dir, retention: retention}, nil
}

// IsUsed reports whether the counter is recorded for the principal.
func (g *FileGuard) IsUsed(ctx context.Context, name string, counter uint64) (bool, error) {
	var used bool
	err := g.withLock(ctx, name, func(record string) error {
		counters, err := readRecord(record)
		if err != nil {
			return err
		}
		_, used = counters[counter]
		return nil
	})
	return used, err
}

// MarkUsed records the counter for the principal, pruning entries older
// than the retention window first.
func (g *FileGuard) MarkUsed(ctx context.Context, name string, counter uint64) error {
	return g.withLock(ctx, name, func(record string) error {
		counters, err := readRecord(record)
		if err != nil {
			return err
		}
		return g.writeRecord(record, counters, counter)
	})
}

// Consume atomically checks and records the counter under one lock.
func (g *FileGuard) Consume(ctx context.Context, name string, counter uint64) (bool, error) {
	fresh := false
	err := g.withLock(ctx, name, func(record string) error {
		counters, err := readRecord(record)
		if err != nil {
			return err
		}
		if _, ok := counters[counter]; ok {
			return nil
		}
		if err := g.writeRecord(record, counters, counter); err != nil {
			return err
		}
		fresh = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return fresh, nil
}

// withLock resolves the principal's record path, holds its exclusive lock
// for the duration of fn, and maps I/O failures to ErrPersistence.
func (g *FileGuard) withLock(ctx context.Context, name string, fn func(record string) error) error {
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return err
		}
	}

	base, err := principal.Filename(name)
	if err != nil {
		return err
	}
	record := filepath.Join(g.dir, base+".used")

	unlock, err := lockFile(record + ".lock")
	if err != nil {
		return fmt.Errorf("%w: lock: %v", ErrPersistence, err)
	}
	defer unlock()

	return fn(record)
}

// readRecord parses a record file into the set of used counters. A missing
// record is an empty set.
func readRecord(path string) (map[uint64]struct{}, error) {
	counters := make(map[uint64]struct{})

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return counters, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read: %v", ErrPersistence, err)
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		c, err := strconv.ParseUint(line, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: corrupt record %s: %v", ErrPersistence, path, err)
		}
		counters[c] = struct{}{}
	}
	return counters, nil
}

// writeRecord prunes entries outside the retention window, inserts the new
// counter, and atomically replaces the record via write-temp-then-rename.
func (g *FileGuard) writeRecord(path string, counters map[uint64]struct{}, newCounter uint64) error {
	kept := make([]uint64, 0, len(counters)+1)
	for c := range counters {
		if c+g.retention > newCounter {
			kept = append(kept, c)
		}
	}
	kept = append(kept, newCounter)
	sort.Slice(kept, func(i, j int) bool { return kept[i] < kept[j] })

	var b strings.Builder
	for _, c := range kept {
		b.WriteString(strconv.FormatUint(c, 10))
		b.WriteByte('\n')
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("%w: temp: %v", ErrPersistence, err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(recordPerm); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: chmod: %v", ErrPersistence, err)
	}
	if _, err := tmp.WriteString(b.String()); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: write: %v", ErrPersistence, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: sync: %v", ErrPersistence, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close: %v", ErrPersistence, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("%w: rename: %v", ErrPersistence, err)
	}
	return nil
}
