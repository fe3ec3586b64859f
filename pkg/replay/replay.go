// Package replay persists the set of already-accepted TOTP counters per
// principal, so a code can only ever be consumed once even when every
// authentication attempt runs in a freshly spawned process.
//
// The file-backed guard keeps one record per principal, takes an exclusive
// OS-level file lock around every read-modify-write, and replaces the
// record atomically, so two concurrent attempts presenting the same code
// result in at most one acceptance and a crash mid-write cannot corrupt
// the record.
package replay

import (
	"context"
	"errors"
)

// Common errors returned by replay guards.
var (
	// ErrPersistence indicates the guard could not read, lock, or write its
	// backing store. Verifiers must treat this as "freshness unknown" and
	// reject the attempt.
	ErrPersistence = errors.New("replay: persistence failure")
)

// Guard records accepted counters per principal.
type Guard interface {
	// IsUsed reports whether the counter was already accepted for the
	// principal.
	IsUsed(ctx context.Context, principal string, counter uint64) (bool, error)

	// MarkUsed records the counter as accepted for the principal,
	// pruning expired entries first. The record is durable once MarkUsed
	// returns nil.
	MarkUsed(ctx context.Context, principal string, counter uint64) error

	// Consume atomically performs IsUsed followed by MarkUsed under a
	// single lock. It returns true if the counter was fresh and is now
	// recorded, false if it had already been consumed.
	Consume(ctx context.Context, principal string, counter uint64) (bool, error)
}
