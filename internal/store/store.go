// Package store persists timer snapshots in a key-value fashion keyed by
// timer id.
package store

import (
	"context"

	"git.home.luguber.info/inful/timerd/internal/timer"
)

// Store defines the interface for persisting and retrieving timer snapshots.
type Store interface {
	// Get retrieves the snapshot for a timer id. The second result is false
	// when no snapshot exists.
	Get(ctx context.Context, id string) (*timer.Snapshot, bool, error)

	// Put writes (or replaces) the snapshot for a timer id.
	Put(ctx context.Context, id string, snap timer.Snapshot) error

	// Delete removes the snapshot for a timer id; removing an absent
	// snapshot is not an error.
	Delete(ctx context.Context, id string) error

	// All returns every stored snapshot keyed by timer id.
	All(ctx context.Context) (map[string]timer.Snapshot, error)

	// Close closes the store and releases resources.
	Close() error
}
