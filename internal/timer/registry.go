package timer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"git.home.luguber.info/inful/timerd/internal/logfields"
)

// SnapshotStore is the persistence contract the registry needs. Satisfied by
// store.Store.
type SnapshotStore interface {
	Get(ctx context.Context, id string) (*Snapshot, bool, error)
	Put(ctx context.Context, id string, snap Snapshot) error
}

// Registry is the coordinator-owned mapping of timer id to entity. It is
// constructed at startup and reshaped only by configuration reloads; the
// entities themselves handle their own serialization.
type Registry struct {
	mu     sync.RWMutex
	timers map[string]*Timer
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{timers: make(map[string]*Timer)}
}

// Add registers a timer. Duplicate ids are rejected.
func (r *Registry) Add(t *Timer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.timers[t.ID()]; exists {
		return fmt.Errorf("timerd: duplicate timer id %q", t.ID())
	}
	r.timers[t.ID()] = t
	return nil
}

// Replace swaps in a rebuilt timer entity for an existing id (or adds it).
func (r *Registry) Replace(t *Timer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.timers[t.ID()] = t
}

// Remove drops a timer and returns it so the caller can wind it down.
func (r *Registry) Remove(id string) (*Timer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.timers[id]
	if ok {
		delete(r.timers, id)
	}
	return t, ok
}

// Get looks up a timer by id.
func (r *Registry) Get(id string) (*Timer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.timers[id]
	return t, ok
}

// IDs returns all timer ids in stable order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.timers))
	for id := range r.timers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Timers returns all entities ordered by id.
func (r *Registry) Timers() []*Timer {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Timer, 0, len(r.timers))
	for _, t := range r.timers {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// RestoreAll reconciles every restore-enabled timer against its persisted
// snapshot. A failure is local to its timer: it is logged and the remaining
// timers still restore.
func (r *Registry) RestoreAll(ctx context.Context, store SnapshotStore, now time.Time) {
	for _, t := range r.Timers() {
		if !t.RestoreEnabled() {
			continue
		}

		snap, ok, err := store.Get(ctx, t.ID())
		if err != nil {
			slog.Warn("Failed to read timer snapshot",
				logfields.TimerID(t.ID()),
				logfields.Error(err))
			continue
		}
		if !ok {
			continue
		}

		if err := t.Restore(*snap, now); err != nil {
			slog.Warn("Failed to restore timer",
				logfields.TimerID(t.ID()),
				logfields.Error(err))
		}
	}
}

// SnapshotAll persists the current snapshot of every restore-enabled timer.
// Individual failures do not stop the sweep; they are joined into the result.
func (r *Registry) SnapshotAll(ctx context.Context, store SnapshotStore) error {
	var errs []error
	for _, t := range r.Timers() {
		if !t.RestoreEnabled() {
			continue
		}
		if err := store.Put(ctx, t.ID(), t.Snapshot()); err != nil {
			errs = append(errs, fmt.Errorf("snapshot %q: %w", t.ID(), err))
		}
	}
	return errors.Join(errs...)
}
