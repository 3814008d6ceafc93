package timer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSnapshotStore is a map-backed SnapshotStore with per-id failure injection.
type fakeSnapshotStore struct {
	snapshots map[string]Snapshot
	failGet   map[string]error
	failPut   map[string]error
	puts      int
}

func newFakeSnapshotStore() *fakeSnapshotStore {
	return &fakeSnapshotStore{
		snapshots: make(map[string]Snapshot),
		failGet:   make(map[string]error),
		failPut:   make(map[string]error),
	}
}

func (s *fakeSnapshotStore) Get(_ context.Context, id string) (*Snapshot, bool, error) {
	if err := s.failGet[id]; err != nil {
		return nil, false, err
	}
	snap, ok := s.snapshots[id]
	if !ok {
		return nil, false, nil
	}
	return &snap, true, nil
}

func (s *fakeSnapshotStore) Put(_ context.Context, id string, snap Snapshot) error {
	if err := s.failPut[id]; err != nil {
		return err
	}
	s.puts++
	s.snapshots[id] = snap
	return nil
}

func TestRegistryAddAndLookup(t *testing.T) {
	r := NewRegistry()

	tea, _, _ := newTestTimer(t, Settings{ID: "tea", Duration: time.Minute})
	egg, _, _ := newTestTimer(t, Settings{ID: "egg", Duration: time.Minute})

	require.NoError(t, r.Add(tea))
	require.NoError(t, r.Add(egg))
	assert.Error(t, r.Add(tea), "duplicate id is rejected")

	got, ok := r.Get("tea")
	require.True(t, ok)
	assert.Same(t, tea, got)

	assert.Equal(t, []string{"egg", "tea"}, r.IDs())

	removed, ok := r.Remove("egg")
	require.True(t, ok)
	assert.Same(t, egg, removed)
	_, ok = r.Get("egg")
	assert.False(t, ok)
}

func TestRegistryRestoreAll(t *testing.T) {
	r := NewRegistry()

	resumed, fake, _ := newTestTimer(t, Settings{ID: "resumed", Duration: time.Hour, RestoreEnabled: true})
	fresh, _, _ := newTestTimer(t, Settings{ID: "fresh", Duration: time.Hour, RestoreEnabled: true})
	disabled, _, _ := newTestTimer(t, Settings{ID: "disabled", Duration: time.Hour})
	broken, _, _ := newTestTimer(t, Settings{ID: "broken", Duration: time.Hour, RestoreEnabled: true})

	for _, tm := range []*Timer{resumed, fresh, disabled, broken} {
		require.NoError(t, r.Add(tm))
	}

	now := fake.Now()
	store := newFakeSnapshotStore()
	store.snapshots["resumed"] = Snapshot{
		State: Active, EndAt: endAt(now.Add(10 * time.Minute)), Duration: time.Hour,
	}
	store.snapshots["disabled"] = Snapshot{State: Paused, Remaining: time.Minute, Duration: time.Hour}
	store.failGet["broken"] = errors.New("disk on fire")

	r.RestoreAll(context.Background(), store, now)

	assert.Equal(t, Active, resumed.State())
	assert.Equal(t, 10*time.Minute, resumed.Remaining())
	assert.Equal(t, Idle, fresh.State(), "no snapshot means a cold start")
	assert.Equal(t, Idle, disabled.State(), "restore-disabled timers ignore snapshots")
	assert.Equal(t, Idle, broken.State(), "a store failure is local to its timer")
}

func TestRegistrySnapshotAll(t *testing.T) {
	r := NewRegistry()

	tea, _, _ := newTestTimer(t, Settings{ID: "tea", Duration: time.Minute, RestoreEnabled: true})
	egg, _, _ := newTestTimer(t, Settings{ID: "egg", Duration: time.Minute})
	require.NoError(t, r.Add(tea))
	require.NoError(t, r.Add(egg))
	require.NoError(t, tea.Start(nil))

	store := newFakeSnapshotStore()
	require.NoError(t, r.SnapshotAll(context.Background(), store))

	assert.Equal(t, 1, store.puts, "only restore-enabled timers are persisted")
	snap, ok := store.snapshots["tea"]
	require.True(t, ok)
	assert.Equal(t, Active, snap.State)
	_, ok = store.snapshots["egg"]
	assert.False(t, ok)
}

func TestRegistrySnapshotAllJoinsFailures(t *testing.T) {
	r := NewRegistry()

	tea, _, _ := newTestTimer(t, Settings{ID: "tea", Duration: time.Minute, RestoreEnabled: true})
	egg, _, _ := newTestTimer(t, Settings{ID: "egg", Duration: time.Minute, RestoreEnabled: true})
	require.NoError(t, r.Add(tea))
	require.NoError(t, r.Add(egg))

	store := newFakeSnapshotStore()
	store.failPut["egg"] = errors.New("disk full")

	err := r.SnapshotAll(context.Background(), store)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "egg")

	// The other timer was still persisted.
	_, ok := store.snapshots["tea"]
	assert.True(t, ok)
}
