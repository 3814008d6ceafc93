package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/timerd/internal/timer"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteGetAbsent(t *testing.T) {
	s := newTestStore(t)

	snap, ok, err := s.Get(context.Background(), "tea")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, snap)
}

func TestSQLitePutGetActive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	end := time.Now().Add(30 * time.Minute).UTC().Truncate(time.Nanosecond)
	in := timer.Snapshot{State: timer.Active, EndAt: &end, Duration: time.Hour}
	require.NoError(t, s.Put(ctx, "tea", in))

	out, ok, err := s.Get(ctx, "tea")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, timer.Active, out.State)
	require.NotNil(t, out.EndAt)
	assert.True(t, end.Equal(*out.EndAt), "end timestamp survives the round trip")
	assert.Equal(t, time.Hour, out.Duration)
	require.NoError(t, out.Validate())
}

func TestSQLitePutReplacesExisting(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	end := time.Now().UTC()
	require.NoError(t, s.Put(ctx, "tea", timer.Snapshot{
		State: timer.Active, EndAt: &end, Duration: time.Hour,
	}))
	require.NoError(t, s.Put(ctx, "tea", timer.Snapshot{
		State: timer.Paused, Remaining: 12 * time.Minute, Duration: time.Hour,
	}))

	out, ok, err := s.Get(ctx, "tea")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, timer.Paused, out.State)
	assert.Nil(t, out.EndAt, "upsert clears the stale end timestamp")
	assert.Equal(t, 12*time.Minute, out.Remaining)
}

func TestSQLiteDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "tea", timer.Snapshot{State: timer.Idle, Duration: time.Minute}))
	require.NoError(t, s.Delete(ctx, "tea"))

	_, ok, err := s.Get(ctx, "tea")
	require.NoError(t, err)
	assert.False(t, ok)

	// Deleting an absent snapshot is not an error.
	require.NoError(t, s.Delete(ctx, "tea"))
}

func TestSQLiteAll(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "tea", timer.Snapshot{State: timer.Idle, Duration: time.Minute}))
	require.NoError(t, s.Put(ctx, "egg", timer.Snapshot{
		State: timer.Paused, Remaining: 30 * time.Second, Duration: 10 * time.Minute,
	}))

	all, err := s.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, timer.Idle, all["tea"].State)
	assert.Equal(t, 30*time.Second, all["egg"].Remaining)
}

func TestMockStoreTracksCalls(t *testing.T) {
	m := NewMockStore()
	ctx := context.Background()

	require.NoError(t, m.Put(ctx, "tea", timer.Snapshot{State: timer.Idle}))
	_, ok, err := m.Get(ctx, "tea")
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, m.Delete(ctx, "tea"))
	_, _, _ = m.Get(ctx, "tea")

	calls := m.Calls()
	assert.Equal(t, 1, calls.Put)
	assert.Equal(t, 2, calls.Get)
	assert.Equal(t, 1, calls.Delete)
}
