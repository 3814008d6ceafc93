package timer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func endAt(t time.Time) *time.Time { return &t }

func TestRestoreIdleSnapshot(t *testing.T) {
	tm, _, pub := newTestTimer(t, Settings{ID: "tea", Duration: time.Minute, RestoreEnabled: true})

	require.NoError(t, tm.Restore(Snapshot{State: Idle, Duration: time.Minute}, time.Now()))

	assert.Equal(t, Idle, tm.State())
	assert.Empty(t, pub.events, "restore must not publish events for an idle snapshot")
}

func TestRestorePausedSnapshot(t *testing.T) {
	tm, fake, pub := newTestTimer(t, Settings{ID: "tea", Duration: time.Hour, RestoreEnabled: true})

	snap := Snapshot{State: Paused, Remaining: 12 * time.Minute, Duration: time.Hour}
	require.NoError(t, tm.Restore(snap, fake.Now()))

	assert.Equal(t, Paused, tm.State())
	assert.Equal(t, 12*time.Minute, tm.Remaining())
	assert.Empty(t, pub.events)

	// Time passage cannot move a paused timer: no alarm was armed.
	fake.Advance(48 * time.Hour)
	assert.Equal(t, Paused, tm.State())
	assert.Empty(t, pub.finished())
}

func TestRestoreActiveBeforeDeadline(t *testing.T) {
	// 1 hour timer, restart after 30 minutes elapsed plus a 2 minute gap:
	// 28 minutes remain.
	tm, fake, pub := newTestTimer(t, Settings{ID: "tea", Duration: time.Hour, RestoreEnabled: true})

	now := fake.Now()
	snap := Snapshot{State: Active, EndAt: endAt(now.Add(28 * time.Minute)), Duration: time.Hour}
	require.NoError(t, tm.Restore(snap, now))

	assert.Equal(t, Active, tm.State())
	assert.Equal(t, 28*time.Minute, tm.Remaining())
	assert.Empty(t, pub.finished())
	assert.Empty(t, pub.stateChanges(), "resuming is a reconstruction, not a transition")

	fake.Advance(28*time.Minute - time.Second)
	assert.Equal(t, Active, tm.State())

	fake.Advance(time.Second)
	assert.Equal(t, Idle, tm.State())
	assert.Len(t, pub.finished(), 1, "re-armed alarm fires at the persisted deadline")
}

func TestRestoreOverdueWithinGraceFiresFinish(t *testing.T) {
	// 15 minute grace, deadline passed 1 minute ago: the finish still fires.
	tm, fake, pub := newTestTimer(t, Settings{
		ID: "tea", Duration: time.Hour, RestoreEnabled: true, GracePeriod: 15 * time.Minute,
	})

	now := fake.Now()
	snap := Snapshot{State: Active, EndAt: endAt(now.Add(-time.Minute)), Duration: time.Hour}
	require.NoError(t, tm.Restore(snap, now))

	assert.Equal(t, Idle, tm.State())
	require.Len(t, pub.finished(), 1)

	changes := pub.stateChanges()
	require.Len(t, changes, 1)
	assert.Equal(t, Active, changes[0].PriorState)
	assert.Equal(t, Idle, changes[0].NewState)
}

func TestRestoreOverdueBeyondGraceIsSilent(t *testing.T) {
	// 15 minute grace, deadline passed 20 minutes ago: the deadline is missed.
	tm, fake, pub := newTestTimer(t, Settings{
		ID: "tea", Duration: time.Hour, RestoreEnabled: true, GracePeriod: 15 * time.Minute,
	})

	now := fake.Now()
	snap := Snapshot{State: Active, EndAt: endAt(now.Add(-20 * time.Minute)), Duration: time.Hour}
	require.NoError(t, tm.Restore(snap, now))

	assert.Equal(t, Idle, tm.State())
	assert.Empty(t, pub.events, "a missed deadline publishes nothing")
	assert.Zero(t, tm.Remaining())
	_, ok := tm.EndAt()
	assert.False(t, ok)
}

func TestRestoreGraceBoundaryIsInclusive(t *testing.T) {
	tm, fake, pub := newTestTimer(t, Settings{
		ID: "tea", Duration: time.Hour, RestoreEnabled: true, GracePeriod: 10 * time.Minute,
	})

	now := fake.Now()
	snap := Snapshot{State: Active, EndAt: endAt(now.Add(-10 * time.Minute)), Duration: time.Hour}
	require.NoError(t, tm.Restore(snap, now))

	assert.Equal(t, Idle, tm.State())
	assert.Len(t, pub.finished(), 1, "overdue == grace period fires the finish")
}

func TestRestoreJustPastGraceBoundary(t *testing.T) {
	tm, fake, pub := newTestTimer(t, Settings{
		ID: "tea", Duration: time.Hour, RestoreEnabled: true, GracePeriod: 10 * time.Minute,
	})

	now := fake.Now()
	overdue := 10*time.Minute + time.Nanosecond
	snap := Snapshot{State: Active, EndAt: endAt(now.Add(-overdue)), Duration: time.Hour}
	require.NoError(t, tm.Restore(snap, now))

	assert.Equal(t, Idle, tm.State())
	assert.Empty(t, pub.finished(), "one tick past the grace period is a miss")
}

func TestRestoreZeroGraceExactDeadline(t *testing.T) {
	// Default grace of zero still honors a deadline hit exactly at restore.
	tm, fake, pub := newTestTimer(t, Settings{ID: "tea", Duration: time.Hour, RestoreEnabled: true})

	now := fake.Now()
	snap := Snapshot{State: Active, EndAt: endAt(now), Duration: time.Hour}
	require.NoError(t, tm.Restore(snap, now))

	assert.Equal(t, Idle, tm.State())
	assert.Len(t, pub.finished(), 1)
}

func TestRestoreInvalidSnapshot(t *testing.T) {
	tm, fake, pub := newTestTimer(t, Settings{ID: "tea", Duration: time.Hour, RestoreEnabled: true})

	err := tm.Restore(Snapshot{State: Active, Duration: time.Hour}, fake.Now())
	assert.ErrorIs(t, err, ErrInvalidSnapshot)
	assert.Equal(t, Idle, tm.State(), "a rejected restore leaves the timer idle")
	assert.Empty(t, pub.events)

	err = tm.Restore(Snapshot{State: State("bogus")}, fake.Now())
	assert.ErrorIs(t, err, ErrInvalidSnapshot)

	err = tm.Restore(Snapshot{State: Paused, Remaining: -time.Second}, fake.Now())
	assert.ErrorIs(t, err, ErrInvalidSnapshot)
}

func TestRestoreAdoptsSnapshotDurationWhenUnconfigured(t *testing.T) {
	tm, fake, _ := newTestTimer(t, Settings{ID: "tea", RestoreEnabled: true})
	require.NoError(t, tm.Restore(Snapshot{State: Idle, Duration: 5 * time.Minute}, fake.Now()))
	assert.Equal(t, 5*time.Minute, tm.Duration())

	// A configured default stays authoritative.
	tm2, fake2, _ := newTestTimer(t, Settings{ID: "tea", Duration: time.Hour, RestoreEnabled: true})
	require.NoError(t, tm2.Restore(Snapshot{State: Idle, Duration: 5 * time.Minute}, fake2.Now()))
	assert.Equal(t, time.Hour, tm2.Duration())
}

func TestRestoredPausedTimerResumes(t *testing.T) {
	tm, fake, pub := newTestTimer(t, Settings{ID: "tea", Duration: time.Hour, RestoreEnabled: true})

	snap := Snapshot{State: Paused, Remaining: 90 * time.Second, Duration: time.Hour}
	require.NoError(t, tm.Restore(snap, fake.Now()))

	require.NoError(t, tm.Start(nil))
	end, ok := tm.EndAt()
	require.True(t, ok)
	assert.Equal(t, fake.Now().Add(90*time.Second), end)

	fake.Advance(90 * time.Second)
	assert.Len(t, pub.finished(), 1)
}
