// Package timer implements the countdown timer entity: a named, durable timer
// with idle/active/paused states that survives process restarts by
// reconciling a persisted snapshot against the wall clock.
package timer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/timerd/internal/clock"
	"git.home.luguber.info/inful/timerd/internal/logfields"
	"git.home.luguber.info/inful/timerd/internal/metrics"
)

// Settings are the per-timer configuration values, fixed at creation except
// for the default duration, which ChangeDuration may rewrite.
type Settings struct {
	ID             string
	Duration       time.Duration
	RestoreEnabled bool
	GracePeriod    time.Duration
}

// Timer is a single countdown timer entity. All operations serialize on an
// internal mutex; the expiration callback enters through the same mutex and
// becomes a no-op when a pause/cancel/restart superseded it.
type Timer struct {
	id      string
	restore bool
	grace   time.Duration

	clk *clock.AlarmClock
	pub Publisher
	rec metrics.Recorder

	mu        sync.Mutex
	state     State
	duration  time.Duration // current default duration
	remaining time.Duration // meaningful while paused
	end       time.Time     // zero unless active
	alarm     *clock.Alarm
	gen       uint64 // alarm generation; stale callbacks compare and bail
}

// New creates an idle timer from settings. Negative spans are configuration
// errors and reject the timer.
func New(s Settings, clk *clock.AlarmClock, pub Publisher, rec metrics.Recorder) (*Timer, error) {
	if s.ID == "" {
		return nil, fmt.Errorf("timerd: timer id must not be empty")
	}
	if s.Duration < 0 {
		return nil, fmt.Errorf("timer %q: %w", s.ID, ErrNegativeDuration)
	}
	if s.GracePeriod < 0 {
		return nil, fmt.Errorf("timer %q: negative restore grace period %s", s.ID, s.GracePeriod)
	}
	if clk == nil {
		clk = clock.New()
	}
	if pub == nil {
		pub = discardPublisher{}
	}
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}

	return &Timer{
		id:       s.ID,
		restore:  s.RestoreEnabled,
		grace:    s.GracePeriod,
		clk:      clk,
		pub:      pub,
		rec:      rec,
		state:    Idle,
		duration: s.Duration,
	}, nil
}

// ID returns the timer's stable identity.
func (t *Timer) ID() string { return t.id }

// RestoreEnabled reports whether the timer participates in snapshot restore.
func (t *Timer) RestoreEnabled() bool { return t.restore }

// GracePeriod returns the configured restore grace period.
func (t *Timer) GracePeriod() time.Duration { return t.grace }

// State returns the current state.
func (t *Timer) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Duration returns the current default duration.
func (t *Timer) Duration() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.duration
}

// Remaining returns the time left: the preserved span while paused, the
// distance to the deadline while active, zero when idle.
func (t *Timer) Remaining() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch t.state {
	case Paused:
		return t.remaining
	case Active:
		if left := t.end.Sub(t.clk.Now()); left > 0 {
			return left
		}
		return 0
	default:
		return 0
	}
}

// EndAt returns the deadline and true while the timer is active.
func (t *Timer) EndAt() (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != Active {
		return time.Time{}, false
	}
	return t.end, true
}

// Snapshot returns the persistable view of the timer.
func (t *Timer) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := Snapshot{State: t.state, Duration: t.duration}
	switch t.state {
	case Active:
		end := t.end
		snap.EndAt = &end
	case Paused:
		snap.Remaining = t.remaining
	}
	return snap
}

// Start begins (or restarts) the countdown. With an explicit duration the
// timer's default duration is rewritten; without one a paused timer resumes
// with its preserved remaining time and any other state uses the default.
// A zero effective duration finishes synchronously without arming an alarm.
func (t *Timer) Start(explicit *time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var eff time.Duration
	switch {
	case explicit != nil:
		if *explicit < 0 {
			t.rec.IncRejectedOperation("start")
			return fmt.Errorf("start %q: %w", t.id, ErrNegativeDuration)
		}
		eff = *explicit
		t.duration = *explicit
	case t.state == Paused:
		eff = t.remaining
	default:
		eff = t.duration
	}

	prior := t.state
	t.disarmLocked()
	now := t.clk.Now()

	t.state = Active
	t.end = now.Add(eff)
	t.remaining = eff
	t.rec.IncTransition(string(prior), string(Active))
	t.publishStateChanged(prior)

	if eff == 0 {
		// Straight to finish: active is observable only through the event pair.
		t.finishLocked()
		return nil
	}

	if err := t.armLocked(eff); err != nil {
		return err
	}

	slog.Debug("Timer started",
		logfields.TimerID(t.id),
		logfields.Duration(eff),
		logfields.EndAt(t.end))
	return nil
}

// Pause suspends an active countdown, preserving the remaining time.
func (t *Timer) Pause() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != Active {
		t.rec.IncRejectedOperation("pause")
		return fmt.Errorf("pause %q from %s: %w", t.id, t.state, ErrNotActive)
	}

	t.disarmLocked()
	remaining := t.end.Sub(t.clk.Now())
	if remaining < 0 {
		remaining = 0
	}
	t.remaining = remaining
	t.end = time.Time{}
	t.state = Paused
	t.rec.IncTransition(string(Active), string(Paused))
	t.publishStateChanged(Active)

	slog.Debug("Timer paused", logfields.TimerID(t.id), logfields.Remaining(remaining))
	return nil
}

// Cancel stops an active or paused timer without firing a finished event.
func (t *Timer) Cancel() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state == Idle {
		t.rec.IncRejectedOperation("cancel")
		return fmt.Errorf("cancel %q: %w", t.id, ErrAlreadyIdle)
	}

	prior := t.state
	t.disarmLocked()
	t.end = time.Time{}
	t.remaining = 0
	t.state = Idle
	t.rec.IncTransition(string(prior), string(Idle))
	t.publishStateChanged(prior)

	slog.Debug("Timer cancelled", logfields.TimerID(t.id), logfields.PriorState(string(prior)))
	return nil
}

// Finish ends an active or paused timer early, firing the finished event as if
// the deadline had been reached.
func (t *Timer) Finish() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state == Idle {
		t.rec.IncRejectedOperation("finish")
		return fmt.Errorf("finish %q: %w", t.id, ErrAlreadyIdle)
	}

	t.finishLocked()
	return nil
}

// ChangeDuration re-arms a running timer with a new deadline of now+d,
// extending or shortening the countdown. Only valid while active.
func (t *Timer) ChangeDuration(d time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if d < 0 {
		t.rec.IncRejectedOperation("change_duration")
		return fmt.Errorf("change duration %q: %w", t.id, ErrNegativeDuration)
	}
	if t.state != Active {
		t.rec.IncRejectedOperation("change_duration")
		return fmt.Errorf("change duration %q from %s: %w", t.id, t.state, ErrNotActive)
	}

	t.disarmLocked()
	t.duration = d
	t.end = t.clk.Now().Add(d)
	t.remaining = d
	t.rec.IncTransition(string(Active), string(Active))
	t.publishStateChanged(Active)

	if d == 0 {
		t.finishLocked()
		return nil
	}
	if err := t.armLocked(d); err != nil {
		return err
	}

	slog.Debug("Timer duration changed",
		logfields.TimerID(t.id),
		logfields.Duration(d),
		logfields.EndAt(t.end))
	return nil
}

// Restore reconciles a persisted snapshot against the current wall-clock time,
// in place of idle initialization at process start. An active snapshot whose
// deadline passed while the process was down fires the finish transition when
// the overdue span is within the grace period (boundary inclusive), and
// silently lands idle otherwise.
func (t *Timer) Restore(snap Snapshot, now time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := snap.Validate(); err != nil {
		return fmt.Errorf("restore %q: %w", t.id, err)
	}

	// Configuration stays authoritative for the default duration unless it
	// declares none.
	if t.duration == 0 && snap.Duration > 0 {
		t.duration = snap.Duration
	}

	switch snap.State {
	case Idle:
		t.state = Idle
		t.rec.IncRestore(metrics.RestoreIdle)

	case Paused:
		t.state = Paused
		t.remaining = snap.Remaining
		t.rec.IncRestore(metrics.RestorePaused)
		slog.Debug("Timer restored paused",
			logfields.TimerID(t.id),
			logfields.Remaining(t.remaining))

	case Active:
		end := *snap.EndAt
		if now.Before(end) {
			delay := end.Sub(now)
			t.state = Active
			t.end = end
			t.remaining = delay
			if err := t.armLocked(delay); err != nil {
				return err
			}
			t.rec.IncRestore(metrics.RestoreResumed)
			slog.Debug("Timer restored active",
				logfields.TimerID(t.id),
				logfields.Remaining(delay),
				logfields.EndAt(end))
			return nil
		}

		overdue := now.Sub(end)
		if overdue <= t.grace {
			// The deadline passed while the process was down, but recently
			// enough that downstream automations still expect to fire.
			t.state = Active
			t.end = end
			t.rec.IncRestore(metrics.RestoreFinished)
			t.finishLocked()
			slog.Info("Timer finished retroactively on restore",
				logfields.TimerID(t.id),
				logfields.Overdue(overdue))
			return nil
		}

		// Missed beyond the grace period: land idle without any event, so a
		// stale expiry does not masquerade as a fresh finish.
		t.state = Idle
		t.end = time.Time{}
		t.remaining = 0
		t.rec.IncRestore(metrics.RestoreMissed)
		slog.Info("Timer deadline missed beyond grace period",
			logfields.TimerID(t.id),
			logfields.Overdue(overdue))
	}

	return nil
}

// finishLocked runs the finish transition from active or paused: disarm,
// clear timing fields, publish the state change and the finished event.
func (t *Timer) finishLocked() {
	prior := t.state
	t.disarmLocked()
	t.end = time.Time{}
	t.remaining = 0
	t.state = Idle
	t.rec.IncTransition(string(prior), string(Idle))
	t.rec.IncFinished()
	t.publishStateChanged(prior)
	t.publishFinished()

	slog.Debug("Timer finished", logfields.TimerID(t.id), logfields.PriorState(string(prior)))
}

// expire is the alarm callback. It serializes with the other operations and
// bails when its generation is stale, i.e. some operation disarmed or
// re-armed after this alarm was scheduled.
func (t *Timer) expire(gen uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if gen != t.gen || t.state != Active {
		return
	}
	t.alarm = nil
	t.finishLocked()
}

// armLocked replaces any outstanding alarm with one firing after delay. The
// generation counter makes an already-fired-but-unserviced callback stale.
func (t *Timer) armLocked(delay time.Duration) error {
	t.disarmLocked()
	t.gen++
	gen := t.gen
	alarm, err := t.clk.Arm(delay, func() { t.expire(gen) })
	if err != nil {
		// Cannot happen while the state machine maintains non-negative spans.
		return fmt.Errorf("arm %q: %w", t.id, err)
	}
	t.alarm = alarm
	return nil
}

func (t *Timer) disarmLocked() {
	if t.alarm != nil {
		t.clk.Disarm(t.alarm)
		t.alarm = nil
	}
	t.gen++
}

func (t *Timer) publishStateChanged(prior State) {
	ev := StateChangedEvent{
		EventID:    uuid.NewString(),
		TimerID:    t.id,
		PriorState: prior,
		NewState:   t.state,
	}
	switch t.state {
	case Active:
		end := t.end
		ev.EndAt = &end
	case Paused:
		ev.Remaining = t.remaining.String()
	}
	if err := t.pub.Publish(context.Background(), SubjectStateChanged, ev); err != nil {
		slog.Warn("Failed to publish state change",
			logfields.TimerID(t.id),
			logfields.Error(err))
	}
}

func (t *Timer) publishFinished() {
	ev := FinishedEvent{EventID: uuid.NewString(), TimerID: t.id}
	if err := t.pub.Publish(context.Background(), SubjectFinished, ev); err != nil {
		slog.Warn("Failed to publish finished event",
			logfields.TimerID(t.id),
			logfields.Error(err))
	}
}
