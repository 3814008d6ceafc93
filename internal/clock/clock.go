// Package clock provides the cancelable delayed-callback scheduling used to arm
// timer expirations. It wraps a clockwork.Clock so tests can drive time
// deterministically with a fake clock.
package clock

import (
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
)

// ErrNegativeDelay is returned when Arm is called with a negative delay.
// The state machine never produces one; seeing this error means a caller bug.
var ErrNegativeDelay = errors.New("timerd: negative alarm delay")

// Alarm is the handle for a single scheduled callback.
type Alarm struct {
	timer clockwork.Timer
}

// AlarmClock schedules one-shot callbacks after a delay.
type AlarmClock struct {
	clk clockwork.Clock
}

// New returns an AlarmClock backed by the real wall clock.
func New() *AlarmClock {
	return &AlarmClock{clk: clockwork.NewRealClock()}
}

// NewWithClock returns an AlarmClock backed by the given clock (fake in tests).
func NewWithClock(clk clockwork.Clock) *AlarmClock {
	return &AlarmClock{clk: clk}
}

// Now returns the current time according to the underlying clock.
func (c *AlarmClock) Now() time.Time { return c.clk.Now() }

// Arm schedules fn to run once after delay and returns a handle for it.
// A zero delay is valid and fires as soon as the scheduler runs. A negative
// delay fails with ErrNegativeDelay.
func (c *AlarmClock) Arm(delay time.Duration, fn func()) (*Alarm, error) {
	if delay < 0 {
		return nil, fmt.Errorf("%w: %s", ErrNegativeDelay, delay)
	}
	return &Alarm{timer: c.clk.AfterFunc(delay, fn)}, nil
}

// Disarm cancels a pending alarm. It is idempotent and nil-safe: disarming an
// already-fired or already-disarmed alarm is a no-op.
func (c *AlarmClock) Disarm(a *Alarm) {
	if a == nil || a.timer == nil {
		return
	}
	a.timer.Stop()
}
