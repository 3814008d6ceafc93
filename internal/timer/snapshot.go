package timer

import (
	"fmt"
	"time"
)

// Snapshot is the minimal persisted record needed to reconstruct a timer after
// a restart. EndAt is only meaningful for active timers, Remaining for paused ones.
type Snapshot struct {
	State     State         `json:"state"`
	EndAt     *time.Time    `json:"end_at,omitempty"`
	Remaining time.Duration `json:"remaining,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// Validate checks that the snapshot can describe a timer.
func (s Snapshot) Validate() error {
	if !s.State.Valid() {
		return fmt.Errorf("%w: unknown state %q", ErrInvalidSnapshot, string(s.State))
	}
	if s.Remaining < 0 {
		return fmt.Errorf("%w: negative remaining %s", ErrInvalidSnapshot, s.Remaining)
	}
	if s.Duration < 0 {
		return fmt.Errorf("%w: negative duration %s", ErrInvalidSnapshot, s.Duration)
	}
	if s.State == Active && s.EndAt == nil {
		return fmt.Errorf("%w: active without end timestamp", ErrInvalidSnapshot)
	}
	return nil
}
