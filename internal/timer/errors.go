package timer

import "errors"

// Sentinel domain errors for rejected operations. They are always wrapped with
// the timer id at the call site.
var (
	// ErrNotActive rejects pause/change-duration when the timer is not counting down.
	ErrNotActive = errors.New("timerd: timer is not active")
	// ErrAlreadyIdle rejects cancel/finish when there is nothing to stop.
	ErrAlreadyIdle = errors.New("timerd: timer is already idle")
	// ErrNegativeDuration rejects negative spans in operations and configuration.
	ErrNegativeDuration = errors.New("timerd: duration must not be negative")
	// ErrInvalidSnapshot rejects restore input that cannot describe a timer.
	ErrInvalidSnapshot = errors.New("timerd: invalid snapshot")
)
