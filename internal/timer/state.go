package timer

// State is the lifecycle state of a timer.
type State string

const (
	// Idle means the timer is not running.
	Idle State = "idle"
	// Active means the timer is counting down toward its deadline.
	Active State = "active"
	// Paused means the countdown is suspended with remaining time preserved.
	Paused State = "paused"
)

// Valid reports whether s is a known state.
func (s State) Valid() bool {
	switch s {
	case Idle, Active, Paused:
		return true
	default:
		return false
	}
}
