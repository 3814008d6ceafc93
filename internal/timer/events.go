package timer

import (
	"context"
	"time"
)

// Event subjects, relative to the bus subject prefix.
const (
	SubjectStateChanged = "state_changed"
	SubjectFinished     = "finished"
)

// StateChangedEvent announces a state transition.
type StateChangedEvent struct {
	EventID    string     `json:"event_id"`
	TimerID    string     `json:"timer_id"`
	PriorState State      `json:"prior_state"`
	NewState   State      `json:"new_state"`
	EndAt      *time.Time `json:"end_at,omitempty"`     // set while active
	Remaining  string     `json:"remaining,omitempty"`  // set while paused
}

// FinishedEvent announces that a timer reached its deadline, or was finished
// explicitly, or fired retroactively on restore within the grace period.
type FinishedEvent struct {
	EventID string `json:"event_id"`
	TimerID string `json:"timer_id"`
}

// Publisher is the outbound event bus contract. Satisfied by bus.Bus.
type Publisher interface {
	Publish(ctx context.Context, subject string, payload any) error
}

// discardPublisher drops all events; used when no bus is wired.
type discardPublisher struct{}

func (discardPublisher) Publish(context.Context, string, any) error { return nil }
