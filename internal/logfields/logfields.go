package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyTimerID   = "timer_id"
	KeyState     = "state"
	KeyPrior     = "prior_state"
	KeyDuration  = "duration"
	KeyRemaining = "remaining"
	KeyEndAt     = "end_at"
	KeyOverdue   = "overdue"
	KeySubject   = "subject"
	KeyError     = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func TimerID(id string) slog.Attr             { return slog.String(KeyTimerID, id) }
func State(s string) slog.Attr                { return slog.String(KeyState, s) }
func PriorState(s string) slog.Attr           { return slog.String(KeyPrior, s) }
func Duration(d time.Duration) slog.Attr      { return slog.Duration(KeyDuration, d) }
func Remaining(d time.Duration) slog.Attr     { return slog.Duration(KeyRemaining, d) }
func EndAt(t time.Time) slog.Attr             { return slog.Time(KeyEndAt, t) }
func Overdue(d time.Duration) slog.Attr       { return slog.Duration(KeyOverdue, d) }
func Subject(s string) slog.Attr              { return slog.String(KeySubject, s) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
