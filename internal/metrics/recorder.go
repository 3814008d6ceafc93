package metrics

// RestoreOutcome enumerates reconciliation results for the restore counter.
type RestoreOutcome string

const (
	RestoreResumed  RestoreOutcome = "resumed"  // deadline still ahead, alarm re-armed
	RestoreIdle     RestoreOutcome = "idle"     // idle snapshot restored verbatim
	RestorePaused   RestoreOutcome = "paused"   // paused snapshot restored verbatim
	RestoreFinished RestoreOutcome = "finished" // expired within grace, finish fired
	RestoreMissed   RestoreOutcome = "missed"   // expired beyond grace, silent idle
)

// Recorder defines observability hooks for timer transitions. Implementations
// may forward to Prometheus, OpenTelemetry, etc. The NoopRecorder is the default
// when metrics are not configured.
type Recorder interface {
	IncTransition(from, to string)
	IncFinished()
	IncRestore(outcome RestoreOutcome)
	IncRejectedOperation(op string)
}

// NoopRecorder is a Recorder that does nothing.
type NoopRecorder struct{}

func (NoopRecorder) IncTransition(string, string)    {}
func (NoopRecorder) IncFinished()                    {}
func (NoopRecorder) IncRestore(RestoreOutcome)       {}
func (NoopRecorder) IncRejectedOperation(string)     {}
