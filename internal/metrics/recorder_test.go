package metrics

import (
	"testing"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	r := NewPrometheusRecorder(reg)

	r.IncTransition("idle", "active")
	r.IncTransition("active", "paused")
	r.IncTransition("paused", "active")
	r.IncTransition("active", "idle")
	r.IncFinished()
	r.IncRestore(RestoreResumed)
	r.IncRestore(RestoreMissed)
	r.IncRejectedOperation("pause")

	// Basic scrape to ensure metrics encode without panic.
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(mfs) == 0 {
		t.Fatalf("expected metrics, got none")
	}

	if got := testutil.ToFloat64(r.finished); got != 1 {
		t.Fatalf("finished counter = %v, want 1", got)
	}
	// idle->active, paused->active, active->paused, active->idle plus one
	// resumed restore leaves exactly one timer counting down.
	if got := testutil.ToFloat64(r.activeTimers); got != 1 {
		t.Fatalf("active gauge = %v, want 1", got)
	}
}

func TestNoopRecorderIsUsableZeroValue(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.IncTransition("idle", "active")
	r.IncFinished()
	r.IncRestore(RestoreFinished)
	r.IncRejectedOperation("cancel")
}
