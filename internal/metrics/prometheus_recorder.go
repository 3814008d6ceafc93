package metrics

import (
	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	transitions  *prom.CounterVec
	finished     prom.Counter
	restores     *prom.CounterVec
	rejectedOps  *prom.CounterVec
	activeTimers prom.Gauge
}

// NewPrometheusRecorder constructs and registers the timer metrics on reg.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}

	r := &PrometheusRecorder{
		transitions: prom.NewCounterVec(prom.CounterOpts{
			Name: "timerd_transitions_total",
			Help: "Timer state transitions by source and target state.",
		}, []string{"from", "to"}),
		finished: prom.NewCounter(prom.CounterOpts{
			Name: "timerd_finished_total",
			Help: "Timers that reached their deadline (including retroactive restore finishes).",
		}),
		restores: prom.NewCounterVec(prom.CounterOpts{
			Name: "timerd_restores_total",
			Help: "Restore reconciliation outcomes.",
		}, []string{"outcome"}),
		rejectedOps: prom.NewCounterVec(prom.CounterOpts{
			Name: "timerd_rejected_operations_total",
			Help: "Operations rejected as invalid transitions.",
		}, []string{"op"}),
		activeTimers: prom.NewGauge(prom.GaugeOpts{
			Name: "timerd_active_timers",
			Help: "Timers currently counting down.",
		}),
	}

	reg.MustRegister(r.transitions, r.finished, r.restores, r.rejectedOps, r.activeTimers)
	return r
}

// IncTransition counts a state transition and keeps the active gauge current.
func (r *PrometheusRecorder) IncTransition(from, to string) {
	r.transitions.WithLabelValues(from, to).Inc()
	if from != "active" && to == "active" {
		r.activeTimers.Inc()
	}
	if from == "active" && to != "active" {
		r.activeTimers.Dec()
	}
}

func (r *PrometheusRecorder) IncFinished() { r.finished.Inc() }

func (r *PrometheusRecorder) IncRestore(outcome RestoreOutcome) {
	r.restores.WithLabelValues(string(outcome)).Inc()
	// A resumed timer is counting down again; a retroactive finish passes
	// through active transiently and its finish transition decrements.
	if outcome == RestoreResumed || outcome == RestoreFinished {
		r.activeTimers.Inc()
	}
}

func (r *PrometheusRecorder) IncRejectedOperation(op string) {
	r.rejectedOps.WithLabelValues(op).Inc()
}
