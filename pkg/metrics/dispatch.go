package metrics

import "github.com/prometheus/client_golang/prometheus"

// DispatchMetrics counts per-technician delivery attempts.
type DispatchMetrics struct {
	deliveries *prometheus.CounterVec
	runs       prometheus.Counter
}

// NewDispatchMetrics registers dispatch collectors on the provided registerer.
func NewDispatchMetrics(reg prometheus.Registerer) *DispatchMetrics {
	if reg == nil {
		return &DispatchMetrics{}
	}
	deliveries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_deliveries_total",
		Help: "Technician offer deliveries by result.",
	}, []string{"result"})
	runs := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_runs_total",
		Help: "Dispatch invocations that reached the fan-out stage.",
	})
	reg.MustRegister(deliveries, runs)
	return &DispatchMetrics{deliveries: deliveries, runs: runs}
}

func (d *DispatchMetrics) IncRun() {
	if d == nil || d.runs == nil {
		return
	}
	d.runs.Inc()
}

// IncDelivery records one delivery outcome: "sent", "failed" or "skipped".
func (d *DispatchMetrics) IncDelivery(result string) {
	if d == nil || d.deliveries == nil {
		return
	}
	d.deliveries.WithLabelValues(normalizeLabel(result)).Inc()
}

// AcceptanceMetrics counts acceptance outcomes.
type AcceptanceMetrics struct {
	outcomes *prometheus.CounterVec
}

func NewAcceptanceMetrics(reg prometheus.Registerer) *AcceptanceMetrics {
	if reg == nil {
		return &AcceptanceMetrics{}
	}
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "acceptance_outcomes_total",
		Help: "Acceptance attempts by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(outcomes)
	return &AcceptanceMetrics{outcomes: outcomes}
}

func (a *AcceptanceMetrics) IncOutcome(outcome string) {
	if a == nil || a.outcomes == nil {
		return
	}
	a.outcomes.WithLabelValues(normalizeLabel(outcome)).Inc()
}
