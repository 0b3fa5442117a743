package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the lifecycle state machine.
type Metrics struct {
	// Transition outcomes by outcome kind and action
	TransitionOutcome *prometheus.CounterVec

	// End-to-end transition latency, commit included
	TransitionLatency prometheus.Histogram

	// Signature production failures
	SigningFailures prometheus.Counter

	// Audit chains that failed verification
	ChainVerificationFailures prometheus.Counter
}

// New creates a Metrics instance with all state machine metrics registered.
func New() *Metrics {
	return &Metrics{
		TransitionOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "docgov_transition_outcomes_total",
			Help: "Total transition outcomes by kind and action",
		}, []string{"outcome", "action"}),

		TransitionLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "docgov_transition_duration_seconds",
			Help:    "Duration of full transition handling including signing and commit",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),

		SigningFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "docgov_signing_failures_total",
			Help: "Total signature production failures during transitions",
		}),

		ChainVerificationFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "docgov_audit_chain_verification_failures_total",
			Help: "Total audit chain verifications that reported divergence",
		}),
	}
}

// IncrementOutcome records a transition outcome.
func (m *Metrics) IncrementOutcome(outcome, action string) {
	if m != nil {
		m.TransitionOutcome.WithLabelValues(outcome, action).Inc()
	}
}

// ObserveTransitionLatency records the duration of one transition request.
func (m *Metrics) ObserveTransitionLatency(d time.Duration) {
	if m != nil {
		m.TransitionLatency.Observe(d.Seconds())
	}
}

// IncrementSigningFailure records a failed signature production.
func (m *Metrics) IncrementSigningFailure() {
	if m != nil {
		m.SigningFailures.Inc()
	}
}

// IncrementChainVerificationFailure records a divergent chain verification.
func (m *Metrics) IncrementChainVerificationFailure() {
	if m != nil {
		m.ChainVerificationFailures.Inc()
	}
}
