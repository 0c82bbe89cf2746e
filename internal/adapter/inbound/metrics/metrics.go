// Package metrics registers guardctl's Prometheus instrumentation.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every Prometheus collector guardctl records against. Pass
// to the components that observe the corresponding event.
type Metrics struct {
	PolicyEvaluationsTotal *prometheus.CounterVec
	HITLWaitSeconds        prometheus.Histogram
	ApprovalPending        prometheus.Gauge
	ReviewerTimeoutsTotal  prometheus.Counter
}

// New creates and registers guardctl's metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		PolicyEvaluationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "guardctl",
				Name:      "policy_evaluations_total",
				Help:      "Total policy resolutions, labeled by the resulting strategy.",
			},
			[]string{"strategy"}, // allow/deny/filter/aitl/hitl/pitl
		),
		HITLWaitSeconds: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "guardctl",
				Name:      "hitl_wait_seconds",
				Help:      "Time spent waiting for a chat/bot/phone approval to resolve.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 16), // 10ms .. ~300s
			},
		),
		ApprovalPending: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: "guardctl",
				Name:      "approval_pending",
				Help:      "1 while a chat or bot approval is outstanding, 0 otherwise.",
			},
		),
		ReviewerTimeoutsTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "guardctl",
				Name:      "reviewer_timeouts_total",
				Help:      "Total AITL reviewer calls that exceeded the 30s review timeout.",
			},
		),
	}
}

// ObserveHITLWait records the time a turn spent blocked on a chat/bot/phone
// approval resolving.
func (m *Metrics) ObserveHITLWait(d time.Duration) {
	m.HITLWaitSeconds.Observe(d.Seconds())
}

// IncPolicyEvaluation records a completed policy resolution, labeled by its
// resulting strategy ("allow", "deny", "filter", "aitl", "hitl" or "pitl").
func (m *Metrics) IncPolicyEvaluation(strategy string) {
	m.PolicyEvaluationsTotal.WithLabelValues(strategy).Inc()
}

// IncReviewerTimeout records an AITL reviewer call that exceeded its
// timeout.
func (m *Metrics) IncReviewerTimeout() {
	m.ReviewerTimeoutsTotal.Inc()
}

// SetApprovalPending reflects whether any chat/bot approval is currently
// outstanding.
func (m *Metrics) SetApprovalPending(pending bool) {
	if pending {
		m.ApprovalPending.Set(1)
		return
	}
	m.ApprovalPending.Set(0)
}
