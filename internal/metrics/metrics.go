// Package metrics provides Prometheus instrumentation for the moderation
// service. It exposes counters for verdicts, reports and escalations, and
// histograms for classification and escalation latency.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// VerdictsTotal counts classified texts, labeled by context and result
	// ("clean" or "flagged").
	VerdictsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "moderation_verdicts_total",
		Help: "Total number of texts classified",
	}, []string{"context", "result"})

	// ViolationsTotal counts matched violation categories.
	ViolationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "moderation_violations_total",
		Help: "Total number of violation categories matched",
	}, []string{"category"})

	// FilterLatency records FilterContent latency in seconds.
	FilterLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "moderation_filter_latency_seconds",
		Help:    "Text classification latency in seconds",
		Buckets: []float64{.00001, .00005, .0001, .00025, .0005, .001, .005, .01},
	})

	// SpamMessagesTotal counts chat messages rejected as duplicates.
	SpamMessagesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "moderation_spam_messages_total",
		Help: "Total number of chat messages flagged as duplicate or near-duplicate",
	})

	// ReportsTotal counts report submissions, labeled by subject kind and
	// outcome ("counted", "duplicate", "rate_limited", "invalid", "error").
	ReportsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "moderation_reports_total",
		Help: "Total number of report submissions",
	}, []string{"kind", "outcome"})

	// EscalationsTotal counts escalation checks by subject kind and action.
	EscalationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "moderation_escalations_total",
		Help: "Total number of escalation checks",
	}, []string{"kind", "action"})

	// EscalationFailures counts escalation checks that failed and were dropped.
	EscalationFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "moderation_escalation_failures_total",
		Help: "Total number of escalation checks that failed",
	}, []string{"kind"})

	// EscalationLatency records the duration of one escalation check.
	EscalationLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "moderation_escalation_latency_seconds",
		Help:    "Escalation check latency in seconds",
		Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
	})

	// RequestsTotal counts moderation requests received over NATS by type.
	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "moderation_requests_total",
		Help: "Total number of moderation requests handled",
	}, []string{"type"})
)

func init() {
	prometheus.MustRegister(
		VerdictsTotal,
		ViolationsTotal,
		FilterLatency,
		SpamMessagesTotal,
		ReportsTotal,
		EscalationsTotal,
		EscalationFailures,
		EscalationLatency,
		RequestsTotal,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
