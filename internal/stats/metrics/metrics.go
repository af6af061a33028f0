// Package metrics mirrors the in-process eligibility counters to Prometheus
// so scrapers see the same totals the stats endpoint reports.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	searchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "claimcheck_searches_total",
		Help: "Total number of finalized eligibility searches",
	})

	verdicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "claimcheck_verdicts_total",
		Help: "Total eligibility verdicts by result",
	}, []string{"result"}) // result: "eligible", "ineligible"

	reasons = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "claimcheck_verdict_reasons_total",
		Help: "Total eligibility verdicts by reason tag",
	}, []string{"reason"})
)

// RecordVerdict increments the Prometheus mirror for one finalized verdict.
func RecordVerdict(eligible bool, reason string) {
	searchesTotal.Inc()
	result := "ineligible"
	if eligible {
		result = "eligible"
	}
	verdicts.WithLabelValues(result).Inc()
	if reason != "" {
		reasons.WithLabelValues(reason).Inc()
	}
}
