// Package metrics defines the Prometheus collectors exported at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ProbesTotal counts availability checks by verdict: available, taken,
	// invalid, reserved, forged_page_id, error.
	ProbesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "joepages_probes_total",
		Help: "Slug availability checks by verdict.",
	}, []string{"verdict"})

	ProbesRateLimitedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "joepages_probes_rate_limited_total",
		Help: "Availability checks rejected by the per-user rate limit.",
	})

	// UpsertsTotal counts page writes by outcome: created, updated, invalid,
	// not_found, conflict, error.
	UpsertsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "joepages_upserts_total",
		Help: "Page upserts by outcome.",
	}, []string{"outcome"})

	WriteConflictsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "joepages_write_conflicts_total",
		Help: "Slug conflicts caught by the unique index after the pre-check passed.",
	})

	AuthEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "joepages_auth_events_total",
		Help: "Authentication events by kind and result.",
	}, []string{"event", "result"})

	PagesTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "joepages_pages_total",
		Help: "Total number of profile pages in the database.",
	})
)
