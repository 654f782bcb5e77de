// Package metrics holds the Prometheus instruments for the audit core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups all counters the server registers. Construct once per
// process (or per test registry) and inject.
type Metrics struct {
	EventsAppended      *prometheus.CounterVec
	LedgerWriteFailures *prometheus.CounterVec
	AssetRecordsPurged  prometheus.Counter
	OrphansSwept        prometheus.Counter
	LoginFailures       prometheus.Counter
}

// New creates and registers all metrics against reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		EventsAppended: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "chapel_provenance_events_total",
			Help: "Provenance events appended, by event kind.",
		}, []string{"kind"}),
		LedgerWriteFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "chapel_ledger_write_failures_total",
			Help: "Ledger writes that failed and were reported to the operational log.",
		}, []string{"ledger"}),
		AssetRecordsPurged: factory.NewCounter(prometheus.CounterOpts{
			Name: "chapel_asset_records_purged_total",
			Help: "Asset records removed ahead of their owning entity's deletion.",
		}),
		OrphansSwept: factory.NewCounter(prometheus.CounterOpts{
			Name: "chapel_asset_orphans_swept_total",
			Help: "Orphaned asset records removed by the background sweeper.",
		}),
		LoginFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "chapel_login_failures_total",
			Help: "Failed login attempts recorded as access-denied events.",
		}),
	}
}
