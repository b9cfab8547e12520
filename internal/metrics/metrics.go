package metrics

import (
	"time"

	"github.com/dukerupert/kinship/internal/genealogy"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects family tree build and state container counters.
type Metrics struct {
	builds        prometheus.Counter
	buildDuration prometheus.Histogram
	records       *prometheus.CounterVec
	reconciles    *prometheus.CounterVec
	refreshes     *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		builds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kinship",
			Name:      "tree_builds_total",
			Help:      "Full family tree rebuilds.",
		}),
		buildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "kinship",
			Name:      "tree_build_duration_seconds",
			Help:      "Time spent normalizing, linking and laying out a family tree.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kinship",
			Name:      "tree_records_total",
			Help:      "Member records seen by rebuilds, by outcome.",
		}, []string{"outcome"}),
		reconciles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kinship",
			Name:      "tree_reconciliations_total",
			Help:      "Optimistic insertions, by result.",
		}, []string{"result"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kinship",
			Name:      "tree_refreshes_total",
			Help:      "Authoritative refreshes, by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(m.builds, m.buildDuration, m.records, m.reconciles, m.refreshes)
	return m
}

// ObserveBuild records the diagnostics of one rebuild.
func (m *Metrics) ObserveBuild(stats genealogy.Stats, elapsed time.Duration) {
	m.builds.Inc()
	m.buildDuration.Observe(elapsed.Seconds())
	m.records.WithLabelValues("dropped").Add(float64(stats.Dropped))
	m.records.WithLabelValues("duplicate").Add(float64(stats.Duplicates))
	m.records.WithLabelValues("dangling_ref").Add(float64(stats.Dangling))
	m.records.WithLabelValues("disconnected").Add(float64(stats.Disconnected))
}

// Reconciled counts an optimistic insertion.
func (m *Metrics) Reconciled(applied bool) {
	if applied {
		m.reconciles.WithLabelValues("applied").Inc()
		return
	}
	m.reconciles.WithLabelValues("skipped").Inc()
}

// Refreshed counts an authoritative refresh outcome: "applied", "stale",
// "forgotten" or "error".
func (m *Metrics) Refreshed(result string) {
	m.refreshes.WithLabelValues(result).Inc()
}
