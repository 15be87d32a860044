// Package observability provides the prometheus collectors fed by the
// reconciliation engine and the drag layer.
package observability

import "github.com/prometheus/client_golang/prometheus"

// Metrics bundles the engine's prometheus collectors.
type Metrics struct {
	FlushTotal     *prometheus.CounterVec
	FlushBatchSize prometheus.Histogram
	ResyncTotal    prometheus.Counter
	SectionCommits *prometheus.CounterVec
	DragOutcomes   *prometheus.CounterVec
}

// New creates and registers the collectors on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		FlushTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dashgrid_flush_total",
				Help: "Total item placement flushes by outcome",
			},
			[]string{"outcome"},
		),
		FlushBatchSize: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "dashgrid_flush_batch_size",
				Help:    "Placements per flush batch",
				Buckets: prometheus.ExponentialBuckets(1, 2, 8),
			},
		),
		ResyncTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "dashgrid_resync_total",
				Help: "Total canonical layout refetches",
			},
		),
		SectionCommits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dashgrid_section_commit_total",
				Help: "Total section reorder commits by outcome",
			},
			[]string{"outcome"},
		),
		DragOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dashgrid_drag_outcomes_total",
				Help: "Total drag gestures by outcome",
			},
			[]string{"outcome"},
		),
	}
	reg.MustRegister(m.FlushTotal, m.FlushBatchSize, m.ResyncTotal, m.SectionCommits, m.DragOutcomes)
	return m
}
