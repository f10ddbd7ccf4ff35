package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains all engine-level metrics (not component-specific)
type Metrics struct {
	// Store metrics
	StoreStatus       *prometheus.GaugeVec
	ActionsDispatched *prometheus.CounterVec
	DispatchDuration  *prometheus.HistogramVec
	ErrorsTotal       *prometheus.CounterVec

	// Selector metrics
	SelectorRecomputes    *prometheus.CounterVec
	SelectorNotifications *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all engine metrics
func NewMetrics() *Metrics {
	return &Metrics{
		StoreStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "synapse",
				Subsystem: "store",
				Name:      "status",
				Help:      "Store status (0=created, 1=initialized, 2=destroyed)",
			},
			[]string{"store"},
		),

		ActionsDispatched: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "synapse",
				Subsystem: "store",
				Name:      "actions_dispatched_total",
				Help:      "Total number of actions dispatched",
			},
			[]string{"store", "type"},
		),

		DispatchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "synapse",
				Subsystem: "store",
				Name:      "dispatch_duration_seconds",
				Help:      "End-to-end dispatch duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"store", "type"},
		),

		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "synapse",
				Subsystem: "store",
				Name:      "errors_total",
				Help:      "Total number of dispatch errors by classification",
			},
			[]string{"store", "class"},
		),

		SelectorRecomputes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "synapse",
				Subsystem: "selector",
				Name:      "recomputes_total",
				Help:      "Total number of selector recomputations",
			},
			[]string{"selector"},
		),

		SelectorNotifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "synapse",
				Subsystem: "selector",
				Name:      "notifications_total",
				Help:      "Total number of subscriber notifications",
			},
			[]string{"selector"},
		),
	}
}
