package batch

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Vlad92msk/synapse-sub001/metric"
)

// batchMetrics holds Prometheus metrics for batch processor activity.
type batchMetrics struct {
	added     prometheus.Counter
	bypassed  prometheus.Counter
	flushes   *prometheus.CounterVec
	coalesced prometheus.Counter
}

// newBatchMetrics creates and registers batch metrics with the provided registry.
func newBatchMetrics(registry *metric.MetricsRegistry, prefix string) (*batchMetrics, error) {
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "synapse",
			Subsystem:   "batch",
			Name:        name,
			ConstLabels: prometheus.Labels{"component": prefix},
			Help:        help,
		})
	}

	m := &batchMetrics{
		added:    counter("items_total", "Total number of items accepted into segments"),
		bypassed: counter("bypassed_total", "Total number of items executed without batching"),
		flushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "synapse",
			Subsystem:   "batch",
			Name:        "flushes_total",
			ConstLabels: prometheus.Labels{"component": prefix},
			Help:        "Total number of segment flushes by trigger",
		}, []string{"reason"}),
		coalesced: counter("coalesced_total", "Total number of items collapsed away by merges"),
	}

	registrations := []struct {
		name      string
		collector prometheus.Collector
	}{
		{"batch_items", m.added},
		{"batch_bypassed", m.bypassed},
		{"batch_flushes", m.flushes},
		{"batch_coalesced", m.coalesced},
	}
	for _, reg := range registrations {
		if err := registry.Register(prefix, reg.name, reg.collector); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *batchMetrics) recordAdd()    { m.added.Inc() }
func (m *batchMetrics) recordBypass() { m.bypassed.Inc() }
func (m *batchMetrics) recordFlush(reason FlushReason) {
	m.flushes.WithLabelValues(string(reason)).Inc()
}
func (m *batchMetrics) recordCoalesced(n int) {
	m.coalesced.Add(float64(n))
}
