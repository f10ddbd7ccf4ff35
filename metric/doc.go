// Package metric manages Prometheus metrics for the synapse engine.
//
// A MetricsRegistry wraps a private prometheus.Registry together with the
// core engine metrics (dispatch counters, batch flushes, selector
// recomputations, cache hit ratios). Components register their own
// collectors under a "component.metric" key so duplicate registrations are
// detected with a classified error instead of a Prometheus panic.
//
// Metrics are always optional: every component that accepts a
// *MetricsRegistry treats nil as "statistics only, no export".
package metric
