// Package prometheus exposes goSession counters as a prometheus.Collector.
//
// Register a [Collector] with any registry, or mount [Handler] for a dedicated
// /metrics endpoint. Counter names are prefixed gosession_ and end in _total; the
// single histogram is gosession_verify_latency_seconds.
package prometheus
