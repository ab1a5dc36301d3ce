// Package otel publishes goSession counters through an OpenTelemetry Meter.
//
// [NewExporter] registers one Int64ObservableCounter per counter and, for the
// verify-latency histogram, a "_bucket" gauge carrying an "le" attribute per
// cumulative bucket plus a "_count" gauge. A single callback reads
// [goSession.Manager.MetricsSnapshot] on each collection cycle. Callers own the
// MeterProvider.
package otel
