// Package otel publishes spellauth engine metrics through OpenTelemetry.
//
// [NewOTelExporter] registers one Int64ObservableCounter per counter family,
// with the family label (result, op, purpose) as an attribute. Latency
// buckets and the per-role permission masks are gauges keyed by the le and
// role attributes. One callback reads the engine snapshot on each
// collection cycle.
//
// Callers own the MeterProvider and supply the Meter.
package otel
