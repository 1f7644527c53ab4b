// Package otel provides OpenTelemetry metric bindings for session manager
// counters and histograms.
//
// [NewOTelExporter] registers an Int64ObservableCounter for each manager
// counter and an Int64ObservableGauge per histogram bucket. A single callback
// reads [goSession.Manager.MetricsSnapshot] on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the OTel MeterProvider. Callers supply the Meter.
//   - Mutate manager state.
package otel
