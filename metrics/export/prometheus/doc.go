// Package prometheus exposes session manager metrics to Prometheus.
//
// [NewPrometheusExporter] wraps a [goSession.Manager]. The exporter can serve
// a hand-rendered exposition through [PrometheusExporter.Handler], or act as
// a client_golang collector registered on a caller-owned registry through
// [PrometheusExporter.RegistryHandler]. Counter names are prefixed
// gosession_*_total; the single histogram is gosession_refresh_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in the global Prometheus registry.
//   - Mutate manager state.
package prometheus
