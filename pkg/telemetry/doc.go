// Package telemetry groups the observability packages used by bidguard.
//
//   - logging: structured logging on log/slog
//   - metrics: Prometheus counters and histograms for decisions, ratings,
//     risk, and storage operations
//   - tracing: OpenTelemetry spans around bid evaluation
package telemetry
