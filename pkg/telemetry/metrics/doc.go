// Package metrics provides Prometheus metrics for bidguard.
//
// # Metrics Categories
//
//   - Policy: decisions by category/result/event type, hard-stops, learns
//   - Rating: score distribution, below-floor events, trust changes
//   - Risk: assessments by level, score distribution, flags, bid outcomes
//   - Storage: ledger operation counts and durations, audit writes
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	defer collector.WriteTextfile("/var/lib/node_exporter/bidguard.prom")
//
// A command does not live long enough to be scraped, so the registry is
// written in the node_exporter textfile format when it exits.
package metrics
