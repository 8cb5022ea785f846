// Package rating scores entity transactions and keeps the ledger's
// per-entity statistics.
//
// A score combines three subscores, each in [0,100]:
//
//   - timeliness, a step function of reply latency
//   - fairness, from the quoted price's variance against a baseline
//   - trust, the entity's trust term plus a bounded per-transaction delta
//
// The trust term only falls on a confirmed violation and only rises
// through RestoreTrust. Both changes are written to the audit log.
package rating
