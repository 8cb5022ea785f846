// Package policy is the compliance gate: it decides whether a named
// manufacturer, supplier, or subcontractor may take part in a bid.
//
// Decisions are Allowed, Blocked (denylist hit), or Rejected (absent from
// the allowlist). Emergency mode and per-category manual bypasses can
// allow anyone, but each use writes an override record and a Bypass audit
// entry. In strict mode a negative decision also returns a HardStopError,
// which aborts the bid.
//
// The base lists come from YAML files; the ledger's learn journal is
// replayed on top of them. Learn is the only way to change a list.
package policy
