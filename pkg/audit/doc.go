// Package audit provides the append-only audit trail for policy checks,
// bypasses, list changes, trust changes, and bid completion.
//
// The primary sink is a plaintext file with one line per entry:
//
//	timestamp | event_type | category | entity | result | reason | seq=N | bid=ID | actor=A | prev=H | hash=H
//
// The first six columns are the human-readable record. The trailing
// columns chain every entry to its predecessor with SHA-256, so Verify can
// detect edits, deletions, and reordering. Entries are synced to disk
// before Record returns.
//
// SQLiteIndex mirrors entries into an insert-only SQLite table for fast
// filtered queries. Tee combines the file log with the index. MemorySink
// serves tests.
package audit
