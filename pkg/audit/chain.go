package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// GenesisHash is the PrevHash of the first entry in a log.
const GenesisHash = "sha256:0000000000000000000000000000000000000000000000000000000000000000"

// HashEntry computes the chain hash of an entry: SHA-256 over its encoded
// line up to and including the prev column. Every sink uses the same
// encoding, so an entry mirrored from the file log into the SQLite index
// keeps its hash.
func HashEntry(e *Entry) string {
	sum := sha256.Sum256([]byte(encodeBody(e)))
	return "sha256:" + hex.EncodeToString(sum[:])
}

// chain tracks the tail of a log: the last sequence number, the last
// timestamp, and the last hash.
type chain struct {
	seq      uint64
	last     time.Time
	prevHash string
	now      func() time.Time
}

func newChain(now func() time.Time) chain {
	if now == nil {
		now = time.Now
	}
	return chain{prevHash: GenesisHash, now: now}
}

// resume positions the chain after an existing entry.
func (c *chain) resume(e Entry) {
	c.seq = e.Seq
	c.last = e.Timestamp
	c.prevHash = e.Hash
}

// stamp assigns the chain fields to e and advances the chain. The
// returned value is the prior state, for rollback when the write fails.
func (c *chain) stamp(e *Entry) chain {
	saved := *c

	ts := e.Timestamp
	if ts.IsZero() {
		ts = c.now()
	}
	ts = ts.UTC()
	if !ts.After(c.last) {
		ts = c.last.Add(time.Nanosecond)
	}

	c.seq++
	e.Seq = c.seq
	e.Timestamp = ts
	e.PrevHash = c.prevHash
	e.Hash = HashEntry(e)

	c.last = ts
	c.prevHash = e.Hash
	return saved
}
