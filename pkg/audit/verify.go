package audit

import (
	"bufio"
	"fmt"
	"os"
)

// VerifyResult is the outcome of walking a log's hash chain.
type VerifyResult struct {
	Valid   bool `json:"valid"`
	Entries int  `json:"entries"`

	// ErrorLine is the 1-based line of the first failure, or 0.
	ErrorLine int    `json:"error_line,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Verify walks the log at path and checks that every line parses, that
// sequence numbers and timestamps strictly increase, that each entry's
// PrevHash names the previous entry, and that each hash is correct.
func Verify(path string) (VerifyResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return VerifyResult{}, NewStorageError("file", "verify", err)
	}
	defer f.Close()

	res := VerifyResult{Valid: true}
	prev := Entry{Hash: GenesisHash}
	fail := func(line int, format string, args ...any) {
		res.Valid = false
		res.ErrorLine = line
		res.Error = fmt.Sprintf(format, args...)
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if line == "" {
			continue
		}

		e, err := ParseLine(line)
		if err != nil {
			fail(lineNo, "parse: %v", err)
			return res, nil
		}
		if e.Seq != prev.Seq+1 {
			fail(lineNo, "sequence gap: expected %d, got %d", prev.Seq+1, e.Seq)
			return res, nil
		}
		if res.Entries > 0 && !e.Timestamp.After(prev.Timestamp) {
			fail(lineNo, "timestamp %s does not follow %s", e.Timestamp.Format(TimestampLayout), prev.Timestamp.Format(TimestampLayout))
			return res, nil
		}
		if e.PrevHash != prev.Hash {
			fail(lineNo, "chain broken: prev=%s, expected %s", e.PrevHash, prev.Hash)
			return res, nil
		}
		if want := HashEntry(&e); e.Hash != want {
			fail(lineNo, "hash mismatch: got %s, computed %s", e.Hash, want)
			return res, nil
		}

		res.Entries++
		prev = e
	}
	if err := scanner.Err(); err != nil {
		return VerifyResult{}, NewStorageError("file", "verify", err)
	}
	return res, nil
}
