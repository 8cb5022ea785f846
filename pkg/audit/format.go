package audit

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimestampLayout is the fixed-width UTC layout of the first column.
const TimestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

const fieldSep = " | "

// FormatLine renders an entry as one audit log line (without newline):
//
//	timestamp | event_type | category | entity | result | reason | seq=N | bid=ID | actor=A | prev=H | hash=H
//
// Pipes, backslashes, and line breaks inside fields are backslash-escaped.
func FormatLine(e *Entry) string {
	return encodeBody(e) + fieldSep + "hash=" + e.Hash
}

func encodeBody(e *Entry) string {
	fields := []string{
		e.Timestamp.UTC().Format(TimestampLayout),
		escapeField(string(e.EventType)),
		escapeField(e.Category),
		escapeField(e.Entity),
		escapeField(string(e.Result)),
		escapeField(e.Reason),
		"seq=" + strconv.FormatUint(e.Seq, 10),
		"bid=" + escapeField(e.BidID),
		"actor=" + escapeField(e.Actor),
		"prev=" + e.PrevHash,
	}
	return strings.Join(fields, fieldSep)
}

// ParseLine parses a line produced by FormatLine.
func ParseLine(line string) (Entry, error) {
	fields := splitFields(line)
	if len(fields) != 11 {
		return Entry{}, fmt.Errorf("expected 11 fields, got %d", len(fields))
	}

	ts, err := time.Parse(TimestampLayout, fields[0])
	if err != nil {
		return Entry{}, fmt.Errorf("bad timestamp: %w", err)
	}

	var e Entry
	e.Timestamp = ts.UTC()
	e.EventType = EventType(fields[1])
	e.Category = fields[2]
	e.Entity = fields[3]
	e.Result = Result(fields[4])
	e.Reason = fields[5]

	tagged := map[string]*string{}
	var seqStr string
	tagged["seq="] = &seqStr
	tagged["bid="] = &e.BidID
	tagged["actor="] = &e.Actor
	tagged["prev="] = &e.PrevHash
	tagged["hash="] = &e.Hash
	for i, prefix := range []string{"seq=", "bid=", "actor=", "prev=", "hash="} {
		f := fields[6+i]
		if !strings.HasPrefix(f, prefix) {
			return Entry{}, fmt.Errorf("field %d: expected %q prefix", 6+i, prefix)
		}
		*tagged[prefix] = strings.TrimPrefix(f, prefix)
	}

	e.Seq, err = strconv.ParseUint(seqStr, 10, 64)
	if err != nil {
		return Entry{}, fmt.Errorf("bad seq: %w", err)
	}
	return e, nil
}

func escapeField(s string) string {
	if !strings.ContainsAny(s, "|\\\n\r") {
		return s
	}
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '|':
			b.WriteString(`\|`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// splitFields splits on unescaped pipes, unescapes each field, and strips
// the single space on either side that the separator adds.
func splitFields(line string) []string {
	var fields []string
	var cur strings.Builder
	escaped := false

	flush := func() {
		f := cur.String()
		f = strings.TrimPrefix(f, " ")
		f = strings.TrimSuffix(f, " ")
		fields = append(fields, f)
		cur.Reset()
	}

	for _, r := range line {
		if escaped {
			switch r {
			case 'n':
				cur.WriteRune('\n')
			case 'r':
				cur.WriteRune('\r')
			default:
				cur.WriteRune(r)
			}
			escaped = false
			continue
		}
		switch r {
		case '\\':
			escaped = true
		case '|':
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return fields
}
