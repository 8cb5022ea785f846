package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"mercator-hq/bidguard/pkg/audit"
	"mercator-hq/bidguard/pkg/bid"
	"mercator-hq/bidguard/pkg/ledger"
	"mercator-hq/bidguard/pkg/override"
	"mercator-hq/bidguard/pkg/policy"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func score(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// evaluationReport is the result of an evaluate run, one outcome per bid.
type evaluationReport []*bid.Outcome

func (r evaluationReport) RenderText(w io.Writer) error {
	for i, out := range r {
		if i > 0 {
			fmt.Fprintln(w)
		}
		if err := renderOutcome(w, out); err != nil {
			return err
		}
	}
	return nil
}

func renderOutcome(w io.Writer, out *bid.Outcome) error {
	status := "completed"
	if out.Halted {
		status = "halted"
	}
	fmt.Fprintf(w, "Bid %s %s in %s\n", out.BidID, status, out.Duration.Round(time.Millisecond))

	fmt.Fprintln(w, "\nChecks:")
	tw := newTable(w)
	for _, d := range out.Decisions {
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", d.Category, d.Entity, d.Result, d.Reason)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if out.Halted {
		_, err := fmt.Fprintf(w, "\nbid halted: %s\n", out.HaltReason)
		return err
	}

	if len(out.Ratings) > 0 {
		fmt.Fprintln(w, "\nRatings:")
		tw = newTable(w)
		fmt.Fprintln(tw, "  ENTITY\tSCORE\tTIMELINESS\tFAIRNESS\tTRUST\tNOTE")
		for _, pr := range out.Ratings {
			if pr.Result == nil {
				fmt.Fprintf(tw, "  %s\t-\t-\t-\t-\t%s\n", pr.Name, pr.Error)
				continue
			}
			res := pr.Result
			note := ""
			if res.FellBelowThreshold {
				note = "below floor"
			}
			fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\t%s\t%s\n", res.Entity, score(res.Score),
				score(res.Breakdown.Timeliness), score(res.Breakdown.Fairness), score(res.Breakdown.Trust), note)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if p := out.Risk; p != nil {
		fmt.Fprintf(w, "\nRisk: %s (%s), margin %.1f%%\n", p.Level, strconv.FormatFloat(p.Score, 'f', -1, 64), p.Margin*100)
		for _, c := range p.Contributions {
			fmt.Fprintf(w, "  +%s %s", strconv.FormatFloat(c.Points, 'f', -1, 64), c.Name)
			if c.Detail != "" {
				fmt.Fprintf(w, ": %s", c.Detail)
			}
			fmt.Fprintln(w)
		}
		if len(p.Flags) > 0 {
			fmt.Fprintf(w, "  flags: %s\n", strings.Join(p.Flags, ", "))
		}
	}
	return nil
}

// decisionView is the result of a single check.
type decisionView struct {
	policy.Decision
}

func (v decisionView) RenderText(w io.Writer) error {
	fmt.Fprintf(w, "%s %s: %s (%s)\n", v.Category, v.Entity, v.Result, v.Reason)
	if o := v.Override; o != nil {
		fmt.Fprintf(w, "override %s %s authorized by %s\n", o.Kind, o.ID, o.AuthorizedBy)
	}
	return nil
}

type entryList []audit.Entry

func (l entryList) RenderText(w io.Writer) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "SEQ\tTIME\tEVENT\tCATEGORY\tENTITY\tRESULT\tREASON")
	for _, e := range l {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n", e.Seq, e.Timestamp.Format(time.RFC3339),
			e.EventType, e.Category, e.Entity, e.Result, e.Reason)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%s entries\n", humanize.Comma(int64(len(l))))
	return err
}

type verifyView struct {
	Path string `json:"path"`
	audit.VerifyResult
}

func (v verifyView) RenderText(w io.Writer) error {
	if v.Valid {
		_, err := fmt.Fprintf(w, "%s: chain intact, %s entries\n", v.Path, humanize.Comma(int64(v.Entries)))
		return err
	}
	_, err := fmt.Fprintf(w, "%s: verification failed at line %d: %s\n", v.Path, v.ErrorLine, v.Error)
	return err
}

type entityList []*ledger.Entity

func (l entityList) RenderText(w io.Writer) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "ENTITY\tCATEGORY\tSCORE\tTRUST\tTRANSACTIONS\tLAST UPDATED")
	for _, e := range l {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n", e.Name, e.Category, score(e.CurrentScore),
			score(e.TrustTerm), e.LifetimeTransactionCount, humanize.Time(e.LastUpdated))
	}
	return tw.Flush()
}

type entityDetail struct {
	*ledger.Entity
}

func (d entityDetail) RenderText(w io.Writer) error {
	e := d.Entity
	fmt.Fprintf(w, "%s (%s)\n", e.Name, e.Category)
	fmt.Fprintf(w, "  score         %s\n", score(e.CurrentScore))
	fmt.Fprintf(w, "  trust         %s\n", score(e.TrustTerm))
	fmt.Fprintf(w, "  transactions  %d\n", e.LifetimeTransactionCount)
	fmt.Fprintf(w, "  avg latency   %.1fh\n", e.AvgLatency)
	fmt.Fprintf(w, "  avg variance  %+.1f%%\n", e.AvgVariance*100)
	fmt.Fprintf(w, "  first seen    %s\n", humanize.Time(e.FirstSeen))

	if len(e.History) > 0 {
		fmt.Fprintln(w, "\nHistory:")
		tw := newTable(w)
		for _, r := range e.History {
			fmt.Fprintf(tw, "  %s\t%s\tquoted $%s\tbaseline $%s\t%s\n", r.Timestamp.Format(time.RFC3339), score(r.ResultingScore),
				humanize.CommafWithDigits(r.QuotedPrice, 2), humanize.CommafWithDigits(r.BaselinePrice, 2), r.BidID)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if len(e.TrustEvents) > 0 {
		fmt.Fprintln(w, "\nTrust events:")
		tw := newTable(w)
		for _, ev := range e.TrustEvents {
			fmt.Fprintf(tw, "  %s\t%s\t%s -> %s\t%s\n", ev.Timestamp.Format(time.RFC3339), ev.Kind,
				score(ev.Before), score(ev.After), ev.Reason)
		}
		return tw.Flush()
	}
	return nil
}

type trustView struct {
	Entity string            `json:"entity"`
	Event  ledger.TrustEvent `json:"event"`
}

func (v trustView) RenderText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "%s trust %s -> %s\n", v.Entity, score(v.Event.Before), score(v.Event.After))
	return err
}

type snapshotView struct {
	policy.Snapshot
}

func (v snapshotView) RenderText(w io.Writer) error {
	fmt.Fprintf(w, "mode: %s, strict: %t\n", v.Mode, v.Strict)
	fmt.Fprintf(w, "\ndenylist (%d):\n", len(v.Denylist))
	for _, n := range v.Denylist {
		fmt.Fprintf(w, "  %s\n", n)
	}
	fmt.Fprintf(w, "\nallowlist (%d):\n", len(v.Allowlist))
	for _, n := range v.Allowlist {
		fmt.Fprintf(w, "  %s\n", n)
	}
	return nil
}

type overrideList []override.Record

func (l overrideList) RenderText(w io.Writer) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "TIME\tKIND\tCATEGORY\tENTITY\tAUTHORIZED BY\tBID\tREASON")
	for _, r := range l {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n", r.Timestamp.Format(time.RFC3339), r.Kind,
			r.Category, r.Entity, r.AuthorizedBy, r.BidID, r.Reason)
	}
	return tw.Flush()
}
