package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/bidguard/pkg/audit"
	"mercator-hq/bidguard/pkg/cli"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Query and verify the audit log",
	Long: `Inspect the append-only audit log.

Every check, bypass, list change, trust change, and bid outcome is one
hash-chained line in the log. Entries are never updated or deleted.`,
}

var auditQueryFlags struct {
	events   []string
	results  []string
	entity   string
	category string
	bidID    string
	since    string
	until    string
	limit    int
	index    bool
	format   string
}

var auditQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query audit entries",
	Long: `List audit entries matching every given filter, oldest first.

Entries are read from the log file. With --index they are read from the
SQLite index instead, which must be enabled in audit.sqlite_index.

Examples:
  # Everything recorded for one bid
  bidguard audit query --bid-id 7f9c

  # Blocked and rejected checks this month
  bidguard audit query --event Check --result Blocked --result Rejected --since 2026-10-01T00:00:00Z

  # Bypasses as JSON
  bidguard audit query --event Bypass --format json`,
	RunE: queryAudit,
}

var auditVerifyFlags struct {
	format string
}

var auditVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify the audit log hash chain",
	Long: `Walk the audit log and check its hash chain.

Every line must parse, sequence numbers and timestamps must strictly
increase, and every entry must name the hash of the one before it. A log
that fails exits 3.

Examples:
  bidguard audit verify
  bidguard audit verify --format json`,
	RunE: verifyAudit,
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditQueryCmd, auditVerifyCmd)

	f := auditQueryCmd.Flags()
	f.StringArrayVar(&auditQueryFlags.events, "event", nil, "event type: Check, Bypass, Final, Learn, Trust (repeatable)")
	f.StringArrayVar(&auditQueryFlags.results, "result", nil, "result: Allowed, Blocked, Rejected (repeatable)")
	f.StringVar(&auditQueryFlags.entity, "entity", "", "entity name")
	f.StringVar(&auditQueryFlags.category, "category", "", "entity category")
	f.StringVar(&auditQueryFlags.bidID, "bid-id", "", "bid ID")
	f.StringVar(&auditQueryFlags.since, "since", "", "entries at or after this RFC3339 time")
	f.StringVar(&auditQueryFlags.until, "until", "", "entries at or before this RFC3339 time")
	f.IntVar(&auditQueryFlags.limit, "limit", 0, "maximum entries (0 for all)")
	f.BoolVar(&auditQueryFlags.index, "index", false, "read from the SQLite index")
	f.StringVar(&auditQueryFlags.format, "format", "text", "output format: text, json")

	auditVerifyCmd.Flags().StringVar(&auditVerifyFlags.format, "format", "text", "output format: text, json")
}

func buildAuditFilter() (audit.Filter, error) {
	filter := audit.Filter{
		Entity:   auditQueryFlags.entity,
		Category: auditQueryFlags.category,
		BidID:    auditQueryFlags.bidID,
		Limit:    auditQueryFlags.limit,
	}
	for _, s := range auditQueryFlags.events {
		ev, err := parseEventType(s)
		if err != nil {
			return filter, err
		}
		filter.EventTypes = append(filter.EventTypes, ev)
	}
	for _, s := range auditQueryFlags.results {
		res, err := parseResult(s)
		if err != nil {
			return filter, err
		}
		filter.Results = append(filter.Results, res)
	}

	var err error
	if filter.Since, err = parseTime("since", auditQueryFlags.since); err != nil {
		return filter, err
	}
	if filter.Until, err = parseTime("until", auditQueryFlags.until); err != nil {
		return filter, err
	}
	if filter.Limit < 0 {
		return filter, cli.NewConfigError("limit", "must not be negative")
	}
	return filter, nil
}

func parseEventType(s string) (audit.EventType, error) {
	for _, ev := range []audit.EventType{audit.EventCheck, audit.EventBypass, audit.EventFinal, audit.EventLearn, audit.EventTrust} {
		if strings.EqualFold(s, string(ev)) {
			return ev, nil
		}
	}
	return "", cli.NewConfigError("event", fmt.Sprintf("unknown event type %q", s))
}

func parseResult(s string) (audit.Result, error) {
	for _, r := range []audit.Result{audit.ResultAllowed, audit.ResultBlocked, audit.ResultRejected} {
		if strings.EqualFold(s, string(r)) {
			return r, nil
		}
	}
	return "", cli.NewConfigError("result", fmt.Sprintf("unknown result %q", s))
}

func parseTime(field, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, cli.NewConfigError(field, fmt.Sprintf("invalid RFC3339 time: %v", err))
	}
	return t, nil
}

func queryAudit(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(auditQueryFlags.format)
	if err != nil {
		return err
	}
	filter, err := buildAuditFilter()
	if err != nil {
		return err
	}

	return run(cmd.Context(), "audit query", func(ctx context.Context, a *app) error {
		var entries []audit.Entry
		if auditQueryFlags.index {
			idx := a.cfg.Audit.SQLiteIndex
			if !idx.Enabled {
				return cli.NewConfigError("audit.sqlite_index.enabled", "the SQLite index is not enabled")
			}
			index, err := audit.NewSQLiteIndex(audit.SQLiteConfig{Path: idx.Path, BusyTimeout: idx.BusyTimeout})
			if err != nil {
				return cli.NewCommandError("audit query", err)
			}
			defer index.Close()
			entries, err = index.Query(ctx, filter)
			if err != nil {
				return cli.NewCommandError("audit query", err)
			}
		} else {
			entries, err = audit.ReadFile(ctx, a.cfg.Audit.Path, filter)
			if err != nil {
				return cli.NewCommandError("audit query", err)
			}
		}
		if entries == nil {
			entries = []audit.Entry{}
		}
		return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), entryList(entries))
	})
}

func verifyAudit(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(auditVerifyFlags.format)
	if err != nil {
		return err
	}

	return run(cmd.Context(), "audit verify", func(ctx context.Context, a *app) error {
		res, err := audit.Verify(a.cfg.Audit.Path)
		if err != nil {
			return cli.NewCommandError("audit verify", err)
		}
		if err := cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), verifyView{Path: a.cfg.Audit.Path, VerifyResult: res}); err != nil {
			return err
		}
		if !res.Valid {
			a.logger.Error("audit log failed verification", "path", a.cfg.Audit.Path, "line", res.ErrorLine, "error", res.Error)
			return fmt.Errorf("%w: line %d: %s", cli.ErrAuditTampered, res.ErrorLine, res.Error)
		}
		return nil
	})
}
