package main

import (
	"context"

	"github.com/spf13/cobra"

	"mercator-hq/bidguard/pkg/cli"
	"mercator-hq/bidguard/pkg/override"
)

var overrideCmd = &cobra.Command{
	Use:   "override",
	Short: "Inspect override records",
	Long: `Inspect the records kept for every bypass and emergency allowance.

Each record names the entity, the reason, and who authorized it. Records
are never updated or deleted.`,
}

var overrideListFlags struct {
	entity string
	bidID  string
	kind   string
	since  string
	limit  int
	format string
}

var overrideListCmd = &cobra.Command{
	Use:   "list",
	Short: "List override records",
	Long: `List override records, oldest first.

Examples:
  bidguard override list
  bidguard override list --kind emergency --since 2026-10-01T00:00:00Z
  bidguard override list --entity "Acme Steel" --format json`,
	RunE: listOverrides,
}

func init() {
	rootCmd.AddCommand(overrideCmd)
	overrideCmd.AddCommand(overrideListCmd)

	f := overrideListCmd.Flags()
	f.StringVar(&overrideListFlags.entity, "entity", "", "entity name")
	f.StringVar(&overrideListFlags.bidID, "bid-id", "", "bid ID")
	f.StringVar(&overrideListFlags.kind, "kind", "", "record kind: bypass, emergency")
	f.StringVar(&overrideListFlags.since, "since", "", "records at or after this RFC3339 time")
	f.IntVar(&overrideListFlags.limit, "limit", 0, "maximum records (0 for all)")
	f.StringVar(&overrideListFlags.format, "format", "text", "output format: text, json")
}

func listOverrides(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(overrideListFlags.format)
	if err != nil {
		return err
	}
	filter := override.Filter{
		Entity: overrideListFlags.entity,
		BidID:  overrideListFlags.bidID,
		Limit:  overrideListFlags.limit,
	}
	switch k := override.Kind(overrideListFlags.kind); k {
	case "", override.KindBypass, override.KindEmergency:
		filter.Kind = k
	default:
		return cli.NewConfigError("kind", "must be bypass or emergency")
	}
	if filter.Since, err = parseTime("since", overrideListFlags.since); err != nil {
		return err
	}

	return run(cmd.Context(), "override list", func(ctx context.Context, a *app) error {
		store, err := a.overrideStore()
		if err != nil {
			return cli.NewCommandError("override list", err)
		}
		records, err := store.List(ctx, filter)
		if err != nil {
			return cli.NewCommandError("override list", err)
		}
		if records == nil {
			records = []override.Record{}
		}
		return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), overrideList(records))
	})
}
