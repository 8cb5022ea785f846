package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"mercator-hq/bidguard/pkg/cli"
	"mercator-hq/bidguard/pkg/policy"
)

var checkFlags struct {
	category     string
	bypassReason string
	authorizedBy string
	bidID        string
	format       string
}

var checkCmd = &cobra.Command{
	Use:   "check ENTITY",
	Short: "Check one entity against the policy lists",
	Long: `Decide whether an entity may take part in a bid.

The check is audited exactly like a check made during evaluate. A bypass
applies only when bypass is enabled globally and for the category, and a
reason is given. In strict mode a Blocked or Rejected result exits 2.

Examples:
  # Check a supplier
  bidguard check "Acme Steel" --category Supplier

  # Check with a documented bypass
  bidguard check "Acme Steel" --category Supplier \
    --bypass-reason "sole source for anchor bolts" --authorized-by j.doe`,
	Args: cobra.ExactArgs(1),
	RunE: checkEntity,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVar(&checkFlags.category, "category", "", "entity category: Manufacturer, Supplier, Subcontractor")
	checkCmd.Flags().StringVar(&checkFlags.bypassReason, "bypass-reason", "", "reason for a manual bypass")
	checkCmd.Flags().StringVar(&checkFlags.authorizedBy, "authorized-by", "", "who authorized the bypass")
	checkCmd.Flags().StringVar(&checkFlags.bidID, "bid-id", "", "bid the check belongs to")
	checkCmd.Flags().StringVar(&checkFlags.format, "format", "text", "output format: text, json")
	_ = checkCmd.MarkFlagRequired("category")
}

func checkEntity(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(checkFlags.format)
	if err != nil {
		return err
	}
	category, err := policy.ParseCategory(checkFlags.category)
	if err != nil {
		return cli.NewConfigError("category", err.Error())
	}

	return run(cmd.Context(), "check", func(ctx context.Context, a *app) error {
		events, err := a.learnEvents(ctx)
		if err != nil {
			return cli.NewCommandError("check", err)
		}
		eval, err := a.evaluator(events)
		if err != nil {
			return err
		}

		d, err := eval.Evaluate(ctx, policy.Request{
			Entity:       args[0],
			Category:     category,
			BypassReason: checkFlags.bypassReason,
			AuthorizedBy: checkFlags.authorizedBy,
			BidID:        checkFlags.bidID,
		})
		if err != nil && !errors.Is(err, policy.ErrPolicyHardStop) {
			return cli.NewCommandError("check", err)
		}
		if ferr := cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), decisionView{d}); ferr != nil {
			return ferr
		}
		return err
	})
}
