package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"mercator-hq/bidguard/pkg/cli"
	"mercator-hq/bidguard/pkg/policy"
)

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Manage the denylist and allowlist",
	Long: `Inspect and change the policy lists.

The list files named in ethics.denylist_file and ethics.allowlist_file
are the baseline. Changes made with "policy learn" are journaled in the
ledger and replayed over the baseline on every run.`,
}

var policyLearnFlags struct {
	list         string
	category     string
	reason       string
	authorizedBy string
	remove       bool
}

var policyLearnCmd = &cobra.Command{
	Use:   "learn ENTITY",
	Short: "Add an entity to a list, or remove it",
	Long: `Add an entity to the denylist or allowlist, or remove it with --remove.

Adding an entity to one list removes it from the other. Every change is
audited with its reason and author.

Examples:
  # Deny a subcontractor
  bidguard policy learn "Shortcut Framing" --list deny --category Subcontractor \
    --reason "failed site safety inspection" --authorized-by j.doe

  # Lift the entry again
  bidguard policy learn "Shortcut Framing" --list deny --remove \
    --reason "re-inspection passed" --authorized-by j.doe`,
	Args: cobra.ExactArgs(1),
	RunE: learnEntity,
}

var policyListFlags struct {
	format string
}

var policyListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the effective lists",
	Long: `Show the denylist and allowlist as the evaluator sees them: the
list files with every learned change applied.`,
	RunE: showPolicyLists,
}

func init() {
	rootCmd.AddCommand(policyCmd)
	policyCmd.AddCommand(policyLearnCmd, policyListCmd)

	f := policyLearnCmd.Flags()
	f.StringVar(&policyLearnFlags.list, "list", "", "list to change: deny, allow")
	f.StringVar(&policyLearnFlags.category, "category", string(policy.Supplier), "entity category")
	f.StringVar(&policyLearnFlags.reason, "reason", "", "why the list changes")
	f.StringVar(&policyLearnFlags.authorizedBy, "authorized-by", "", "who made the change")
	f.BoolVar(&policyLearnFlags.remove, "remove", false, "remove the entity instead of adding it")
	_ = policyLearnCmd.MarkFlagRequired("list")
	_ = policyLearnCmd.MarkFlagRequired("reason")
	_ = policyLearnCmd.MarkFlagRequired("authorized-by")

	policyListCmd.Flags().StringVar(&policyListFlags.format, "format", "text", "output format: text, json")
}

func learnEntity(cmd *cobra.Command, args []string) error {
	kind, err := policy.ParseListKind(policyLearnFlags.list)
	if err != nil {
		return cli.NewConfigError("list", err.Error())
	}
	category, err := policy.ParseCategory(policyLearnFlags.category)
	if err != nil {
		return cli.NewConfigError("category", err.Error())
	}

	return run(cmd.Context(), "policy learn", func(ctx context.Context, a *app) error {
		sess, err := a.openSession(ctx)
		if err != nil {
			return cli.NewCommandError("policy learn", err)
		}
		eval, err := a.evaluator(sess.LearnEvents())
		if err != nil {
			return err
		}

		err = eval.Learn(ctx, sess, policy.LearnRequest{
			Entity:   args[0],
			Category: category,
			List:     kind,
			Remove:   policyLearnFlags.remove,
			Reason:   policyLearnFlags.reason,
			Actor:    policyLearnFlags.authorizedBy,
		})
		if err != nil {
			return cli.NewCommandError("policy learn", err)
		}

		verb := "added to"
		if policyLearnFlags.remove {
			verb = "removed from"
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", args[0], verb, kind)
		return err
	})
}

func showPolicyLists(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(policyListFlags.format)
	if err != nil {
		return err
	}

	return run(cmd.Context(), "policy list", func(ctx context.Context, a *app) error {
		events, err := a.learnEvents(ctx)
		if err != nil {
			return cli.NewCommandError("policy list", err)
		}
		list, err := a.policyList(events)
		if err != nil {
			return err
		}
		return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), snapshotView{list.Snapshot()})
	})
}
