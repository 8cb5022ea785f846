package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"mercator-hq/bidguard/pkg/cli"
	"mercator-hq/bidguard/pkg/ledger"
	"mercator-hq/bidguard/pkg/rating"
)

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Manage the encrypted entity ledger",
	Long: `Manage the encrypted ledger of entity ratings and trust.

The ledger is encrypted with a 256-bit key kept in ledger.key_file, or
in the environment variable named by ledger.key_env. Without the key an
existing ledger cannot be read.`,
}

var ledgerInitKeyFlags struct {
	keyFile string
}

var ledgerInitKeyCmd = &cobra.Command{
	Use:   "init-key",
	Short: "Generate a new ledger key",
	Long: `Generate a random ledger key and write it with 0600 permissions.

An existing key file is never overwritten. Keep the key apart from the
ledger: losing it makes the ledger unreadable.

Examples:
  bidguard ledger init-key
  bidguard ledger init-key --key-file /etc/bidguard/ledger.key`,
	RunE: initLedgerKey,
}

var ledgerShowFlags struct {
	format string
}

var ledgerShowCmd = &cobra.Command{
	Use:   "show [ENTITY]",
	Short: "Show rated entities",
	Long: `Show every entity in the ledger, or the full history of one.

Examples:
  bidguard ledger show
  bidguard ledger show "Acme Steel" --format json`,
	Args: cobra.MaximumNArgs(1),
	RunE: showLedger,
}

var ledgerRestoreFlags struct {
	amount       float64
	reason       string
	authorizedBy string
	format       string
}

var ledgerRestoreCmd = &cobra.Command{
	Use:   "restore-trust ENTITY",
	Short: "Restore an entity's trust term",
	Long: `Raise an entity's trust term by a positive amount, capped at 100.

This is the only way trust goes up. The restoration is audited with the
reason and the person who authorized it.

Examples:
  bidguard ledger restore-trust "Acme Steel" --amount 10 \
    --reason "corrective action plan accepted" --authorized-by j.doe`,
	Args: cobra.ExactArgs(1),
	RunE: restoreTrust,
}

func init() {
	rootCmd.AddCommand(ledgerCmd)
	ledgerCmd.AddCommand(ledgerInitKeyCmd, ledgerShowCmd, ledgerRestoreCmd)

	ledgerInitKeyCmd.Flags().StringVar(&ledgerInitKeyFlags.keyFile, "key-file", "", "key file path (defaults to ledger.key_file)")

	ledgerShowCmd.Flags().StringVar(&ledgerShowFlags.format, "format", "text", "output format: text, json")

	f := ledgerRestoreCmd.Flags()
	f.Float64Var(&ledgerRestoreFlags.amount, "amount", 0, "trust points to restore")
	f.StringVar(&ledgerRestoreFlags.reason, "reason", "", "why trust is restored")
	f.StringVar(&ledgerRestoreFlags.authorizedBy, "authorized-by", "", "who authorized the restoration")
	f.StringVar(&ledgerRestoreFlags.format, "format", "text", "output format: text, json")
	_ = ledgerRestoreCmd.MarkFlagRequired("amount")
	_ = ledgerRestoreCmd.MarkFlagRequired("reason")
	_ = ledgerRestoreCmd.MarkFlagRequired("authorized-by")
}

func initLedgerKey(cmd *cobra.Command, args []string) error {
	return run(cmd.Context(), "ledger init-key", func(ctx context.Context, a *app) error {
		path := ledgerInitKeyFlags.keyFile
		if path == "" {
			path = a.cfg.Ledger.KeyFile
		}
		if _, err := ledger.GenerateKey(path); err != nil {
			return cli.NewCommandError("ledger init-key", err)
		}
		a.logger.Info("generated ledger key", "key_file", path)
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "Ledger key written to %s\n", path)
		return err
	})
}

func showLedger(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(ledgerShowFlags.format)
	if err != nil {
		return err
	}

	return run(cmd.Context(), "ledger show", func(ctx context.Context, a *app) error {
		store, err := a.ledgerStore()
		if err != nil {
			return cli.NewCommandError("ledger show", err)
		}
		// Read only: the session is never closed, so nothing is saved.
		sess, err := store.Open(ctx)
		if err != nil {
			return cli.NewCommandError("ledger show", err)
		}

		out := cli.NewFormatter(format)
		if len(args) == 0 {
			return out.FormatTo(cmd.OutOrStdout(), entityList(sess.Entities()))
		}
		ent, ok := sess.Entity(args[0])
		if !ok {
			return cli.NewCommandError("ledger show", fmt.Errorf("%w: %q", rating.ErrUnknownEntity, args[0]))
		}
		return out.FormatTo(cmd.OutOrStdout(), entityDetail{ent})
	})
}

func restoreTrust(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(ledgerRestoreFlags.format)
	if err != nil {
		return err
	}

	return run(cmd.Context(), "ledger restore-trust", func(ctx context.Context, a *app) error {
		sess, err := a.openSession(ctx)
		if err != nil {
			return cli.NewCommandError("ledger restore-trust", err)
		}
		sink, err := a.auditSink()
		if err != nil {
			return err
		}
		engine, err := rating.NewEngine(rating.Options{
			Config:  a.cfg.Rating,
			Ledger:  sess,
			Audit:   sink,
			Logger:  a.logger,
			Metrics: a.metrics,
			Tracer:  a.tracer,
		})
		if err != nil {
			return err
		}

		ev, err := engine.RestoreTrust(ctx, args[0], ledgerRestoreFlags.amount, ledgerRestoreFlags.reason, ledgerRestoreFlags.authorizedBy)
		if err != nil {
			return cli.NewCommandError("ledger restore-trust", err)
		}
		return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), trustView{Entity: args[0], Event: *ev})
	})
}
