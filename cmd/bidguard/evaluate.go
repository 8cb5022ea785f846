package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"mercator-hq/bidguard/pkg/bid"
	"mercator-hq/bidguard/pkg/cli"
	"mercator-hq/bidguard/pkg/ledger"
	"mercator-hq/bidguard/pkg/policy"
)

var evaluateFlags struct {
	bids        []string
	format      string
	metricsFile string
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate one or more bids",
	Long: `Check, rate, and risk-grade the participants of a bid.

Each bid file is YAML (or JSON) naming the participants, the bid totals,
and the scope text. Participants are checked in order. In strict mode the
first Blocked or Rejected participant halts the bid: the command prints
"bid halted: <reason>" and exits 2.

Several bids share one ledger session. When ledger.flush_schedule is set,
the session is re-encrypted on that schedule while the bids run.

Examples:
  # Evaluate a bid
  bidguard evaluate --bid bid.yaml

  # Evaluate a batch and print JSON
  bidguard evaluate --bid north.yaml --bid south.yaml --format json

  # Write Prometheus metrics for node_exporter after the run
  bidguard evaluate --bid bid.yaml --metrics-file /var/lib/node_exporter/bidguard.prom`,
	RunE: evaluateBids,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().StringArrayVarP(&evaluateFlags.bids, "bid", "b", nil, "bid file (repeatable)")
	evaluateCmd.Flags().StringVar(&evaluateFlags.format, "format", "text", "output format: text, json")
	evaluateCmd.Flags().StringVar(&evaluateFlags.metricsFile, "metrics-file", "", "write a Prometheus textfile after the run")
	_ = evaluateCmd.MarkFlagRequired("bid")
}

// haltError reports a halted bid the way operators read it.
type haltError struct {
	hs *policy.HardStopError
}

func (e *haltError) Error() string {
	return "bid halted: " + e.hs.HaltReason()
}

func (e *haltError) Unwrap() error {
	return e.hs
}

func evaluateBids(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(evaluateFlags.format)
	if err != nil {
		return err
	}

	bids := make([]*bid.Bid, 0, len(evaluateFlags.bids))
	for _, path := range evaluateFlags.bids {
		b, err := loadBid(path)
		if err != nil {
			return cli.NewCommandError("evaluate", err)
		}
		bids = append(bids, b)
	}

	return run(cmd.Context(), "evaluate", func(ctx context.Context, a *app) error {
		if evaluateFlags.metricsFile != "" {
			a.metricsFile = evaluateFlags.metricsFile
		}

		sess, err := a.openSession(ctx)
		if err != nil {
			return cli.NewCommandError("evaluate", err)
		}
		eval, err := a.evaluator(sess.LearnEvents())
		if err != nil {
			return err
		}
		engine, err := a.bidEngine(eval)
		if err != nil {
			return err
		}

		if len(bids) > 1 {
			flusher := ledger.NewFlushScheduler(sess, a.cfg.Ledger.FlushSchedule)
			if err := flusher.Start(ctx); err != nil {
				return cli.NewConfigError("ledger.flush_schedule", err.Error())
			}
			defer flusher.Stop()
		}

		report := evaluationReport{}
		var halts []error
		for _, b := range bids {
			out, err := engine.RunInSession(ctx, sess, b)
			var hs *policy.HardStopError
			switch {
			case errors.As(err, &hs) && out != nil:
				report = append(report, out)
				halts = append(halts, &haltError{hs: hs})
			case err != nil:
				if len(report) > 0 {
					_ = cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), report)
				}
				return cli.NewCommandError("evaluate", err)
			default:
				report = append(report, out)
			}
		}

		if err := cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), report); err != nil {
			return err
		}
		return errors.Join(halts...)
	})
}

// loadBid reads a bid file. Unknown fields are rejected so that a typo
// does not silently zero a price.
func loadBid(path string) (*bid.Bid, error) {
	// #nosec G304 - path comes from the command line
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open bid file: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)

	var b bid.Bid
	if err := dec.Decode(&b); err != nil {
		return nil, fmt.Errorf("failed to parse bid file %s: %w", path, err)
	}
	return &b, nil
}
