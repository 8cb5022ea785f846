package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/bidguard/pkg/cli"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "bidguard",
	Short: "Bidguard - contractor and supplier compliance for construction bids",
	Long: `Bidguard screens the manufacturers, suppliers, and subcontractors on a
construction bid before it goes out.

For every bid it:
  - checks each participant against the denylist or allowlist
  - rates the participants that pass on timeliness, price fairness, and trust
  - grades the risk of the bid as a whole
  - writes every decision to a hash-chained audit log

Exit codes:
  0  success
  1  error
  2  a bid or check stopped on a strict-mode hard-stop
  3  the audit log failed verification`,
	Version:       Version,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command and exits with the code matching its
// error.
func Execute() {
	ctx, stop := cli.SetupSignalHandler(context.Background())
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (built-in defaults when empty)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}
