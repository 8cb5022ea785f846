/*
Package cli provides command-line helpers for the bidguard command.

Output Formatting:

Results print as text or JSON. Types that implement TextRenderer control
their own text form:

	formatter := cli.NewFormatter(cli.FormatJSON)
	if err := formatter.FormatTo(os.Stdout, outcome); err != nil {
		return err
	}

Exit Codes:

ExitCode maps command errors to process exit codes. A policy hard-stop
exits with ExitHalted:

	os.Exit(cli.ExitCode(err))

Signal Handling:

For cancellation on SIGINT/SIGTERM:

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()
*/
package cli
