/*
Package cli provides command-line interface utilities for cookbook-cleaner.

The cli package includes output formatters, exit code mapping and signal
handling used by the cookbook-cleaner command.

Output Formatting:

Results can be rendered as text, JSON or CSV:

	formatter := cli.NewFormatter(cli.FormatJSON)
	if err := formatter.FormatTo(os.Stdout, summary); err != nil {
		return err
	}

CSV output requires the value to implement Table.

Exit Codes:

Commands return errors; main converts them with ExitCode. Registry
outages map to ExitUnavailable, configuration problems to ExitConfig and
other command errors to ExitFailure. Individual deletion failures are
reported but do not fail the command.

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()
*/
package cli
