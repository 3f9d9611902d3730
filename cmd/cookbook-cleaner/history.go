package main

import (
	"context"
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"chefops/cookbook-cleaner/pkg/cli"
	"chefops/cookbook-cleaner/pkg/config"
	"chefops/cookbook-cleaner/pkg/history"
)

var historyFlags struct {
	environment     string
	since           time.Duration
	destructiveOnly bool
	limit           int
	format          string
	olderThan       int
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect and prune the run history",
	Long: `Inspect and prune the audit trail of cleanup runs.

Subcommands:
  list   - List recent runs
  show   - Show one run with per-cookbook outcomes and deletions
  prune  - Delete runs older than the retention period`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs",
	Long: `List recent cleanup runs, newest first.

Examples:
  # Last 20 runs
  cookbook-cleaner history list

  # Destructive runs against production in the last week, as JSON
  cookbook-cleaner history list -e production --destructive --since 168h --format json`,
	RunE: listHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show RUN_ID",
	Short: "Show one run",
	Args:  cobra.ExactArgs(1),
	RunE:  showHistory,
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete old runs",
	Long: `Delete runs that started before the retention period.

The period defaults to history.retention_days from the configuration.

Examples:
  cookbook-cleaner history prune
  cookbook-cleaner history prune --older-than 30`,
	RunE: pruneHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd, historyShowCmd, historyPruneCmd)

	lf := historyListCmd.Flags()
	lf.StringVarP(&historyFlags.environment, "environment", "e", "", "only runs against this environment")
	lf.DurationVar(&historyFlags.since, "since", 0, "only runs started within this duration")
	lf.BoolVar(&historyFlags.destructiveOnly, "destructive", false, "only destructive runs")
	lf.IntVar(&historyFlags.limit, "limit", history.DefaultListLimit, "maximum number of runs")
	lf.StringVar(&historyFlags.format, "format", "text", "output format: text, json, csv")

	historyShowCmd.Flags().StringVar(&historyFlags.format, "format", "text", "output format: text, json")

	historyPruneCmd.Flags().IntVar(&historyFlags.olderThan, "older-than", 0, "retention in days (default history.retention_days)")
}

func openHistory() (*config.Config, history.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if !cfg.History.Enabled {
		return nil, nil, cli.NewConfigError("history.enabled", "run history is disabled")
	}
	store, err := history.New(&cfg.History, nil)
	if err != nil {
		return nil, nil, cli.NewCommandError("history", err)
	}
	return cfg, store, nil
}

func listHistory(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(historyFlags.format)
	if err != nil {
		return err
	}

	_, store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	query := history.Query{
		Environment:     historyFlags.environment,
		DestructiveOnly: historyFlags.destructiveOnly,
		Limit:           historyFlags.limit,
	}
	if historyFlags.since > 0 {
		query.Since = time.Now().Add(-historyFlags.since)
	}

	runs, err := store.ListRuns(cmd.Context(), query)
	if err != nil {
		return cli.NewCommandError("history list", err)
	}

	if format == cli.FormatJSON {
		return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), runs)
	}
	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), runTable(runs))
}

func showHistory(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(historyFlags.format)
	if err != nil {
		return err
	}

	_, store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	run, err := store.GetRun(cmd.Context(), args[0])
	if err != nil {
		return cli.NewCommandError("history show", err)
	}

	if format != cli.FormatText {
		return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), run)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run:         %s\n", run.ID)
	fmt.Fprintf(out, "Started:     %s\n", run.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(out, "Duration:    %s\n", run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond))
	fmt.Fprintf(out, "Source:      %s\n", run.Source)
	fmt.Fprintf(out, "Environment: %s\n", run.Environment)
	fmt.Fprintf(out, "Retention:   %d\n", run.RetentionCount)
	fmt.Fprintf(out, "Destructive: %t\n", run.Destructive)
	fmt.Fprintf(out, "Outcome:     %s\n", run.Outcome)
	if run.Error != "" {
		fmt.Fprintf(out, "Error:       %s\n", run.Error)
	}
	fmt.Fprintln(out)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "COOKBOOK\tPINNED\tOUTCOME\tTOTAL\tKEPT\tPLANNED\tDELETIONS")
	for _, cb := range run.Cookbooks {
		failed := 0
		for _, d := range cb.Deletions {
			if d.Error != "" {
				failed++
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d (%d failed)\n",
			cb.Name, dash(cb.Pinned), cb.Outcome, cb.Total, cb.Kept, cb.Planned, len(cb.Deletions), failed)
	}
	return tw.Flush()
}

func pruneHistory(cmd *cobra.Command, args []string) error {
	cfg, store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	days := cfg.History.RetentionDays
	if cmd.Flags().Changed("older-than") {
		days = historyFlags.olderThan
	}
	cutoff := history.RetentionCutoff(time.Now(), days)
	if cutoff.IsZero() {
		fmt.Fprintln(cmd.OutOrStdout(), "History retention is unlimited, nothing to prune")
		return nil
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
	defer cancel()

	deleted, err := store.Prune(ctx, cutoff)
	if err != nil {
		return cli.NewCommandError("history prune", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d runs started before %s\n", deleted, cutoff.Format(time.RFC3339))
	return nil
}

// runTable renders runs as rows for text and CSV output.
type runTable []*history.Run

func (t runTable) Header() []string {
	return []string{"id", "started_at", "environment", "mode", "outcome", "cookbooks", "planned", "deleted", "failures"}
}

func (t runTable) Rows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, r := range t {
		mode := "dry_run"
		if r.Destructive {
			mode = "destructive"
		}
		rows = append(rows, []string{
			r.ID,
			r.StartedAt.Format(time.RFC3339),
			r.Environment,
			mode,
			r.Outcome,
			strconv.Itoa(r.Totals.Cookbooks),
			strconv.Itoa(r.Totals.VersionsPlanned),
			strconv.Itoa(r.Totals.VersionsDeleted),
			strconv.Itoa(r.Totals.DeletionFailures),
		})
	}
	return rows
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
