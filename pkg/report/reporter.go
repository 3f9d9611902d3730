package report

import (
	"fmt"
	"io"
	"strings"

	"chefops/cookbook-cleaner/pkg/cli"
	"chefops/cookbook-cleaner/pkg/retention"
)

// Reporter receives the events of a cleanup run in order: Start, then for
// each cookbook Cookbook followed by any Deletion or DryRun calls and
// EndCookbook, and finally Finish.
type Reporter interface {
	Start(info RunInfo)
	Cookbook(r CookbookResult)
	Deletion(cookbook string, d DeletionResult)
	DryRun(cookbook string)
	EndCookbook(cookbook string)
	Finish(s *Summary) error
}

// New returns the reporter for an output format. Text is streamed while the
// run progresses; JSON and CSV are written once, from the summary.
func New(format cli.OutputFormat, w io.Writer, verbose bool) Reporter {
	switch format {
	case cli.FormatJSON, cli.FormatCSV:
		return NewSummaryReporter(cli.NewFormatter(format), w)
	default:
		return NewTextReporter(w, verbose)
	}
}

// TextReporter writes the human readable console report.
type TextReporter struct {
	w       io.Writer
	verbose bool
}

// NewTextReporter creates a TextReporter. When verbose is set the full
// list of versions fitting the deletion criteria is printed.
func NewTextReporter(w io.Writer, verbose bool) *TextReporter {
	return &TextReporter{w: w, verbose: verbose}
}

func (t *TextReporter) printf(format string, args ...any) {
	fmt.Fprintf(t.w, format, args...)
}

// Start prints the banner and run parameters.
func (t *TextReporter) Start(info RunInfo) {
	t.printf("************************************\n")
	t.printf("*         Cookbook Cleaner         *\n")
	t.printf("************************************\n")
	t.printf("\n")
	if info.Source != "" {
		t.printf("Chef Server: %s\n", info.Source)
	}
	t.printf("Historical Cookbook Versions to Keep: %d\n", info.RetentionCount)
	t.printf("Environment for constraint checking: %s\n", info.Environment)
	if info.Destructive {
		t.printf("Mode: destructive\n")
	} else {
		t.printf("Mode: dry run\n")
	}
	if info.RunID != "" {
		t.printf("Run ID: %s\n", info.RunID)
	}
	t.printf("\n")
}

// Cookbook prints the decision block for one cookbook.
func (t *TextReporter) Cookbook(r CookbookResult) {
	t.printf("Cookbook: %s\n", r.Name)

	switch r.Outcome {
	case OutcomeUnpinned:
		t.printf("Current Promoted Version: not promoted\n")
		t.printf("- Total Versions on Server: %d\n", r.Total)
		t.printf("Cookbook not promoted, skipping...\n")
		return
	case OutcomeParseError, OutcomeExcluded:
		if r.Pinned != "" {
			t.printf("Current Promoted Version: %s\n", r.Pinned)
		}
		t.printf("- Skipping: %s\n", r.Reason)
		return
	}

	t.printf("Current Promoted Version: %s\n", r.Pinned)
	t.printf("- Total Versions on Server: %d\n", r.Total)
	t.printf("- Versions older than %s: %d\n", r.Pinned, len(r.Candidates))

	if r.Reason == retention.ReasonInsufficientHistory {
		t.printf("- Keeping all versions as only %d older versions on server\n", len(r.Candidates))
		t.printf("- Keeping versions %s\n", list(r.Keep))
		return
	}

	t.printf("- Keeping versions %s\n", list(r.Keep))
	t.printf("- Versions fitting deletion criteria: %d\n", len(r.Delete))

	if t.verbose {
		t.printf("- Deleting the following versions: \n")
		t.printf("%s\n", list(r.Delete))
	}
}

// Deletion prints the result of one delete call.
func (t *TextReporter) Deletion(cookbook string, d DeletionResult) {
	t.printf("-- Deleting %s version %s\n", cookbook, d.Version)
	if d.Failed() {
		t.printf("--- Failed to delete %s version %s: %s\n", cookbook, d.Version, d.Error)
	}
}

// DryRun notes that deletions were skipped.
func (t *TextReporter) DryRun(string) {
	t.printf("-- Skipping deletions as --really-clean not specified\n")
}

// EndCookbook separates cookbook blocks.
func (t *TextReporter) EndCookbook(string) {
	t.printf("\n")
}

// Finish prints the run totals.
func (t *TextReporter) Finish(s *Summary) error {
	tot := s.Totals
	t.printf("Summary: %d cookbooks, %d versions\n", tot.Cookbooks, tot.Versions)
	t.printf("- Cleaned: %d, nothing to do: %d, not promoted: %d, parse errors: %d, excluded: %d, failed: %d\n",
		tot.Cleaned, tot.NothingToDo, tot.Unpinned, tot.ParseErrors, tot.Excluded, tot.Failed)
	t.printf("- Versions fitting deletion criteria: %d\n", tot.VersionsPlanned)
	if s.Destructive {
		t.printf("- Versions deleted: %d, deletion failures: %d\n", tot.VersionsDeleted, tot.DeletionFailures)
	}
	return nil
}

// list renders versions the way the console report always has: [1.2.0, 1.1.0].
func list(versions []string) string {
	return "[" + strings.Join(versions, ", ") + "]"
}

// SummaryReporter stays silent during the run and writes the summary with
// a cli.Formatter when the run finishes.
type SummaryReporter struct {
	formatter cli.Formatter
	w         io.Writer
}

// NewSummaryReporter creates a SummaryReporter.
func NewSummaryReporter(formatter cli.Formatter, w io.Writer) *SummaryReporter {
	return &SummaryReporter{formatter: formatter, w: w}
}

func (s *SummaryReporter) Start(RunInfo) {}
func (s *SummaryReporter) Cookbook(CookbookResult) {}
func (s *SummaryReporter) Deletion(string, DeletionResult) {}
func (s *SummaryReporter) DryRun(string) {}
func (s *SummaryReporter) EndCookbook(string) {}

// Finish writes the summary.
func (s *SummaryReporter) Finish(summary *Summary) error {
	return s.formatter.FormatTo(s.w, summary)
}

// Discard is a Reporter that drops every event.
var Discard Reporter = NewSummaryReporter(discardFormatter{}, io.Discard)

type discardFormatter struct{}

func (discardFormatter) FormatTo(io.Writer, any) error { return nil }
