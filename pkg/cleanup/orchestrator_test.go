package cleanup

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"chefops/cookbook-cleaner/pkg/config"
	"chefops/cookbook-cleaner/pkg/history"
	"chefops/cookbook-cleaner/pkg/registry"
	"chefops/cookbook-cleaner/pkg/report"
	"chefops/cookbook-cleaner/pkg/telemetry/metrics"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func newRegistry() *registry.MemoryRegistry {
	return registry.NewMemoryRegistry(
		registry.Inventory{
			// Supplied oldest first; the orchestrator must sort.
			"apache2": {"1.0", "1.1", "1.2", "1.3", "1.4", "1.5", "2.0"},
			"nginx":   {"1.0", "1.1"},
			"mysql":   {"0.1", "0.2", "0.3"},
		},
		map[string]registry.Pins{
			"production": {
				"apache2": "= 2.0",
				"nginx":   "= 1.1",
			},
		},
	)
}

func newOrchestrator(t *testing.T, reg registry.Client, opts Options, deps Dependencies) *Orchestrator {
	t.Helper()
	deps.Client = reg
	if deps.Logger == nil {
		deps.Logger = quietLogger
	}
	if opts.Environment == "" {
		opts.Environment = "production"
	}
	o, err := New(opts, deps)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return o
}

func findResult(t *testing.T, s *report.Summary, name string) report.CookbookResult {
	t.Helper()
	for _, r := range s.Cookbooks {
		if r.Name == name {
			return r
		}
	}
	t.Fatalf("no result for cookbook %q", name)
	return report.CookbookResult{}
}

func deleted(reg *registry.MemoryRegistry) []string {
	var out []string
	for _, d := range reg.Deletes() {
		out = append(out, d.Cookbook+"@"+d.Version)
	}
	return out
}

func TestRun_DestructiveDeletesOldestTail(t *testing.T) {
	reg := newRegistry()
	o := newOrchestrator(t, reg, Options{RetentionCount: 3, Destructive: true}, Dependencies{})

	summary, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	apache := findResult(t, summary, "apache2")
	if got, want := apache.Candidates, []string{"1.5", "1.4", "1.3", "1.2", "1.1", "1.0"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Candidates = %v, want %v", got, want)
	}
	if got, want := apache.Keep, []string{"1.5", "1.4", "1.3"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Keep = %v, want %v", got, want)
	}
	if got, want := apache.Delete, []string{"1.2", "1.1", "1.0"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Delete = %v, want %v", got, want)
	}

	if got, want := deleted(reg), []string{"apache2@1.2", "apache2@1.1", "apache2@1.0"}; !reflect.DeepEqual(got, want) {
		t.Errorf("delete calls = %v, want %v", got, want)
	}
	if apache.Outcome != report.OutcomeCleaned {
		t.Errorf("Outcome = %q, want cleaned", apache.Outcome)
	}
	if summary.Totals.VersionsDeleted != 3 {
		t.Errorf("VersionsDeleted = %d, want 3", summary.Totals.VersionsDeleted)
	}
}

func TestRun_InsufficientHistoryKeepsAll(t *testing.T) {
	reg := newRegistry()
	o := newOrchestrator(t, reg, Options{RetentionCount: 5, Destructive: true}, Dependencies{})

	summary, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	nginx := findResult(t, summary, "nginx")
	if !reflect.DeepEqual(nginx.Candidates, []string{"1.0"}) || !reflect.DeepEqual(nginx.Keep, []string{"1.0"}) {
		t.Errorf("unexpected candidates %v / keep %v", nginx.Candidates, nginx.Keep)
	}
	if len(nginx.Delete) != 0 {
		t.Errorf("expected nothing to delete, got %v", nginx.Delete)
	}
	for _, call := range deleted(reg) {
		if strings.HasPrefix(call, "nginx@") {
			t.Errorf("unexpected delete call %s", call)
		}
	}
}

func TestRun_UnpinnedCookbookSkipped(t *testing.T) {
	for _, destructive := range []bool{false, true} {
		reg := newRegistry()
		o := newOrchestrator(t, reg, Options{RetentionCount: 0, Destructive: destructive}, Dependencies{})

		summary, err := o.Run(context.Background())
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}

		mysql := findResult(t, summary, "mysql")
		if mysql.Outcome != report.OutcomeUnpinned || mysql.Reason != "not promoted" {
			t.Errorf("destructive=%v: unexpected result %+v", destructive, mysql)
		}
		for _, call := range deleted(reg) {
			if strings.HasPrefix(call, "mysql@") {
				t.Errorf("destructive=%v: unpinned cookbook was deleted: %s", destructive, call)
			}
		}
	}
}

func TestRun_DryRunMakesNoDeleteCalls(t *testing.T) {
	reg := newRegistry()
	var out bytes.Buffer
	o := newOrchestrator(t, reg, Options{RetentionCount: 3}, Dependencies{
		Reporter: report.NewTextReporter(&out, true),
	})

	summary, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if calls := reg.Deletes(); len(calls) != 0 {
		t.Fatalf("dry run issued %d delete calls", len(calls))
	}
	if summary.Totals.VersionsPlanned != 3 {
		t.Errorf("VersionsPlanned = %d, want 3", summary.Totals.VersionsPlanned)
	}

	text := out.String()
	for _, want := range []string{
		"Mode: dry run",
		"- Versions fitting deletion criteria: 3",
		"[1.2, 1.1, 1.0]",
		"-- Skipping deletions as --really-clean not specified",
		"Cookbook not promoted, skipping...",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("report missing %q\n%s", want, text)
		}
	}
	if strings.Contains(text, "-- Deleting") {
		t.Errorf("dry run report should not announce deletions\n%s", text)
	}
}

func TestRun_DeletionFailureContinues(t *testing.T) {
	reg := newRegistry()
	reg.FailDelete("apache2", "1.1", errors.New("status 500"))

	var out bytes.Buffer
	o := newOrchestrator(t, reg, Options{RetentionCount: 3, Destructive: true}, Dependencies{
		Reporter: report.NewTextReporter(&out, false),
	})

	summary, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() should complete despite a failed delete, got %v", err)
	}

	if got, want := deleted(reg), []string{"apache2@1.2", "apache2@1.1", "apache2@1.0"}; !reflect.DeepEqual(got, want) {
		t.Errorf("delete calls = %v, want %v", got, want)
	}

	apache := findResult(t, summary, "apache2")
	if apache.Outcome != report.OutcomeFailed {
		t.Errorf("Outcome = %q, want failed", apache.Outcome)
	}
	if len(apache.Deletions) != 3 || !apache.Deletions[1].Failed() || apache.Deletions[2].Failed() {
		t.Errorf("unexpected deletions %+v", apache.Deletions)
	}
	if !summary.Partial() {
		t.Error("expected partial summary")
	}
	if summary.Totals.VersionsDeleted != 2 || summary.Totals.DeletionFailures != 1 {
		t.Errorf("unexpected totals %+v", summary.Totals)
	}
	if !strings.Contains(out.String(), "--- Failed to delete apache2 version 1.1") {
		t.Errorf("failure not reported\n%s", out.String())
	}
}

func TestRun_RegistryUnavailableAborts(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*registry.MemoryRegistry)
		env   string
	}{
		{
			name:  "inventory",
			setup: func(r *registry.MemoryRegistry) { r.InventoryErr = errors.New("connection refused") },
			env:   "production",
		},
		{
			name:  "pins",
			setup: func(r *registry.MemoryRegistry) { r.PinsErr = errors.New("timeout") },
			env:   "production",
		},
		{
			name:  "unknown environment",
			setup: func(*registry.MemoryRegistry) {},
			env:   "qa",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := newRegistry()
			tt.setup(reg)
			store := history.NewMemoryStore()

			o := newOrchestrator(t, reg, Options{Environment: tt.env, RetentionCount: 0, Destructive: true}, Dependencies{History: store})
			summary, err := o.Run(context.Background())

			if !registry.IsUnavailable(err) {
				t.Fatalf("expected unavailable error, got %v", err)
			}
			if len(summary.Cookbooks) != 0 {
				t.Errorf("no cookbook should be evaluated, got %d", len(summary.Cookbooks))
			}
			if calls := reg.Deletes(); len(calls) != 0 {
				t.Errorf("no delete may happen, got %v", calls)
			}

			last, err := store.LastRun(context.Background())
			if err != nil {
				t.Fatalf("expected run to be recorded: %v", err)
			}
			if last.Outcome != history.OutcomeUnavailable || last.Error == "" {
				t.Errorf("unexpected recorded run %+v", last)
			}
		})
	}
}

func TestRun_ParseErrorSkipsCookbook(t *testing.T) {
	reg := registry.NewMemoryRegistry(
		registry.Inventory{
			"broken":  {"1.0", "1.x"},
			"fuzzy":   {"1.0", "2.0"},
			"apache2": {"1.0", "1.1", "2.0"},
		},
		map[string]registry.Pins{
			"production": {"broken": "= 1.0", "fuzzy": "~> 2.0", "apache2": "= 2.0"},
		},
	)
	o := newOrchestrator(t, reg, Options{RetentionCount: 0, Destructive: true}, Dependencies{})

	summary, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	for _, name := range []string{"broken", "fuzzy"} {
		r := findResult(t, summary, name)
		if r.Outcome != report.OutcomeParseError || r.Reason == "" {
			t.Errorf("%s: unexpected result %+v", name, r)
		}
	}
	if got, want := deleted(reg), []string{"apache2@1.1", "apache2@1.0"}; !reflect.DeepEqual(got, want) {
		t.Errorf("run should continue after parse errors: delete calls = %v, want %v", got, want)
	}
	if summary.Totals.ParseErrors != 2 {
		t.Errorf("ParseErrors = %d, want 2", summary.Totals.ParseErrors)
	}
}

func TestRun_Filter(t *testing.T) {
	reg := newRegistry()
	o := newOrchestrator(t, reg, Options{
		RetentionCount: 0,
		Destructive:    true,
		Filter:         Filter{Exclude: []string{"apache*"}},
	}, Dependencies{})

	summary, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	apache := findResult(t, summary, "apache2")
	if apache.Outcome != report.OutcomeExcluded || apache.Reason != report.ReasonExcluded {
		t.Errorf("unexpected result %+v", apache)
	}
	if got, want := deleted(reg), []string{"nginx@1.0"}; !reflect.DeepEqual(got, want) {
		t.Errorf("delete calls = %v, want %v", got, want)
	}
}

func TestRun_CancelledBetweenCookbooks(t *testing.T) {
	reg := newRegistry()
	ctx, cancel := context.WithCancel(context.Background())

	o := newOrchestrator(t, reg, Options{RetentionCount: 0, Destructive: true}, Dependencies{
		Reporter: &cancelAfterFirst{cancel: cancel},
	})

	summary, err := o.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(summary.Cookbooks) != 1 {
		t.Errorf("expected exactly one finished cookbook, got %d", len(summary.Cookbooks))
	}
}

// cancelAfterFirst cancels the run once the first cookbook is done.
type cancelAfterFirst struct {
	cancel context.CancelFunc
}

func (c *cancelAfterFirst) Start(report.RunInfo) {}
func (c *cancelAfterFirst) Cookbook(report.CookbookResult) {}
func (c *cancelAfterFirst) Deletion(string, report.DeletionResult) {}
func (c *cancelAfterFirst) DryRun(string) {}
func (c *cancelAfterFirst) EndCookbook(string) { c.cancel() }
func (c *cancelAfterFirst) Finish(*report.Summary) error { return nil }

func TestRun_RecordsHistoryAndMetrics(t *testing.T) {
	reg := newRegistry()
	reg.FailDelete("apache2", "1.0", errors.New("forbidden"))

	store := history.NewMemoryStore()
	promReg := prometheus.NewRegistry()
	collector := metrics.NewCollector(&config.MetricsConfig{Enabled: true}, promReg)

	o := newOrchestrator(t, reg, Options{RetentionCount: 3, Destructive: true, Source: "memory"}, Dependencies{
		History: store,
		Metrics: collector,
	})

	summary, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	run, err := store.GetRun(context.Background(), summary.RunID)
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if run.Outcome != history.OutcomePartial || !run.Destructive || run.Source != "memory" {
		t.Errorf("unexpected run %+v", run)
	}
	if len(run.Cookbooks) != 3 {
		t.Errorf("expected 3 cookbooks recorded, got %d", len(run.Cookbooks))
	}

	expected := `
# HELP cookbook_cleaner_runs_total Total number of cleanup runs
# TYPE cookbook_cleaner_runs_total counter
cookbook_cleaner_runs_total{mode="destructive",outcome="partial"} 1
`
	if err := testutil.GatherAndCompare(promReg, strings.NewReader(expected), "cookbook_cleaner_runs_total"); err != nil {
		t.Errorf("unexpected runs metric: %v", err)
	}
	if n, err := testutil.GatherAndCount(promReg, "cookbook_cleaner_cookbooks_total"); err != nil || n != 3 {
		t.Errorf("expected 3 cookbook outcome series, got %d (%v)", n, err)
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Options{Environment: "production"}, Dependencies{}); err == nil {
		t.Error("expected error without client")
	}
	if _, err := New(Options{}, Dependencies{Client: newRegistry()}); err == nil {
		t.Error("expected error without environment")
	}

	o, err := New(Options{Environment: "production", RetentionCount: -2}, Dependencies{Client: newRegistry()})
	if err != nil {
		t.Fatal(err)
	}
	if o.opts.RetentionCount != 0 {
		t.Errorf("negative retention should clamp to 0, got %d", o.opts.RetentionCount)
	}
}
