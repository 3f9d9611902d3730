package cleanup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"chefops/cookbook-cleaner/pkg/history"
	"chefops/cookbook-cleaner/pkg/registry"
	"chefops/cookbook-cleaner/pkg/report"
	"chefops/cookbook-cleaner/pkg/retention"
	"chefops/cookbook-cleaner/pkg/telemetry/logging"
	"chefops/cookbook-cleaner/pkg/telemetry/metrics"
	"chefops/cookbook-cleaner/pkg/telemetry/tracing"
	"chefops/cookbook-cleaner/pkg/version"
)

// Run modes used as metric labels.
const (
	ModeDryRun      = "dry_run"
	ModeDestructive = "destructive"
)

// Options are the parameters of a cleanup run.
type Options struct {
	// Environment whose pins protect cookbook versions.
	Environment string

	// RetentionCount is the number of versions older than the pin to keep.
	// Negative values are treated as zero.
	RetentionCount int

	// Destructive enables delete calls. When false the run only reports.
	Destructive bool

	// Filter limits the cookbooks considered.
	Filter Filter

	// Source names the registry in reports and history.
	Source string
}

// Dependencies are the collaborators of an Orchestrator. Client is
// required; every other field may be left nil.
type Dependencies struct {
	Client   registry.Client
	Reporter report.Reporter
	History  history.Store
	Metrics  *metrics.Collector
	Tracer   *tracing.Tracer
	Logger   *slog.Logger
}

// Orchestrator drives one cleanup pass over every cookbook on the server.
type Orchestrator struct {
	opts     Options
	client   registry.Client
	reporter report.Reporter
	history  history.Store
	metrics  *metrics.Collector
	tracer   *tracing.Tracer
	logger   *slog.Logger

	now func() time.Time
}

// New creates an Orchestrator.
func New(opts Options, deps Dependencies) (*Orchestrator, error) {
	if deps.Client == nil {
		return nil, errors.New("registry client is required")
	}
	if opts.Environment == "" {
		return nil, errors.New("environment is required")
	}
	if opts.RetentionCount < 0 {
		opts.RetentionCount = 0
	}

	reporter := deps.Reporter
	if reporter == nil {
		reporter = report.Discard
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Orchestrator{
		opts:     opts,
		client:   deps.Client,
		reporter: reporter,
		history:  deps.History,
		metrics:  deps.Metrics,
		tracer:   deps.Tracer,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Run performs one cleanup pass.
//
// Inventory and pins are loaded once; if either fails the run stops before
// any decision and the *registry.UnavailableError is returned. Cookbooks
// with unparseable versions are skipped, failed deletes are reported and
// the run carries on. The summary is returned in every case. The run can be
// cancelled between cookbooks through ctx.
func (o *Orchestrator) Run(ctx context.Context) (*report.Summary, error) {
	info := report.RunInfo{
		RunID:          history.NewRunID(),
		Source:         o.opts.Source,
		Environment:    o.opts.Environment,
		RetentionCount: o.opts.RetentionCount,
		Destructive:    o.opts.Destructive,
	}

	ctx = logging.WithRunID(ctx, info.RunID)
	ctx = logging.WithEnvironment(ctx, info.Environment)

	ctx, span := o.tracer.Start(ctx, "cleanup.run")
	defer span.End()
	tracing.SetRunAttributes(span, info.RunID, info.Environment, info.RetentionCount, info.Destructive)
	if traceID := tracing.TraceID(ctx); traceID != "" {
		ctx = logging.WithTraceID(ctx, traceID)
	}

	summary := report.NewSummary(info, o.now())
	o.reporter.Start(info)

	o.logger.InfoContext(ctx, "cleanup run started",
		"retention_count", info.RetentionCount,
		"destructive", info.Destructive,
		"source", info.Source,
	)

	inventory, pins, err := o.load(ctx)
	if err != nil {
		tracing.SetError(span, err)
		o.logger.ErrorContext(ctx, "cleanup run aborted, registry unavailable", "error", err)
		o.finish(ctx, summary, history.OutcomeUnavailable, metrics.RunUnavailable, err)
		return summary, err
	}

	o.metrics.SetInventory(len(inventory), inventory.VersionCount())

	for _, name := range inventory.Names() {
		if err := ctx.Err(); err != nil {
			tracing.SetError(span, err)
			o.logger.WarnContext(ctx, "cleanup run interrupted", "error", err)
			o.finish(ctx, summary, history.OutcomeFailed, metrics.RunFailed, err)
			return summary, err
		}

		pin, promoted := pins[name]
		summary.Add(o.processCookbook(ctx, name, inventory[name], pin, promoted))
	}

	outcome, runOutcome := history.OutcomeSuccess, metrics.RunSucceeded
	if summary.Partial() {
		outcome, runOutcome = history.OutcomePartial, metrics.RunPartial
	}
	o.finish(ctx, summary, outcome, runOutcome, nil)

	o.logger.InfoContext(ctx, "cleanup run finished",
		"cookbooks", summary.Totals.Cookbooks,
		"versions_planned", summary.Totals.VersionsPlanned,
		"versions_deleted", summary.Totals.VersionsDeleted,
		"deletion_failures", summary.Totals.DeletionFailures,
		"duration", summary.Duration(),
	)
	return summary, nil
}

// load takes the inventory and pin snapshots for the run.
func (o *Orchestrator) load(ctx context.Context) (registry.Inventory, registry.Pins, error) {
	o.logger.DebugContext(ctx, "loading cookbook inventory")
	inventory, err := o.client.LoadInventory(ctx)
	if err != nil {
		return nil, nil, asUnavailable("inventory", o.opts.Source, err)
	}

	o.logger.DebugContext(ctx, "loading environment pins")
	pins, err := o.client.LoadPins(ctx, o.opts.Environment)
	if err != nil {
		return nil, nil, asUnavailable("pins", o.opts.Source, err)
	}

	o.logger.InfoContext(ctx, "registry snapshot loaded",
		"cookbooks", len(inventory),
		"versions", inventory.VersionCount(),
		"pins", len(pins),
	)
	return inventory, pins, nil
}

func asUnavailable(operation, source string, err error) error {
	if registry.IsUnavailable(err) {
		return err
	}
	return registry.NewUnavailableError(operation, source, err)
}

// processCookbook walks one cookbook through evaluation, reporting and,
// in destructive mode, deletion.
func (o *Orchestrator) processCookbook(ctx context.Context, name string, raw []string, pin string, promoted bool) report.CookbookResult {
	ctx = logging.WithCookbook(ctx, name)
	ctx, span := o.tracer.Start(ctx, "cleanup.cookbook",
		trace.WithAttributes(tracing.AttrCookbook.String(name)))
	defer span.End()

	result, toDelete := o.evaluate(ctx, name, raw, pin, promoted)
	tracing.SetDecisionAttributes(span, result.Pinned, result.Total, len(result.Keep), len(result.Delete), result.Reason)

	o.reporter.Cookbook(result)

	if result.Outcome == report.OutcomeCleaned || result.Outcome == report.OutcomeNothingToDo {
		if result.Reason != retention.ReasonInsufficientHistory {
			if o.opts.Destructive {
				o.deleteVersions(ctx, &result, toDelete)
			} else {
				o.reporter.DryRun(name)
			}
		}
	}

	o.metrics.RecordCookbook(string(result.Outcome))
	o.metrics.RecordPlanned(len(result.Delete))
	o.reporter.EndCookbook(name)

	return result
}

// evaluate parses the cookbook's versions and pin and applies the
// retention policy. Parse failures skip the cookbook. The returned
// versions are the fixed delete set.
func (o *Orchestrator) evaluate(ctx context.Context, name string, raw []string, pin string, promoted bool) (report.CookbookResult, []version.Version) {
	if !o.opts.Filter.Match(name) {
		o.logger.DebugContext(ctx, "cookbook excluded by filter")
		return report.Skipped(name, len(raw), report.OutcomeExcluded, report.ReasonExcluded), nil
	}

	versions, err := version.ParseAll(raw)
	if err != nil {
		o.logger.WarnContext(ctx, "skipping cookbook with unparseable version", "error", err)
		return report.Skipped(name, len(raw), report.OutcomeParseError, err.Error()), nil
	}

	var pinned *version.Version
	if promoted {
		v, err := version.ParsePin(pin)
		if err != nil {
			o.logger.WarnContext(ctx, "skipping cookbook with unparseable pin", "constraint", pin, "error", err)
			return report.Skipped(name, len(raw), report.OutcomeParseError, err.Error()), nil
		}
		pinned = &v
	}

	decision := retention.Select(versions, pinned, o.opts.RetentionCount)
	result := report.FromDecision(name, decision)

	o.logger.DebugContext(ctx, "retention decision",
		"pinned", result.Pinned,
		"total", result.Total,
		"candidates", len(result.Candidates),
		"keep", len(result.Keep),
		"delete", len(result.Delete),
		"reason", result.Reason,
	)
	return result, decision.Delete
}

// deleteVersions issues one delete per version in the fixed delete set.
// Failures are recorded and the loop continues.
func (o *Orchestrator) deleteVersions(ctx context.Context, result *report.CookbookResult, toDelete []version.Version) {
	for _, v := range toDelete {
		err := o.deleteVersion(ctx, result.Name, v)

		d := report.DeletionResult{Version: v.String()}
		if err != nil {
			d.Error = err.Error()
			o.logger.ErrorContext(ctx, "failed to delete cookbook version", "version", d.Version, "error", err)
		} else {
			o.logger.InfoContext(ctx, "deleted cookbook version", "version", d.Version)
		}

		o.metrics.RecordDeletion(err)
		result.AddDeletion(d)
		o.reporter.Deletion(result.Name, d)
	}
}

func (o *Orchestrator) deleteVersion(ctx context.Context, name string, v version.Version) error {
	ctx, span := o.tracer.Start(ctx, "cleanup.delete",
		trace.WithAttributes(
			tracing.AttrCookbook.String(name),
			tracing.AttrVersion.String(v.String()),
		))
	defer span.End()

	if err := o.client.DeleteVersion(ctx, name, v); err != nil {
		var de *registry.DeletionError
		if !errors.As(err, &de) {
			err = registry.NewDeletionError(name, v.String(), err)
		}
		tracing.SetError(span, err)
		return err
	}
	span.SetAttributes(attribute.Bool("cleanup.deleted", true))
	return nil
}

// finish closes the summary, renders it, records metrics and history.
func (o *Orchestrator) finish(ctx context.Context, summary *report.Summary, outcome, runOutcome string, runErr error) {
	summary.FinishedAt = o.now()

	if err := o.reporter.Finish(summary); err != nil {
		o.logger.ErrorContext(ctx, "failed to write report", "error", err)
	}

	mode := ModeDryRun
	if o.opts.Destructive {
		mode = ModeDestructive
	}
	o.metrics.RecordRun(mode, runOutcome, summary.Duration())

	if o.history == nil {
		return
	}
	// Recording must not be lost to a cancelled run context.
	if err := o.history.RecordRun(context.WithoutCancel(ctx), history.FromSummary(summary, outcome, runErr)); err != nil {
		o.logger.ErrorContext(ctx, "failed to record run history", "error", fmt.Errorf("run %s: %w", summary.RunID, err))
	}
}
