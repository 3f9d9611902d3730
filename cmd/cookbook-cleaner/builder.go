package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"chefops/cookbook-cleaner/pkg/cleanup"
	"chefops/cookbook-cleaner/pkg/cli"
	"chefops/cookbook-cleaner/pkg/config"
	"chefops/cookbook-cleaner/pkg/environment"
	"chefops/cookbook-cleaner/pkg/history"
	"chefops/cookbook-cleaner/pkg/registry"
	"chefops/cookbook-cleaner/pkg/registry/chef"
	"chefops/cookbook-cleaner/pkg/report"
	"chefops/cookbook-cleaner/pkg/secrets"
	"chefops/cookbook-cleaner/pkg/telemetry/logging"
	"chefops/cookbook-cleaner/pkg/telemetry/metrics"
	"chefops/cookbook-cleaner/pkg/telemetry/tracing"
)

// app holds the process-wide telemetry shared by every cleanup job.
type app struct {
	logger  *slog.Logger
	metrics *metrics.Collector
	tracer  *tracing.Tracer
}

func newApp(cfg *config.Config, stderr io.Writer) (*app, error) {
	logCfg := logging.FromConfig(cfg.Telemetry.Logging)
	logCfg.Writer = stderr
	logger, err := logging.New(logCfg)
	if err != nil {
		return nil, cli.NewConfigError("telemetry.logging", err.Error())
	}

	tracer, err := tracing.New(&cfg.Telemetry.Tracing, Version)
	if err != nil {
		return nil, cli.NewConfigError("telemetry.tracing", err.Error())
	}

	return &app{
		logger:  logger.Slog(),
		metrics: metrics.NewCollector(&cfg.Telemetry.Metrics, nil),
		tracer:  tracer,
	}, nil
}

func (a *app) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.tracer.Shutdown(ctx); err != nil {
		a.logger.Warn("failed to flush traces", "error", err)
	}
}

// jobSpec carries the command-line inputs that are not part of the
// configuration file.
type jobSpec struct {
	inventoryFile string
	output        cli.OutputFormat
	stdout        io.Writer
}

// job is a fully wired orchestrator and the resources it holds open.
type job struct {
	orchestrator *cleanup.Orchestrator
	history      history.Store
	source       string
}

func (j *job) Close() error {
	if j.history == nil {
		return nil
	}
	return j.history.Close()
}

// buildJob wires a cleanup orchestrator from cfg.
func (a *app) buildJob(cfg *config.Config, spec jobSpec) (*job, error) {
	client, source, err := a.buildClient(cfg, spec.inventoryFile)
	if err != nil {
		return nil, err
	}

	var store history.Store
	if cfg.History.Enabled {
		store, err = history.New(&cfg.History, a.logger)
		if err != nil {
			return nil, cli.NewCommandError("history", err)
		}
	}

	orchestrator, err := cleanup.New(cleanup.Options{
		Environment:    cfg.Cleanup.Environment,
		RetentionCount: cfg.Cleanup.HistoricalVersions,
		Destructive:    cfg.Cleanup.ReallyClean,
		Filter:         cleanup.Filter{Include: cfg.Cleanup.Include, Exclude: cfg.Cleanup.Exclude},
		Source:         source,
	}, cleanup.Dependencies{
		Client:   client,
		Reporter: report.New(spec.output, spec.stdout, cfg.Cleanup.Verbose),
		History:  store,
		Metrics:  a.metrics,
		Tracer:   a.tracer,
		Logger:   a.logger,
	})
	if err != nil {
		if store != nil {
			_ = store.Close()
		}
		return nil, cli.NewConfigError("cleanup", err.Error())
	}

	return &job{orchestrator: orchestrator, history: store, source: source}, nil
}

// buildClient assembles inventory, pin and delete access. Inventory and
// deletes come from the Chef server, or from an inventory dump for offline
// replays; pins come from the environment source.
func (a *app) buildClient(cfg *config.Config, inventoryFile string) (registry.Client, string, error) {
	var (
		base   registry.Client
		source string
	)

	if inventoryFile != "" {
		mem, err := registry.NewMemoryRegistryFromFile(inventoryFile)
		if err != nil {
			return nil, "", cli.NewCommandError("inventory", err)
		}
		if cfg.EnvironmentSource.Mode == "server" {
			return nil, "", cli.NewConfigError("environment_source.mode",
				"an inventory file needs environment pins from a file or git source")
		}
		base, source = mem, "file:"+inventoryFile
	} else {
		chefCfg, err := chef.FromConfig(cfg.Chef)
		if err != nil {
			return nil, "", cli.NewConfigError("chef", err.Error())
		}
		chefCfg.Logger = a.logger
		chefCfg.Metrics = a.metrics
		chefCfg.Tracer = a.tracer

		client, err := chef.New(chefCfg)
		if err != nil {
			return nil, "", cli.NewConfigError("chef", err.Error())
		}
		base, source = client, client.ServerURL()
	}

	pins, err := a.buildPinSource(cfg)
	if err != nil {
		return nil, "", err
	}
	if pins == nil {
		return base, source, nil
	}

	return registry.Composite{
		InventoryLoader: base,
		PinLoader:       pins,
		Deleter:         base,
	}, source, nil
}

// buildPinSource returns the configured environment source, or nil when
// pins are read from the Chef server.
func (a *app) buildPinSource(cfg *config.Config) (registry.PinLoader, error) {
	switch cfg.EnvironmentSource.Mode {
	case "", "server":
		return nil, nil
	case "file":
		return environment.NewFileSource(config.ExpandHome(cfg.EnvironmentSource.Path)), nil
	case "git":
		gitCfg, err := a.resolveGitAuth(cfg)
		if err != nil {
			return nil, err
		}
		src, err := environment.NewGitSource(gitCfg, a.logger)
		if err != nil {
			return nil, cli.NewConfigError("environment_source.git", err.Error())
		}
		return src, nil
	default:
		return nil, cli.NewConfigError("environment_source.mode",
			fmt.Sprintf("unsupported mode %q", cfg.EnvironmentSource.Mode))
	}
}

// resolveGitAuth returns a copy of the git source settings with any
// ${secret:name} references in the credentials replaced by their values.
func (a *app) resolveGitAuth(cfg *config.Config) (*config.GitSourceConfig, error) {
	gitCfg := cfg.EnvironmentSource.Git
	auth := &gitCfg.Auth
	if !secrets.HasReference(auth.Token) && !secrets.HasReference(auth.SSHKeyPassphrase) {
		return &gitCfg, nil
	}

	resolver, err := secrets.FromConfig(cfg.Secrets, a.logger)
	if err != nil {
		return nil, cli.NewConfigError("secrets.dir", err.Error())
	}

	ctx := context.Background()
	if auth.Token, err = resolver.Resolve(ctx, auth.Token); err != nil {
		return nil, cli.NewConfigError("environment_source.git.auth.token", err.Error())
	}
	if auth.SSHKeyPassphrase, err = resolver.Resolve(ctx, auth.SSHKeyPassphrase); err != nil {
		return nil, cli.NewConfigError("environment_source.git.auth.ssh_key_passphrase", err.Error())
	}
	return &gitCfg, nil
}
