package main

import (
	"github.com/spf13/cobra"

	"chefops/cookbook-cleaner/pkg/cli"
	"chefops/cookbook-cleaner/pkg/config"
	"chefops/cookbook-cleaner/pkg/registry"
	"chefops/cookbook-cleaner/pkg/telemetry/tracing"
)

var cleanFlags struct {
	knifeConfig        string
	historicalVersions int
	environment        string
	reallyClean        bool
	output             string
	metricsFile        string
	inventoryFile      string
	include            []string
	exclude            []string
}

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Evaluate cookbooks and delete old versions",
	Long: `Evaluate every cookbook on the Chef server against the pins of an
environment and delete versions outside the retention window.

Without --really-clean the command only reports what it would delete.

Exit codes:
  0  run finished (some deletions may have failed, see the report)
  1  unexpected failure
  2  invalid configuration or flags
  3  the Chef server or environment source could not be read

Examples:
  # Dry run against ~/.chef/knife.rb, production pins, 5 historical versions
  cookbook-cleaner clean

  # Keep 3 historical versions behind the staging pins and delete the rest
  cookbook-cleaner clean -e staging -H 3 --really-clean

  # Replay a saved cookbook listing against environment files
  cookbook-cleaner clean --inventory-file cookbooks.json -c offline.yaml

  # Machine readable summary
  cookbook-cleaner clean --output json`,
	RunE: runClean,
}

func init() {
	rootCmd.AddCommand(cleanCmd)

	f := cleanCmd.Flags()
	f.StringVar(&cleanFlags.knifeConfig, "knife-config", "", "path to knife.rb (default ~/.chef/knife.rb)")
	f.IntVarP(&cleanFlags.historicalVersions, "historical-versions", "H", config.DefaultHistoricalCount, "number of versions older than the pinned version to keep")
	f.StringVarP(&cleanFlags.environment, "environment", "e", config.DefaultCleanupEnv, "environment whose pins are protected")
	f.BoolVar(&cleanFlags.reallyClean, "really-clean", false, "delete versions (default is a dry run)")
	f.StringVarP(&cleanFlags.output, "output", "o", "text", "report format: text, json, csv")
	f.StringVar(&cleanFlags.metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile after the run")
	f.StringVar(&cleanFlags.inventoryFile, "inventory-file", "", "read the cookbook inventory from a JSON dump instead of the server")
	f.StringSliceVar(&cleanFlags.include, "include", nil, "only consider cookbooks matching these glob patterns")
	f.StringSliceVar(&cleanFlags.exclude, "exclude", nil, "skip cookbooks matching these glob patterns")
}

// applyCleanFlags overrides configuration values with flags the user set.
func applyCleanFlags(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()

	if f.Changed("knife-config") {
		cfg.Chef.KnifeConfig = cleanFlags.knifeConfig
	}
	if f.Changed("historical-versions") {
		if cleanFlags.historicalVersions < 0 {
			return cli.NewConfigError("historical-versions", "must not be negative")
		}
		cfg.Cleanup.HistoricalVersions = cleanFlags.historicalVersions
	}
	if f.Changed("environment") {
		if cleanFlags.environment == "" {
			return cli.NewConfigError("environment", "must not be empty")
		}
		cfg.Cleanup.Environment = cleanFlags.environment
	}
	if f.Changed("really-clean") {
		cfg.Cleanup.ReallyClean = cleanFlags.reallyClean
	}
	if f.Changed("include") {
		cfg.Cleanup.Include = cleanFlags.include
	}
	if f.Changed("exclude") {
		cfg.Cleanup.Exclude = cleanFlags.exclude
	}
	if verbose {
		cfg.Cleanup.Verbose = true
	}
	return nil
}

func runClean(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(cleanFlags.output)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applyCleanFlags(cmd, cfg); err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return cli.NewConfigError("flags", err.Error())
	}

	a, err := newApp(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.shutdown()

	j, err := a.buildJob(cfg, jobSpec{
		inventoryFile: cleanFlags.inventoryFile,
		output:        format,
		stdout:        cmd.OutOrStdout(),
	})
	if err != nil {
		return err
	}
	defer j.Close()

	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()
	ctx = tracing.ContextFromEnvironment(ctx)

	_, runErr := j.orchestrator.Run(ctx)

	if cleanFlags.metricsFile != "" {
		if err := a.metrics.WriteTextfile(cleanFlags.metricsFile); err != nil {
			a.logger.Error("failed to write metrics file", "error", err)
		}
	}

	if runErr != nil {
		if registry.IsUnavailable(runErr) {
			return cli.NewExitError(cli.ExitUnavailable, runErr)
		}
		return cli.NewCommandError("clean", runErr)
	}
	return nil
}
