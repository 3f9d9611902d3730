package main

import (
	"context"

	"github.com/spf13/cobra"

	"chefops/cookbook-cleaner/pkg/cli"
	"chefops/cookbook-cleaner/pkg/config"
	"chefops/cookbook-cleaner/pkg/schedule"
	"chefops/cookbook-cleaner/pkg/telemetry/health"
)

var scheduleFlags struct {
	cron       string
	listen     string
	runOnStart bool
	output     string
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run cleanups on a cron schedule",
	Long: `Run cleanup passes repeatedly on a cron schedule.

While running, the scheduler serves /metrics, /healthz and /readyz on the
configured listen address. When schedule.watch_config is enabled, edits to
the configuration file take effect at the next run without a restart.
The process stops gracefully on SIGINT or SIGTERM, letting a running pass
finish.

Examples:
  # Weekly destructive cleanup configured in a file
  cookbook-cleaner schedule -c /etc/cookbook-cleaner/config.yaml

  # Daily dry runs starting immediately, status on port 9464
  cookbook-cleaner schedule --cron "0 4 * * *" --run-on-start --listen :9464`,
	RunE: runSchedule,
}

func init() {
	rootCmd.AddCommand(scheduleCmd)

	f := scheduleCmd.Flags()
	f.StringVar(&scheduleFlags.cron, "cron", "", "override schedule.cron")
	f.StringVar(&scheduleFlags.listen, "listen", "", "override schedule.listen_address")
	f.BoolVar(&scheduleFlags.runOnStart, "run-on-start", false, "run once immediately")
	f.StringVarP(&scheduleFlags.output, "output", "o", "text", "report format for each run: text, json, csv")
}

func applyScheduleFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("cron") {
		cfg.Schedule.Cron = scheduleFlags.cron
	}
	if f.Changed("listen") {
		cfg.Schedule.ListenAddress = scheduleFlags.listen
	}
	if f.Changed("run-on-start") {
		cfg.Schedule.RunOnStart = scheduleFlags.runOnStart
	}
	if verbose {
		cfg.Cleanup.Verbose = true
	}
}

func runSchedule(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(scheduleFlags.output)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyScheduleFlags(cmd, cfg)
	if err := config.Validate(cfg); err != nil {
		return cli.NewConfigError("flags", err.Error())
	}

	a, err := newApp(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.shutdown()

	checker := health.New(0)

	factory := func(next *config.Config) (schedule.Job, func() error, error) {
		// Flags win over reloaded file values too.
		applyScheduleFlags(cmd, next)

		j, err := a.buildJob(next, jobSpec{output: format, stdout: cmd.OutOrStdout()})
		if err != nil {
			return nil, nil, err
		}
		if j.history != nil {
			checker.RegisterCheck("history", j.history.Ping)
		} else {
			checker.RegisterCheck("history", func(context.Context) error { return nil })
		}

		run := func(ctx context.Context) error {
			_, err := j.orchestrator.Run(ctx)
			return err
		}
		return run, j.Close, nil
	}

	svc, err := schedule.NewService(schedule.Options{
		Config:     cfg,
		ConfigPath: cfgFile,
		Factory:    factory,
		Metrics:    a.metrics,
		Health:     checker,
		Logger:     a.logger,
	})
	if err != nil {
		return err
	}

	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()

	if err := svc.Run(ctx); err != nil {
		return cli.NewCommandError("schedule", err)
	}
	return nil
}
