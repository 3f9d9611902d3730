package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"chefops/cookbook-cleaner/pkg/config"
	"chefops/cookbook-cleaner/pkg/registry"
	"chefops/cookbook-cleaner/pkg/server"
	"chefops/cookbook-cleaner/pkg/telemetry/health"
	"chefops/cookbook-cleaner/pkg/telemetry/metrics"
)

// Factory builds the job for a configuration. The returned close function
// releases whatever the job holds open, such as the history store.
type Factory func(cfg *config.Config) (Job, func() error, error)

// Options configure a Service.
type Options struct {
	// Config is the configuration the service starts with.
	Config *config.Config

	// ConfigPath is watched for changes when schedule.watch_config is set.
	// Empty disables watching.
	ConfigPath string

	// Factory builds a job from a configuration. Required.
	Factory Factory

	Metrics *metrics.Collector
	Health  *health.Checker
	Logger  *slog.Logger
}

// Service runs cleanup on a schedule, serves status endpoints and rebuilds
// the job when the configuration file changes.
type Service struct {
	opts   Options
	logger *slog.Logger
	sched  *Scheduler

	// runMu serialises job execution against job replacement so a
	// replaced job is closed only after its run returns.
	runMu   sync.Mutex
	cfg     *config.Config
	current Job
	closer  func() error
}

// NewService validates opts and builds the initial job.
func NewService(opts Options) (*Service, error) {
	if opts.Config == nil {
		return nil, errors.New("configuration is required")
	}
	if opts.Factory == nil {
		return nil, errors.New("job factory is required")
	}
	if opts.Health == nil {
		opts.Health = health.New(0)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	job, closer, err := opts.Factory(opts.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to build cleanup job: %w", err)
	}

	s := &Service{
		opts:    opts,
		logger:  logger,
		cfg:     opts.Config,
		current: job,
		closer:  closer,
	}
	s.sched = NewScheduler(s.run, logger)
	opts.Health.RegisterCheck("last_run", health.LastRunCheck(s.sched.LastRun, 0, registry.IsUnavailable))
	return s, nil
}

// Scheduler returns the underlying scheduler.
func (s *Service) Scheduler() *Scheduler {
	return s.sched
}

// Run blocks until ctx is cancelled or the status server fails. On return
// the scheduler has stopped, any running job has finished and the job's
// resources are released.
func (s *Service) Run(ctx context.Context) error {
	cfg := s.config()

	g, gctx := errgroup.WithContext(ctx)

	if err := s.sched.Start(gctx, cfg.Schedule.Cron); err != nil {
		s.closeJob()
		return err
	}

	if cfg.Schedule.RunOnStart {
		g.Go(func() error {
			s.sched.Trigger(gctx)
			return nil
		})
	}

	if addr := cfg.Schedule.ListenAddress; addr != "" {
		srv := server.NewServer(server.Config{
			ListenAddress:   addr,
			ShutdownTimeout: cfg.Schedule.ShutdownTimeout,
		}, s.opts.Metrics, s.opts.Health, s.logger)
		g.Go(func() error { return srv.Start(gctx) })
	}

	if cfg.Schedule.WatchConfig && s.opts.ConfigPath != "" {
		watcher, err := config.NewWatcher(s.opts.ConfigPath, 0, s.logger)
		if err != nil {
			s.logger.Warn("configuration watching disabled", "error", err)
		} else {
			g.Go(func() error {
				defer watcher.Stop()
				return watcher.Watch(gctx, s.Reload)
			})
		}
	}

	g.Go(func() error {
		<-gctx.Done()
		s.sched.Stop()
		return nil
	})

	err := g.Wait()
	s.sched.Stop()
	s.closeJob()
	return err
}

// Reload rebuilds the job from cfg and reschedules it. A configuration
// that cannot be built is logged and the current job is kept.
func (s *Service) Reload(cfg *config.Config) {
	job, closer, err := s.opts.Factory(cfg)
	if err != nil {
		s.logger.Error("failed to rebuild cleanup job, keeping previous configuration", "error", err)
		return
	}

	if s.sched.IsRunning() {
		if err := s.sched.Reschedule(cfg.Schedule.Cron); err != nil {
			s.logger.Error("failed to apply new schedule, keeping previous configuration", "error", err)
			if closer != nil {
				_ = closer()
			}
			return
		}
	}

	s.runMu.Lock()
	old := s.closer
	s.cfg, s.current, s.closer = cfg, job, closer
	s.runMu.Unlock()

	if old != nil {
		if err := old(); err != nil {
			s.logger.Warn("failed to release previous cleanup job", "error", err)
		}
	}

	s.logger.Info("cleanup job rebuilt from new configuration",
		"environment", cfg.Cleanup.Environment,
		"schedule", cfg.Schedule.Cron,
		"really_clean", cfg.Cleanup.ReallyClean,
	)
}

func (s *Service) run(ctx context.Context) error {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	return s.current(ctx)
}

func (s *Service) config() *config.Config {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	return s.cfg
}

func (s *Service) closeJob() {
	s.runMu.Lock()
	closer := s.closer
	s.closer = nil
	s.runMu.Unlock()

	if closer == nil {
		return
	}
	if err := closer(); err != nil {
		s.logger.Warn("failed to release cleanup job", "error", err)
	}
}
