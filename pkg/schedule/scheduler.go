package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is one cleanup pass.
type Job func(ctx context.Context) error

// Scheduler runs a Job on a cron schedule. A trigger that fires while the
// previous run is still in progress is skipped.
type Scheduler struct {
	cron    *cron.Cron
	logger  *slog.Logger
	mu      sync.Mutex
	running bool
	spec    string
	entry   cron.EntryID
	ctx     context.Context

	jobMu sync.RWMutex
	job   Job

	inFlight atomic.Bool

	lastMu       sync.RWMutex
	lastFinished time.Time
	lastErr      error
}

// NewScheduler creates a scheduler for job.
func NewScheduler(job Job, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "scheduler")
	return &Scheduler{
		cron:   cron.New(cron.WithChain(cron.Recover(cronLogger{logger}))),
		logger: logger,
		job:    job,
	}
}

// Start schedules the job with a standard five-field cron expression.
// Runs receive ctx; the scheduler stops when ctx is cancelled.
//
// Common cron expressions:
//   - "0 4 * * *"    - Daily at 4 AM
//   - "0 */6 * * *"  - Every 6 hours
//   - "0 4 * * 1"    - Weekly on Monday at 4 AM
func (s *Scheduler) Start(ctx context.Context, spec string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	s.ctx = ctx
	if err := s.schedule(spec); err != nil {
		return err
	}

	s.cron.Start()
	s.running = true

	s.logger.Info("cleanup scheduler started", "schedule", spec, "next_run", s.nextRun())

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// Reschedule replaces the cron expression of a running scheduler.
func (s *Scheduler) Reschedule(spec string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return fmt.Errorf("scheduler not running")
	}
	if spec == s.spec {
		return nil
	}

	previous := s.entry
	if err := s.schedule(spec); err != nil {
		return err
	}
	s.cron.Remove(previous)

	s.logger.Info("cleanup schedule changed", "schedule", spec, "next_run", s.nextRun())
	return nil
}

// schedule adds an entry for spec. Callers hold mu.
func (s *Scheduler) schedule(spec string) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", spec, err)
	}

	id, err := s.cron.AddFunc(spec, func() { s.Trigger(s.ctx) })
	if err != nil {
		return fmt.Errorf("failed to schedule cleanup: %w", err)
	}
	s.entry = id
	s.spec = spec
	return nil
}

// SetJob replaces the job used by subsequent runs.
func (s *Scheduler) SetJob(job Job) {
	s.jobMu.Lock()
	defer s.jobMu.Unlock()
	s.job = job
}

// Trigger runs the job now unless a run is already in progress. It reports
// whether the job ran.
func (s *Scheduler) Trigger(ctx context.Context) bool {
	if !s.inFlight.CompareAndSwap(false, true) {
		s.logger.Warn("previous cleanup run still in progress, skipping")
		return false
	}
	defer s.inFlight.Store(false)

	s.jobMu.RLock()
	job := s.job
	s.jobMu.RUnlock()

	s.logger.Info("starting scheduled cleanup run")
	start := time.Now()
	err := job(ctx)

	s.lastMu.Lock()
	s.lastFinished = time.Now()
	s.lastErr = err
	s.lastMu.Unlock()

	if err != nil {
		s.logger.Error("scheduled cleanup run failed", "error", err, "duration", time.Since(start))
	} else {
		s.logger.Info("scheduled cleanup run completed", "duration", time.Since(start))
	}
	return true
}

// LastRun returns when the last run finished and its error. It matches
// health.LastRunFunc.
func (s *Scheduler) LastRun() (time.Time, error) {
	s.lastMu.RLock()
	defer s.lastMu.RUnlock()
	return s.lastFinished, s.lastErr
}

// Stop stops the scheduler and waits for a running job to complete.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		ctx := s.cron.Stop()
		<-ctx.Done()
		s.running = false
		s.logger.Info("cleanup scheduler stopped")
	}
}

// IsRunning returns true if the scheduler is running.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the next scheduled run time, or nil when nothing is scheduled.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.nextRun()
	if next.IsZero() {
		return nil
	}
	return &next
}

func (s *Scheduler) nextRun() time.Time {
	entry := s.cron.Entry(s.entry)
	if !entry.Valid() {
		return time.Time{}
	}
	if entry.Next.IsZero() {
		// The cron loop fills Next once started; compute it directly until then.
		return entry.Schedule.Next(time.Now())
	}
	return entry.Next
}

// cronLogger adapts slog to the cron.Logger interface.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
