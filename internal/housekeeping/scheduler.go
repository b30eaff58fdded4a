// Package housekeeping runs the periodic IP history cleanup on a cron
// schedule.
package housekeeping

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/MrEthical07/authd"
)

// Cleaner is the engine operation the scheduler drives.
type Cleaner interface {
	CleanupIPHistory(ctx context.Context) (authd.CleanupReport, error)
}

// Scheduler runs Cleaner on a schedule. Overlapping runs are skipped and a
// panicking run is recovered and logged.
type Scheduler struct {
	cron    *cron.Cron
	job     Cleaner
	logger  *slog.Logger
	timeout time.Duration
	ctx     context.Context
	cancel  context.CancelFunc
}

type Option func(*Scheduler)

// WithTimeout bounds a single cleanup run. Zero means no bound.
func WithTimeout(d time.Duration) Option {
	return func(s *Scheduler) { s.timeout = d }
}

// New parses spec as a standard five-field cron expression (descriptors such
// as @daily are accepted) and prepares, but does not start, the scheduler.
func New(job Cleaner, spec string, logger *slog.Logger, opts ...Option) (*Scheduler, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parse cleanup schedule %q: %w", spec, err)
	}
	return newScheduler(job, schedule, logger, opts...)
}

func newScheduler(job Cleaner, schedule cron.Schedule, logger *slog.Logger, opts ...Option) (*Scheduler, error) {
	if job == nil {
		return nil, errors.New("housekeeping: nil cleaner")
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{job: job, logger: logger, ctx: ctx, cancel: cancel}
	for _, opt := range opts {
		opt(s)
	}

	cl := cronLogger{logger: logger}
	s.cron = cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.SkipIfStillRunning(cl), cron.Recover(cl)),
	)
	s.cron.Schedule(schedule, cron.FuncJob(s.run))
	return s, nil
}

// Start launches the cron goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop cancels any in-flight run and waits for it to return or for ctx to
// end, whichever is first.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	s.cancel()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce performs a cleanup immediately, outside the schedule.
func (s *Scheduler) RunOnce(ctx context.Context) (authd.CleanupReport, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return s.job.CleanupIPHistory(ctx)
}

func (s *Scheduler) run() {
	report, err := s.RunOnce(s.ctx)
	if err != nil {
		s.logger.Error("ip history cleanup failed", "error", err)
		return
	}
	s.logger.Debug("ip history cleanup run",
		"users_scanned", report.UsersScanned,
		"users_updated", report.UsersUpdated,
		"entries_removed", report.EntriesRemoved,
	)
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append([]any{"error", err}, keysAndValues...)...)
}
