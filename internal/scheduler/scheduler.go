// Package scheduler periodically regenerates stored reports that have gone stale.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Refresher regenerates up to limit stale reports and returns how many succeeded.
type Refresher interface {
	RefreshStale(ctx context.Context, limit int) (int, error)
}

// Options controls a refresh run.
type Options struct {
	// Schedule is a standard cron expression or descriptor such as "@daily".
	Schedule string
	// Limit caps the reports refreshed per run.
	Limit int
	// Timeout bounds a single run.
	Timeout time.Duration
}

// Scheduler runs the refresher on a cron schedule. Overlapping runs are skipped.
type Scheduler struct {
	cron      *cron.Cron
	refresher Refresher
	opts      Options
	logger    *slog.Logger

	mu      sync.Mutex
	lastRun time.Time
	lastN   int
}

// New validates the schedule and registers the refresh job. Call Start to begin.
func New(refresher Refresher, opts Options, logger *slog.Logger) (*Scheduler, error) {
	if opts.Limit <= 0 {
		opts.Limit = 100
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Minute
	}

	cl := cronLogger{logger: logger}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		refresher: refresher,
		opts:      opts,
		logger:    logger,
	}

	if _, err := s.cron.AddFunc(opts.Schedule, s.run); err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", opts.Schedule, err)
	}
	return s, nil
}

// Start begins running jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("refresh scheduler started", "schedule", s.opts.Schedule, "limit", s.opts.Limit)
}

// Stop prevents new runs and waits for a running one to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("refresh scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce performs a single refresh synchronously.
func (s *Scheduler) RunOnce(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	start := time.Now()
	n, err := s.refresher.RefreshStale(ctx, s.opts.Limit)

	s.mu.Lock()
	s.lastRun = start
	s.lastN = n
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("scheduled refresh failed", "error", err, "refreshed", n, "duration", time.Since(start))
		return n, err
	}
	s.logger.Info("scheduled refresh completed", "refreshed", n, "duration", time.Since(start))
	return n, nil
}

// LastRun returns when the latest run started and how many reports it refreshed.
func (s *Scheduler) LastRun() (time.Time, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun, s.lastN
}

func (s *Scheduler) run() {
	_, _ = s.RunOnce(context.Background())
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
