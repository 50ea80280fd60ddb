package retention

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Notifier receives the outcome of scheduled and manual retention runs.
type Notifier interface {
	RunCompleted(ctx context.Context, result *Result)
	RunFailed(ctx context.Context, err error)
}

// SchedulerConfig holds configuration for the retention scheduler.
type SchedulerConfig struct {
	Service  *Service
	Notifier Notifier
	Logger   zerolog.Logger

	// Schedule is a standard cron expression, e.g. "0 3 * * *" for daily
	// at 3 AM. Empty disables the scheduler.
	Schedule string

	// Timezone for the cron schedule. Empty means the local timezone.
	Timezone string

	// Enabled gates cron registration; TriggerManual works either way.
	Enabled bool

	// ApplyOptions used for scheduled runs. Confirm is forced on because
	// there is no operator in the loop to confirm a large scheduled run.
	ApplyOptions ApplyOptions
}

// Scheduler triggers retention runs on a cron schedule, with a
// single-flight guard so that exactly one run (scheduled or manual) is
// active system-wide at any time. Concurrent runs would double-count
// storage freed and race on the same rows.
type Scheduler struct {
	service  *Service
	notifier Notifier
	logger   zerolog.Logger
	cron     *cron.Cron
	entryID  cron.EntryID
	schedule string
	enabled  bool
	opts     ApplyOptions
	running  atomic.Bool
}

// NewScheduler creates a new retention scheduler.
func NewScheduler(cfg SchedulerConfig) (*Scheduler, error) {
	var cronOpts []cron.Option
	if cfg.Timezone != "" {
		loc, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("invalid scheduler timezone %q: %w", cfg.Timezone, err)
		}
		cronOpts = append(cronOpts, cron.WithLocation(loc))
	}

	opts := cfg.ApplyOptions
	opts.DryRun = false
	opts.Confirm = true

	return &Scheduler{
		service:  cfg.Service,
		notifier: cfg.Notifier,
		logger:   cfg.Logger,
		cron:     cron.New(cronOpts...),
		schedule: cfg.Schedule,
		enabled:  cfg.Enabled,
		opts:     opts,
	}, nil
}

// Start registers the cron trigger and starts the scheduler. A disabled or
// unscheduled configuration makes Start a no-op.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.enabled || s.schedule == "" {
		s.logger.Info().Msg("retention scheduler disabled")
		return nil
	}

	if _, err := cron.ParseStandard(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", s.schedule, err)
	}

	entryID, err := s.cron.AddFunc(s.schedule, func() {
		s.runRetentionJob(ctx)
	})
	if err != nil {
		return fmt.Errorf("scheduling retention job: %w", err)
	}
	s.entryID = entryID

	s.cron.Start()
	s.logger.Info().
		Str("schedule", s.schedule).
		Msg("retention scheduler started")

	return nil
}

// Stop deregisters the cron trigger and waits for a running job to finish.
func (s *Scheduler) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.logger.Info().Msg("retention scheduler stopped")
}

// IsRunning reports whether a retention run is currently in flight.
func (s *Scheduler) IsRunning() bool {
	return s.running.Load()
}

// NextRun returns the next scheduled run time, or nil when unscheduled.
func (s *Scheduler) NextRun() *time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}

// TriggerManual starts a retention run outside the schedule. It returns
// false immediately when a run is already in progress, true after a fresh
// run completed. The returned Result is nil when no run was started.
func (s *Scheduler) TriggerManual(ctx context.Context) (bool, *Result, error) {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn().Msg("manual retention trigger rejected: run already in progress")
		return false, nil, nil
	}
	defer s.running.Store(false)

	s.logger.Info().Msg("manual retention run triggered")
	result, err := s.execute(ctx)
	return true, result, err
}

// runRetentionJob is the cron callback. The single-flight guard makes an
// overlapping scheduled run a logged no-op, and the deferred clear means a
// panicking run cannot leave the guard stuck.
func (s *Scheduler) runRetentionJob(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn().Msg("scheduled retention run skipped: previous run still in progress")
		return
	}
	defer s.running.Store(false)

	s.logger.Info().Msg("scheduled retention run starting")
	if _, err := s.execute(ctx); err != nil {
		s.logger.Error().Err(err).Msg("scheduled retention run failed")
	}
}

func (s *Scheduler) execute(ctx context.Context) (*Result, error) {
	result, err := s.service.Apply(ctx, s.opts)
	if err != nil {
		if s.notifier != nil {
			s.notifier.RunFailed(ctx, err)
		}
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.RunCompleted(ctx, result)
	}
	return result, nil
}
