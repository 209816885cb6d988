package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/amishk599/jobdeck/internal/poller"
)

// DefaultPause is the gap between two searches within one cycle.
const DefaultPause = time.Second

// Cleaner prunes old seen records between cycles.
type Cleaner interface {
	Cleanup(olderThan time.Duration) error
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithPause overrides the gap between searches.
func WithPause(d time.Duration) Option {
	return func(s *Scheduler) { s.pause = d }
}

// WithCleanup prunes seen records older than retain after every cycle.
func WithCleanup(c Cleaner, retain time.Duration) Option {
	return func(s *Scheduler) {
		s.cleaner = c
		s.retain = retain
	}
}

// WithSchedule runs cycles at the times of a cron schedule instead of a
// fixed interval.
func WithSchedule(schedule cron.Schedule) Option {
	return func(s *Scheduler) { s.schedule = schedule }
}

// Scheduler owns the watch loop: ticks on an interval and runs each poller sequentially.
type Scheduler struct {
	pollers  []*poller.SearchPoller
	interval time.Duration
	pause    time.Duration
	cleaner  Cleaner
	retain   time.Duration
	schedule cron.Schedule
	logger   *slog.Logger
}

// NewScheduler creates a scheduler that polls all saved searches at the given interval.
func NewScheduler(pollers []*poller.SearchPoller, interval time.Duration, logger *slog.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		pollers:  pollers,
		interval: interval,
		pause:    DefaultPause,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run starts the polling loop. It runs one immediate cycle, then ticks on the
// configured interval or schedule. It returns nil when ctx is cancelled
// (graceful shutdown).
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("starting scheduler",
		"interval", s.interval.String(),
		"scheduled", s.schedule != nil,
		"searches", len(s.pollers),
	)

	s.RunOnce(ctx)

	for {
		wait := s.nextWait(time.Now())
		s.logger.Debug("next cycle", "in", wait.String())
		select {
		case <-ctx.Done():
			s.logger.Info("shutting down scheduler")
			return nil
		case <-time.After(wait):
			s.RunOnce(ctx)
		}
	}
}

func (s *Scheduler) nextWait(now time.Time) time.Duration {
	if s.schedule == nil {
		return s.interval
	}
	next := s.schedule.Next(now)
	if next.IsZero() {
		// The schedule has no future activation.
		return s.interval
	}
	return next.Sub(now)
}

// RunOnce polls every search once and returns how many polls failed.
func (s *Scheduler) RunOnce(ctx context.Context) int {
	failed := 0
	for i, p := range s.pollers {
		if ctx.Err() != nil {
			return failed
		}

		if err := p.Poll(ctx); err != nil {
			failed++
			s.logger.Error("poll failed",
				"search", p.Name,
				"error", err,
			)
		}

		if i < len(s.pollers)-1 && s.pause > 0 {
			select {
			case <-ctx.Done():
				return failed
			case <-time.After(s.pause):
			}
		}
	}

	if s.cleaner != nil && s.retain > 0 {
		if err := s.cleaner.Cleanup(s.retain); err != nil {
			s.logger.Warn("cleanup failed", "error", err)
		}
	}
	return failed
}
