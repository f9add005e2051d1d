// Package scheduler runs recommendation refreshes on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/parlay-edge/internal/report"
)

// Refresher runs one recommendation pass.
type Refresher interface {
	Refresh(ctx context.Context, date string) (report.Summary, error)
}

// DateFunc picks the slate date for a run. An empty date means the provider's current slate.
type DateFunc func(now time.Time) string

// Scheduler manages scheduled refresh jobs
type Scheduler struct {
	cron            *cron.Cron
	refresher       Refresher
	logger          *logrus.Logger
	date            DateFunc
	mu              sync.RWMutex
	isRunning       bool
	jobIDs          []cron.EntryID
	gracefulTimeout time.Duration
}

// NewScheduler creates a new scheduler. Overlapping runs of the same job are skipped.
func NewScheduler(refresher Refresher, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(logger))),
		),
		refresher:       refresher,
		logger:          logger,
		date:            func(time.Time) string { return "" },
		jobIDs:          make([]cron.EntryID, 0),
		gracefulTimeout: 30 * time.Second,
	}
}

// SetDateFunc replaces how each run picks its slate date.
func (s *Scheduler) SetDateFunc(fn DateFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fn != nil {
		s.date = fn
	}
}

// ScheduleRefresh schedules a refresh every interval. Each run is bounded by the interval.
func (s *Scheduler) ScheduleRefresh(interval time.Duration) error {
	if interval < time.Second {
		interval = time.Second
	}
	return s.schedule(fmt.Sprintf("@every %s", interval), interval)
}

// ScheduleRefreshCron schedules a refresh on a cron expression, e.g. Sunday mornings before kickoff.
func (s *Scheduler) ScheduleRefreshCron(cronExpression string) error {
	return s.schedule(cronExpression, 5*time.Minute)
}

func (s *Scheduler) schedule(spec string, timeout time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot schedule job while scheduler is running")
	}

	entryID, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		s.RunNow(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to add job: %w", err)
	}

	s.jobIDs = append(s.jobIDs, entryID)
	s.logger.WithField("schedule", spec).Info("Scheduled recommendation refresh")

	return nil
}

// RunNow performs one refresh immediately and logs the outcome.
func (s *Scheduler) RunNow(ctx context.Context) {
	s.mu.RLock()
	date := s.date(time.Now().UTC())
	s.mu.RUnlock()

	summary, err := s.refresher.Refresh(ctx, date)
	if err != nil {
		s.logger.WithError(err).WithField("date", date).Error("Scheduled refresh failed")
		return
	}
	s.logger.WithFields(logrus.Fields{
		"run_id":  summary.RunID.String(),
		"status":  summary.Status,
		"parlays": len(summary.Parlays),
	}).Info("Scheduled refresh completed")
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}

	if len(s.jobIDs) == 0 {
		return fmt.Errorf("no jobs scheduled")
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.WithField("jobs", len(s.jobIDs)).Info("Scheduler started")

	return nil
}

// Stop stops the scheduler, waiting up to the graceful timeout for a running refresh.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	stopped := s.cron.Stop()
	s.mu.Unlock()

	// running jobs take the read lock, so wait without holding it
	select {
	case <-stopped.Done():
		s.logger.Info("Scheduler stopped")
		return nil
	case <-time.After(s.gracefulTimeout):
		return fmt.Errorf("scheduler stop timed out after %s", s.gracefulTimeout)
	}
}

// IsRunning returns whether the scheduler is currently running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetNextRun returns the time of the next scheduled job run
func (s *Scheduler) GetNextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning || len(s.jobIDs) == 0 {
		return time.Time{}
	}

	nextRun := time.Time{}
	for _, jobID := range s.jobIDs {
		entry := s.cron.Entry(jobID)
		if entry.Valid() {
			if nextRun.IsZero() || entry.Next.Before(nextRun) {
				nextRun = entry.Next
			}
		}
	}

	return nextRun
}

// Entries returns information about scheduled entries
func (s *Scheduler) Entries() []cron.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]cron.Entry, 0, len(s.jobIDs))
	for _, jobID := range s.jobIDs {
		entry := s.cron.Entry(jobID)
		if entry.Valid() {
			entries = append(entries, entry)
		}
	}

	return entries
}

// RemoveJob removes a scheduled job
func (s *Scheduler) RemoveJob(jobID cron.EntryID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot remove job while scheduler is running")
	}

	s.cron.Remove(jobID)
	for i, id := range s.jobIDs {
		if id == jobID {
			s.jobIDs = append(s.jobIDs[:i], s.jobIDs[i+1:]...)
			break
		}
	}
	s.logger.WithField("job_id", int(jobID)).Info("Removed scheduled job")

	return nil
}
