package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mrlokans/catalog/internal/logger"
)

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ValidateSchedule checks a five-field cron expression.
func ValidateSchedule(schedule string) error {
	_, err := parser.Parse(schedule)
	return err
}

// NextRunTime returns when schedule fires next after from.
func NextRunTime(schedule string, from time.Time) (time.Time, error) {
	sched, err := parser.Parse(schedule)
	if err != nil {
		return time.Time{}, err
	}
	return sched.Next(from), nil
}

// SweepEnqueuer starts an orphan sweep.
type SweepEnqueuer interface {
	EnqueueSweep(ctx context.Context) (string, error)
}

// OrphanSweeper removes orphaned rows in place.
type OrphanSweeper interface {
	DeleteOrphans(ctx context.Context) (int64, error)
}

// InlineSweep runs the sweep on the scheduler goroutine. It is used when the
// task queue is disabled.
type InlineSweep struct {
	Sweeper OrphanSweeper
	Log     *logger.Logger
}

func (s InlineSweep) EnqueueSweep(ctx context.Context) (string, error) {
	removed, err := s.Sweeper.DeleteOrphans(ctx)
	if err != nil {
		return "", err
	}
	if s.Log != nil {
		s.Log.Info("orphan sweep finished", "removed", removed)
	}
	return "", nil
}

// SweepScheduler enqueues orphan sweeps on a cron schedule.
type SweepScheduler struct {
	enqueuer SweepEnqueuer
	enabled  bool
	schedule string
	log      *logger.Logger

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	isSweeping bool
	cancelFunc context.CancelFunc
}

// NewSweepScheduler creates a new scheduler instance.
func NewSweepScheduler(enqueuer SweepEnqueuer, enabled bool, schedule string, log *logger.Logger) *SweepScheduler {
	return &SweepScheduler{
		enqueuer: enqueuer,
		enabled:  enabled,
		schedule: schedule,
		log:      log.With("component", "sweep_scheduler"),
		cron:     cron.New(cron.WithParser(parser)),
	}
}

// Start begins the scheduler if sweeping is enabled. Cancelling ctx stops it.
func (s *SweepScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}
	if !s.enabled {
		s.log.Info("orphan sweep disabled")
		return nil
	}
	if err := ValidateSchedule(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", s.schedule, err)
	}

	entryID, err := s.cron.AddFunc(s.schedule, s.runSweep)
	if err != nil {
		return fmt.Errorf("failed to schedule sweep job: %w", err)
	}
	s.entryID = entryID

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true

	next, _ := NextRunTime(s.schedule, time.Now())
	s.log.Info("orphan sweep scheduled", "schedule", s.schedule, "next_run", next)

	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop waits for a running sweep and stops the scheduler.
func (s *SweepScheduler) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	cancel := s.cancelFunc
	s.cancelFunc = nil
	s.cron.Remove(s.entryID)
	s.mu.Unlock()

	// runSweep takes mu, so wait outside of it
	<-s.cron.Stop().Done()
	if cancel != nil {
		cancel()
	}
	s.log.Info("orphan sweep scheduler stopped")
}

// RunNow triggers a sweep immediately.
func (s *SweepScheduler) RunNow() {
	go s.runSweep()
}

func (s *SweepScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

func (s *SweepScheduler) IsSweeping() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isSweeping
}

// GetNextRunTime returns when the next sweep will occur, or nil when
// stopped.
func (s *SweepScheduler) GetNextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}
	for _, entry := range s.cron.Entries() {
		if entry.ID == s.entryID {
			t := entry.Next
			return &t
		}
	}
	return nil
}

func (s *SweepScheduler) runSweep() {
	s.mu.Lock()
	if s.isSweeping {
		s.mu.Unlock()
		s.log.Debug("orphan sweep skipped, already running")
		return
	}
	s.isSweeping = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.isSweeping = false
		s.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	id, err := s.enqueuer.EnqueueSweep(ctx)
	if err != nil {
		s.log.Error("failed to start orphan sweep", "error", err)
		return
	}
	s.log.Info("orphan sweep started", "task_id", id)
}
