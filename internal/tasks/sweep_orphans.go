package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/catalog/internal/logger"
)

// OrphanSweeper deletes enrollments and comments whose course is gone.
type OrphanSweeper interface {
	DeleteOrphans(ctx context.Context) (int64, error)
}

// SweepOrphansTask removes dependents left behind by courses deleted while
// the purge queue was unavailable.
type SweepOrphansTask struct{}

// Config returns the queue configuration for sweep tasks.
func (t SweepOrphansTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "sweep_orphans",
		MaxAttempts: 1,
		Backoff:     time.Minute,
		Timeout:     5 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// SweepOrphansProcessor creates a processor function for SweepOrphansTask.
func SweepOrphansProcessor(sweeper OrphanSweeper, log *logger.Logger) backlite.QueueProcessor[SweepOrphansTask] {
	return func(ctx context.Context, task SweepOrphansTask) error {
		if sweeper == nil {
			return fmt.Errorf("orphan sweeper not configured")
		}

		removed, err := sweeper.DeleteOrphans(ctx)
		if err != nil {
			return fmt.Errorf("sweep orphans: %w", err)
		}

		log.Info("swept orphan rows", "removed", removed)
		return nil
	}
}

// NewSweepOrphansQueue creates a backlite queue for sweep tasks.
func NewSweepOrphansQueue(sweeper OrphanSweeper, log *logger.Logger) backlite.Queue {
	return backlite.NewQueue(SweepOrphansProcessor(sweeper, log))
}
