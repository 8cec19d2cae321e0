package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/catalog/internal/logger"
)

// CourseDependentsPurger removes the enrollments and comments of a course.
type CourseDependentsPurger interface {
	PurgeCourseDependents(ctx context.Context, courseID string) (int64, error)
}

// PurgeCourseTask cleans up after a deleted course.
type PurgeCourseTask struct {
	CourseID string `json:"course_id"`
}

// Config returns the queue configuration for purge tasks.
func (t PurgeCourseTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "purge_course",
		MaxAttempts: 3,
		Backoff:     30 * time.Second,
		Timeout:     time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// PurgeCourseProcessor creates a processor function for PurgeCourseTask.
func PurgeCourseProcessor(purger CourseDependentsPurger, log *logger.Logger) backlite.QueueProcessor[PurgeCourseTask] {
	return func(ctx context.Context, task PurgeCourseTask) error {
		if purger == nil {
			return fmt.Errorf("course purger not configured")
		}
		if task.CourseID == "" {
			return fmt.Errorf("purge_course: course_id is required")
		}

		removed, err := purger.PurgeCourseDependents(ctx, task.CourseID)
		if err != nil {
			return fmt.Errorf("purge course %s: %w", task.CourseID, err)
		}

		log.Info("purged course dependents", "course_id", task.CourseID, "removed", removed)
		return nil
	}
}

// NewPurgeCourseQueue creates a backlite queue for purge tasks.
func NewPurgeCourseQueue(purger CourseDependentsPurger, log *logger.Logger) backlite.Queue {
	return backlite.NewQueue(PurgeCourseProcessor(purger, log))
}
