package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/catalog/internal/auth"
	"github.com/mrlokans/catalog/internal/logger"
)

// TaskRunner enqueues maintenance tasks and reports their status.
type TaskRunner interface {
	EnqueuePurge(ctx context.Context, courseID string) error
	EnqueueSweep(ctx context.Context) (string, error)
	EnqueueAuditCleanup(ctx context.Context, retentionDays int) (string, error)
	Status(ctx context.Context, taskID string) (backlite.TaskStatus, error)
}

// TasksController handles task queue management endpoints.
type TasksController struct {
	runner TaskRunner
	audit  AuditService
	log    *logger.Logger
}

// NewTasksController creates a new TasksController. audit may be nil.
func NewTasksController(runner TaskRunner, audit AuditService, log *logger.Logger) *TasksController {
	return &TasksController{runner: runner, audit: audit, log: log}
}

func (tc *TasksController) record(c *gin.Context, taskType, description string, err error) {
	if tc.audit != nil {
		tc.audit.LogTask(auth.GetUserID(c), taskType, description, err)
	}
}

// TaskTypeInfo describes an available task type.
type TaskTypeInfo struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Queue       string `json:"queue"`
}

// ListTaskTypes handles GET /api/tasks/types
// Returns the list of available task types that can be triggered.
func (tc *TasksController) ListTaskTypes(c *gin.Context) {
	types := []TaskTypeInfo{
		{
			Type:        "purge_course",
			Description: "Remove the enrollments and comments of a deleted course",
			Queue:       "purge_course",
		},
		{
			Type:        "sweep_orphans",
			Description: "Remove enrollments and comments whose course no longer exists",
			Queue:       "sweep_orphans",
		},
		{
			Type:        "cleanup_audit",
			Description: "Remove audit events past the retention period",
			Queue:       "cleanup_audit_events",
		},
	}

	c.JSON(http.StatusOK, gin.H{
		"task_types": types,
	})
}

// GetTaskStatus handles GET /api/tasks/:id
// Returns the status of a specific task.
func (tc *TasksController) GetTaskStatus(c *gin.Context) {
	taskID, ok := requireParam(c, "id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status, err := tc.runner.Status(ctx, taskID)
	if err != nil {
		respondInternalError(c, tc.log, err, "task status")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":     taskID,
		"status": taskStatusToString(status),
	})
}

// RunTaskRequest is the request body for running a task.
type RunTaskRequest struct {
	// CourseID is required for purge_course
	CourseID string `json:"course_id,omitempty"`
	// RetentionDays applies to cleanup_audit; zero uses the default
	RetentionDays int `json:"retention_days,omitempty"`
}

// RunTask handles POST /api/tasks/:type/run
// Manually triggers a task of the specified type.
func (tc *TasksController) RunTask(c *gin.Context) {
	taskType := c.Param("type")

	var req RunTaskRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, MsgInvalidBody)
			return
		}
	}

	ctx := c.Request.Context()
	switch taskType {
	case "purge_course":
		if req.CourseID == "" {
			respondBadRequest(c, "course_id is required for purge_course task")
			return
		}
		err := tc.runner.EnqueuePurge(ctx, req.CourseID)
		tc.record(c, taskType, "Queued purge of course "+req.CourseID, err)
		if err != nil {
			respondInternalError(c, tc.log, err, "enqueue purge")
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"type": taskType, "message": "task enqueued"})

	case "sweep_orphans":
		id, err := tc.runner.EnqueueSweep(ctx)
		tc.record(c, taskType, "Queued orphan sweep", err)
		if err != nil {
			respondInternalError(c, tc.log, err, "enqueue sweep")
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"task_id": id, "type": taskType, "message": "task enqueued"})

	case "cleanup_audit":
		if req.RetentionDays < 0 {
			respondBadRequest(c, "retention_days must not be negative")
			return
		}
		id, err := tc.runner.EnqueueAuditCleanup(ctx, req.RetentionDays)
		tc.record(c, taskType, fmt.Sprintf("Queued audit cleanup (retention %d days)", req.RetentionDays), err)
		if err != nil {
			respondInternalError(c, tc.log, err, "enqueue audit cleanup")
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"task_id": id, "type": taskType, "message": "task enqueued"})

	default:
		respondBadRequest(c, fmt.Sprintf("unknown task type: %s", taskType))
	}
}

func taskStatusToString(status backlite.TaskStatus) string {
	switch status {
	case backlite.TaskStatusPending:
		return "pending"
	case backlite.TaskStatusRunning:
		return "running"
	case backlite.TaskStatusSuccess:
		return "success"
	case backlite.TaskStatusFailure:
		return "failure"
	case backlite.TaskStatusNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}
