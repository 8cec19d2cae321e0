package audit

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	auditRepo "github.com/mrlokans/catalog/internal/database/audit"
	"github.com/mrlokans/catalog/internal/entities"
	"github.com/mrlokans/catalog/internal/logger"
)

func setupTestService(t *testing.T) (*Service, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	// The async writer uses its own connection; keep one so it sees the schema
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(&entities.AuditEvent{})
	require.NoError(t, err)

	repo := auditRepo.NewRepository(db)
	svc := NewService(repo, logger.Nop())

	return svc, db
}

func waitForEvent(t *testing.T, db *gorm.DB, action string) entities.AuditEvent {
	t.Helper()
	var event entities.AuditEvent
	require.Eventually(t, func() bool {
		return db.Where("action = ?", action).First(&event).Error == nil
	}, 2*time.Second, 10*time.Millisecond)
	return event
}

func TestService_Log(t *testing.T) {
	svc, db := setupTestService(t)

	event := &entities.AuditEvent{
		UserID:    "admin-1",
		EventType: entities.AuditEventCourse,
		Action:    "course_create",
		Status:    entities.AuditStatusSuccess,
	}

	err := svc.Log(context.Background(), event)
	require.NoError(t, err)

	var saved entities.AuditEvent
	err = db.First(&saved, event.ID).Error
	require.NoError(t, err)
	assert.Equal(t, "course_create", saved.Action)
}

func TestService_LogCourse(t *testing.T) {
	svc, db := setupTestService(t)

	t.Run("success", func(t *testing.T) {
		svc.LogCourse("admin-1", ActionCourseCreate, "c-1", "Algorithms", "10.0.0.1", nil)

		event := waitForEvent(t, db, ActionCourseCreate)
		assert.Equal(t, "admin-1", event.UserID)
		assert.Equal(t, entities.AuditEventCourse, event.EventType)
		assert.Equal(t, "Created course: Algorithms", event.Description)
		assert.Equal(t, "course", event.EntityType)
		assert.Equal(t, "c-1", event.EntityID)
		assert.Equal(t, "10.0.0.1", event.IPAddress)
		assert.Equal(t, entities.AuditStatusSuccess, event.Status)
	})

	t.Run("failure", func(t *testing.T) {
		svc.LogCourse("admin-1", ActionCourseDelete, "c-2", "", "", errors.New("zero rows"))

		event := waitForEvent(t, db, ActionCourseDelete)
		assert.Equal(t, entities.AuditStatusFailed, event.Status)
		assert.Equal(t, "zero rows", event.ErrorMsg)
	})
}

func TestService_LogTask(t *testing.T) {
	svc, db := setupTestService(t)

	svc.LogTask("admin-1", "sweep_orphans", "Queued orphan sweep", nil)

	event := waitForEvent(t, db, "task_sweep_orphans")
	assert.Equal(t, entities.AuditEventTask, event.EventType)
	assert.Equal(t, "Queued orphan sweep", event.Description)
}

func TestService_GetEventsAndDeleteOld(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Log(ctx, &entities.AuditEvent{
		Action:    "stale",
		EventType: entities.AuditEventTask,
		Status:    entities.AuditStatusSuccess,
		CreatedAt: time.Now().Add(-100 * 24 * time.Hour),
	}))
	require.NoError(t, svc.Log(ctx, &entities.AuditEvent{
		Action:    ActionCourseUpdate,
		EventType: entities.AuditEventCourse,
		Status:    entities.AuditStatusSuccess,
	}))

	events, total, err := svc.GetEvents(ctx, auditRepo.Filter{EventType: entities.AuditEventCourse})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, ActionCourseUpdate, events[0].Action)

	deleted, err := svc.DeleteOldEvents(ctx, 90*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	long := strings.Repeat("x", 20)
	assert.Equal(t, "xxxxxxx...", truncate(long, 10))
}

func TestDescribeCourse(t *testing.T) {
	assert.Equal(t, "Updated course: Go", describeCourse(ActionCourseUpdate, "Go"))
	assert.Equal(t, "other: Go", describeCourse("other", "Go"))
}
