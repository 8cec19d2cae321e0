package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	auditstore "github.com/mrlokans/catalog/internal/database/audit"
	"github.com/mrlokans/catalog/internal/entities"
	"github.com/mrlokans/catalog/internal/logger"
)

const defaultAuditRetentionDays = 90

// AuditService records administrative changes and serves them back.
type AuditService interface {
	LogCourse(actorID, action, courseID, title, ipAddr string, err error)
	LogTask(actorID, taskType, description string, err error)
	GetEvents(ctx context.Context, f auditstore.Filter) ([]entities.AuditEvent, int64, error)
	DeleteOldEvents(ctx context.Context, retention time.Duration) (int64, error)
}

type AuditController struct {
	service AuditService
	log     *logger.Logger
}

func NewAuditController(service AuditService, log *logger.Logger) *AuditController {
	return &AuditController{service: service, log: log}
}

// List returns a page of audit events.
// GET /api/admin/audit?limit=&offset=&type=&user_id=
func (ac *AuditController) List(c *gin.Context) {
	limit, err := queryInt(c, "limit", 50)
	if err != nil {
		respondBadRequest(c, "limit must be a number")
		return
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		respondBadRequest(c, "offset must be a number")
		return
	}
	if limit > 200 {
		limit = 200
	}

	events, total, err := ac.service.GetEvents(c.Request.Context(), auditstore.Filter{
		UserID:    c.Query("user_id"),
		EventType: entities.AuditEventType(c.Query("type")),
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		respondInternalError(c, ac.log, err, "list audit events")
		return
	}
	if events == nil {
		events = []entities.AuditEvent{}
	}

	c.JSON(http.StatusOK, gin.H{
		"events": events,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// Prune removes events older than ?older_than_days= (default 90).
// DELETE /api/admin/audit
func (ac *AuditController) Prune(c *gin.Context) {
	days, err := queryInt(c, "older_than_days", defaultAuditRetentionDays)
	if err != nil || days < 1 {
		respondBadRequest(c, "older_than_days must be a positive number")
		return
	}

	deleted, err := ac.service.DeleteOldEvents(c.Request.Context(), time.Duration(days)*24*time.Hour)
	if err != nil {
		respondInternalError(c, ac.log, err, "prune audit events")
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

func queryInt(c *gin.Context, key string, fallback int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
