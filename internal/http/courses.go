package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/catalog/internal/audit"
	"github.com/mrlokans/catalog/internal/auth"
	"github.com/mrlokans/catalog/internal/courses"
	"github.com/mrlokans/catalog/internal/entities"
	"github.com/mrlokans/catalog/internal/logger"
)

const (
	MsgCourseAdded   = "Course added successfully"
	MsgCourseUpdated = "Course updated successfully"
	MsgCourseDeleted = "Course deleted successfully"
	MsgInvalidBody   = "Invalid request body"
)

// CourseService defines the course operations used by CoursesController.
type CourseService interface {
	List(ctx context.Context) ([]entities.Course, error)
	Get(ctx context.Context, id string) (*entities.Course, error)
	Create(ctx context.Context, req courses.CreateRequest) (*entities.Course, error)
	Update(ctx context.Context, req courses.UpdateRequest) (*entities.Course, error)
	Delete(ctx context.Context, id string) (*entities.Course, error)
}

// PurgeScheduler queues removal of a deleted course's dependents.
type PurgeScheduler interface {
	EnqueuePurge(ctx context.Context, courseID string) error
}

type CoursesController struct {
	service CourseService
	purge   PurgeScheduler
	audit   AuditService
	log     *logger.Logger
}

// NewCoursesController creates a CoursesController. purge may be nil, in
// which case dependents are left to the orphan sweep. audit may be nil.
func NewCoursesController(service CourseService, purge PurgeScheduler, audit AuditService, log *logger.Logger) *CoursesController {
	return &CoursesController{service: service, purge: purge, audit: audit, log: log}
}

// record audits a mutation attempted by an authenticated user.
func (cc *CoursesController) record(c *gin.Context, action, courseID string, course *entities.Course, err error) {
	if cc.audit == nil || !auth.IsAuthenticated(c) {
		return
	}
	title := ""
	if course != nil {
		courseID = course.ID
		title = course.Title
	}
	cc.audit.LogCourse(auth.GetUserID(c), action, courseID, title, c.ClientIP(), err)
}

// List returns all courses, optionally filtered by ?q=.
// GET /api/courses
func (cc *CoursesController) List(c *gin.Context) {
	list, err := cc.service.List(c.Request.Context())
	if err != nil {
		respondServiceError(c, cc.log, err, "list courses", errorMessages{})
		return
	}
	if q := strings.TrimSpace(c.Query("q")); q != "" {
		list = courses.Search(list, q)
	}
	c.JSON(http.StatusOK, list)
}

// Get returns the detail view of one course.
// GET /api/courses/:id
func (cc *CoursesController) Get(c *gin.Context) {
	id, ok := requireParam(c, "id")
	if !ok {
		return
	}
	course, err := cc.service.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, cc.log, err, "get course", errorMessages{})
		return
	}
	c.JSON(http.StatusOK, courses.NewDetail(*course))
}

// Create adds a course.
// POST /api/courses
func (cc *CoursesController) Create(c *gin.Context) {
	var req courses.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, MsgInvalidBody)
		return
	}

	course, err := cc.service.Create(c.Request.Context(), req)
	cc.record(c, audit.ActionCourseCreate, "", course, err)
	if err != nil {
		respondServiceError(c, cc.log, err, "create course", errorMessages{})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": MsgCourseAdded, "course": course})
}

// Update changes the present fields of a course.
// PUT /api/courses
func (cc *CoursesController) Update(c *gin.Context) {
	var req courses.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, MsgInvalidBody)
		return
	}

	course, err := cc.service.Update(c.Request.Context(), req)
	cc.record(c, audit.ActionCourseUpdate, req.ID, course, err)
	if err != nil {
		respondServiceError(c, cc.log, err, "update course", errorMessages{})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": MsgCourseUpdated, "course": course})
}

// Delete removes the course given by ?id= and queues the purge of its
// enrollments and comments.
// DELETE /api/courses
func (cc *CoursesController) Delete(c *gin.Context) {
	deleted, err := cc.service.Delete(c.Request.Context(), c.Query("id"))
	cc.record(c, audit.ActionCourseDelete, c.Query("id"), deleted, err)
	if err != nil {
		respondServiceError(c, cc.log, err, "delete course", errorMessages{})
		return
	}

	if cc.purge != nil {
		if err := cc.purge.EnqueuePurge(c.Request.Context(), deleted.ID); err != nil {
			cc.log.Warn("failed to enqueue course purge", "course_id", deleted.ID, "error", err)
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": MsgCourseDeleted, "deleted": deleted})
}
