package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/catalog/internal/enrollment"
	"github.com/mrlokans/catalog/internal/entities"
	"github.com/mrlokans/catalog/internal/logger"
)

// MsgWishlistLogin is reported when the wishlist is requested anonymously.
const MsgWishlistLogin = "Please log in to view your wishlist."

// EnrollmentService defines the synchronizer operations used by
// EnrollmentController.
type EnrollmentService interface {
	Check(ctx context.Context, courseID string) (enrollment.State, error)
	Toggle(ctx context.Context, courseID string) (enrollment.Result, error)
	Count(ctx context.Context) (int64, error)
	Wishlist(ctx context.Context, term string) ([]entities.Course, error)
	Observe(userID string) *enrollment.CountObserver
}

type EnrollmentController struct {
	service EnrollmentService
	log     *logger.Logger
}

func NewEnrollmentController(service EnrollmentService, log *logger.Logger) *EnrollmentController {
	return &EnrollmentController{service: service, log: log}
}

// Check reports the caller's enrollment in a course. Anonymous callers are
// not enrolled.
// GET /api/courses/:id/enrollment
func (ec *EnrollmentController) Check(c *gin.Context) {
	courseID, ok := requireParam(c, "id")
	if !ok {
		return
	}
	state, err := ec.service.Check(c.Request.Context(), courseID)
	if err != nil {
		respondServiceError(c, ec.log, err, "check enrollment", errorMessages{})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"enrolled": state == enrollment.StateEnrolled,
		"state":    state.String(),
	})
}

// Toggle enrolls or unenrolls the caller.
// POST /api/courses/:id/enrollment
func (ec *EnrollmentController) Toggle(c *gin.Context) {
	courseID, ok := requireParam(c, "id")
	if !ok {
		return
	}
	result, err := ec.service.Toggle(c.Request.Context(), courseID)
	if err != nil {
		respondServiceError(c, ec.log, err, "toggle enrollment", errorMessages{
			Auth:    enrollment.MsgLoginFirst,
			Failure: enrollment.MsgToggleFailed,
		})
		return
	}
	c.JSON(http.StatusOK, result)
}

// Wishlist returns the caller's enrolled courses, searched by ?q=.
// GET /api/wishlist
func (ec *EnrollmentController) Wishlist(c *gin.Context) {
	list, err := ec.service.Wishlist(c.Request.Context(), c.Query("q"))
	if err != nil {
		respondServiceError(c, ec.log, err, "wishlist", errorMessages{Auth: MsgWishlistLogin})
		return
	}
	c.JSON(http.StatusOK, gin.H{"courses": list, "count": len(list)})
}

// Count returns the caller's wishlist size; 0 when anonymous.
// GET /api/wishlist/count
func (ec *EnrollmentController) Count(c *gin.Context) {
	count, err := ec.service.Count(c.Request.Context())
	if err != nil {
		respondServiceError(c, ec.log, err, "wishlist count", errorMessages{})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}
