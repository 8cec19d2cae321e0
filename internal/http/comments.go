package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/catalog/internal/comments"
	"github.com/mrlokans/catalog/internal/logger"
)

// CommentService defines the thread operations used by CommentsController.
type CommentService interface {
	Fetch(ctx context.Context, courseID string) ([]comments.Entry, error)
	Post(ctx context.Context, courseID, text string) ([]comments.Entry, error)
	Watch(ctx context.Context, courseID string, fn func([]comments.Entry, error)) (*comments.Watch, error)
}

type postCommentRequest struct {
	Content string `json:"content"`
}

type CommentsController struct {
	service CommentService
	log     *logger.Logger
}

func NewCommentsController(service CommentService, log *logger.Logger) *CommentsController {
	return &CommentsController{service: service, log: log}
}

// List returns the thread, newest first.
// GET /api/courses/:id/comments
func (cc *CommentsController) List(c *gin.Context) {
	courseID, ok := requireParam(c, "id")
	if !ok {
		return
	}
	entries, err := cc.service.Fetch(c.Request.Context(), courseID)
	if err != nil {
		respondServiceError(c, cc.log, err, "fetch comments", errorMessages{})
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": entries})
}

// Post adds a comment by the caller and returns the refreshed thread.
// POST /api/courses/:id/comments
func (cc *CommentsController) Post(c *gin.Context) {
	courseID, ok := requireParam(c, "id")
	if !ok {
		return
	}
	var req postCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, MsgInvalidBody)
		return
	}

	entries, err := cc.service.Post(c.Request.Context(), courseID, req.Content)
	if err != nil {
		respondServiceError(c, cc.log, err, "post comment", errorMessages{
			Auth:    comments.MsgLoginToComment,
			Failure: comments.MsgPostFailed,
		})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"comments": entries})
}
