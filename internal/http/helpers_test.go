package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/mrlokans/catalog/internal/apperr"
	"github.com/mrlokans/catalog/internal/courses"
	"github.com/mrlokans/catalog/internal/logger"
	"github.com/mrlokans/catalog/internal/recordstore"
)

func TestRespondServiceError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		msgs     errorMessages
		wantCode int
		wantBody string
	}{
		{
			name:     "validation",
			err:      apperr.Validation("id", "Course ID is required"),
			wantCode: http.StatusBadRequest,
			wantBody: `{"error":"Course ID is required"}`,
		},
		{
			name:     "auth required with default message",
			err:      apperr.ErrAuthRequired,
			wantCode: http.StatusUnauthorized,
			wantBody: `{"error":"authentication required","code":"auth_required"}`,
		},
		{
			name:     "auth required with custom message",
			err:      fmt.Errorf("toggle: %w", apperr.ErrAuthRequired),
			msgs:     errorMessages{Auth: "Please log in first."},
			wantCode: http.StatusUnauthorized,
			wantBody: `{"error":"Please log in first.","code":"auth_required"}`,
		},
		{
			name:     "policy violation",
			err:      apperr.Store("create", &recordstore.Error{Op: "insert", Table: "courses", Err: recordstore.ErrPolicyViolation}),
			wantCode: http.StatusForbidden,
			wantBody: `{"error":"not permitted","code":"forbidden"}`,
		},
		{
			name:     "not found",
			err:      courses.ErrNotFound,
			wantCode: http.StatusNotFound,
			wantBody: `{"error":"Course not found"}`,
		},
		{
			name:     "zero rows",
			err:      apperr.ZeroRows("delete", courses.MsgNotDeleted),
			wantCode: http.StatusBadRequest,
			wantBody: `{"error":"No rows deleted: course not found or not permitted"}`,
		},
		{
			name:     "deadline exceeded",
			err:      apperr.Store("enroll", context.DeadlineExceeded),
			msgs:     errorMessages{Failure: "Failed to update enrollment."},
			wantCode: http.StatusGatewayTimeout,
			wantBody: `{"error":"Failed to update enrollment.","code":"timeout"}`,
		},
		{
			name:     "store failure exposes its message",
			err:      apperr.Store("list", errors.New("relation does not exist")),
			wantCode: http.StatusInternalServerError,
			wantBody: `{"error":"relation does not exist"}`,
		},
		{
			name:     "store failure with override",
			err:      apperr.Store("post", errors.New("disk full")),
			msgs:     errorMessages{Failure: "Failed to post comment."},
			wantCode: http.StatusInternalServerError,
			wantBody: `{"error":"Failed to post comment."}`,
		},
		{
			name:     "unknown error",
			err:      errors.New("boom"),
			wantCode: http.StatusInternalServerError,
			wantBody: `{"error":"Server error"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			respondServiceError(c, logger.Nop(), tt.err, "test", tt.msgs)

			assert.Equal(t, tt.wantCode, w.Code)
			assert.JSONEq(t, tt.wantBody, w.Body.String())
		})
	}
}

func TestRequireParam(t *testing.T) {
	t.Run("returns the value", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Params = gin.Params{{Key: "id", Value: "abc"}}

		value, ok := requireParam(c, "id")
		assert.True(t, ok)
		assert.Equal(t, "abc", value)
	})

	t.Run("rejects a missing value", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)

		_, ok := requireParam(c, "id")
		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"error":"id is required"}`, w.Body.String())
	})
}

func TestRespondInternalError(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	respondInternalError(c, logger.Nop(), errors.New("secret detail"), "test")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "secret detail")
}
