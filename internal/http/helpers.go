package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/catalog/internal/apperr"
	"github.com/mrlokans/catalog/internal/auth"
	"github.com/mrlokans/catalog/internal/courses"
	"github.com/mrlokans/catalog/internal/logger"
	"github.com/mrlokans/catalog/internal/recordstore"
)

// --- Response Types ---

// ErrorResponse is the standard error response format for all API errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`    // machine-readable error code
	Details any    `json:"details,omitempty"` // additional context (validation field, etc.)
}

// Machine-readable error codes.
const (
	CodeForbidden = "forbidden"
	CodeTimeout   = "timeout"
)

// --- Error Response Helpers ---

// respondBadRequest sends a 400 Bad Request response.
func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message})
}

// respondNotFound sends a 404 Not Found response.
func respondNotFound(c *gin.Context, resource string) {
	c.JSON(http.StatusNotFound, ErrorResponse{Error: resource + " not found"})
}

// respondAuthRequired sends a 401 with the auth_required code.
func respondAuthRequired(c *gin.Context, message string) {
	c.JSON(http.StatusUnauthorized, ErrorResponse{Error: message, Code: auth.CodeAuthRequired})
}

// respondInternalError logs the error and sends a 500 Internal Server Error response.
// The actual error is logged but not exposed to the client.
func respondInternalError(c *gin.Context, log *logger.Logger, err error, op string) {
	log.Error("internal error", "op", op, "error", err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}

// errorMessages overrides the client-facing text for some error kinds.
type errorMessages struct {
	// Auth is reported for ErrAuthRequired.
	Auth string
	// Failure replaces store failure details when set.
	Failure string
}

// respondServiceError maps a service error to a status code and body.
//
//	ValidationError          -> 400
//	ErrAuthRequired          -> 401, code auth_required
//	ErrPolicyViolation       -> 403
//	courses.ErrNotFound      -> 404
//	StoreError with ZeroRows -> 400
//	deadline exceeded        -> 504
//	anything else            -> 500
func respondServiceError(c *gin.Context, log *logger.Logger, err error, op string, msgs errorMessages) {
	var validation *apperr.ValidationError
	var storeErr *apperr.StoreError

	switch {
	case errors.As(err, &validation):
		respondBadRequest(c, validation.Message)
	case errors.Is(err, apperr.ErrAuthRequired):
		message := msgs.Auth
		if message == "" {
			message = "authentication required"
		}
		respondAuthRequired(c, message)
	case errors.Is(err, recordstore.ErrPolicyViolation):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "not permitted", Code: CodeForbidden})
	case errors.Is(err, courses.ErrNotFound):
		respondNotFound(c, "Course")
	case errors.As(err, &storeErr) && storeErr.ZeroRows:
		respondBadRequest(c, storeErr.Message)
	case errors.Is(err, context.DeadlineExceeded):
		log.Warn("operation timed out", "op", op, "error", err)
		c.JSON(http.StatusGatewayTimeout, ErrorResponse{Error: failureMessage(msgs, "request timed out"), Code: CodeTimeout})
	case errors.As(err, &storeErr):
		log.Error("store operation failed", "op", op, "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: failureMessage(msgs, storeErr.Error())})
	default:
		log.Error("operation failed", "op", op, "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: failureMessage(msgs, "Server error")})
	}
}

func failureMessage(msgs errorMessages, fallback string) string {
	if msgs.Failure != "" {
		return msgs.Failure
	}
	return fallback
}

// --- Parameter Parsing ---

// requireParam extracts a non-empty URL parameter.
// Returns the value or responds with a 400 error and returns "", false.
func requireParam(c *gin.Context, paramName string) (string, bool) {
	value := c.Param(paramName)
	if value == "" {
		respondBadRequest(c, paramName+" is required")
		return "", false
	}
	return value, true
}
