package http

import (
	"github.com/mrlokans/catalog/internal/auth"
	"github.com/mrlokans/catalog/internal/logger"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	// Core services
	Courses    CourseService
	Enrollment EnrollmentService
	Comments   CommentService

	// Health checks (optional)
	Database Pinger

	// Task queue (optional). When nil, deletes rely on the orphan sweep.
	Tasks TaskRunner

	// Audit log of admin changes (optional)
	Audit AuditService

	// Authentication
	AuthMiddleware *auth.Middleware
	AuthController *auth.AuthController
	SessionManager *auth.SessionManager
	AuthService    *auth.Service

	// CSRF protection for cookie sessions; disabled when empty
	CSRFSecret    []byte
	SecureCookies bool

	// CORS origins; CORS is disabled when empty
	AllowedOrigins []string

	// OpenTelemetry HTTP spans
	TracingEnabled bool
	ServiceName    string

	// Application info
	Version string

	Log *logger.Logger
}
