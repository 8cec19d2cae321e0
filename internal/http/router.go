package http

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/mrlokans/catalog/internal/auth"
	"github.com/mrlokans/catalog/internal/entities"
	"github.com/mrlokans/catalog/internal/logger"
)

// NewRouter creates and configures the HTTP router with all endpoints.
// Uses RouterConfig to receive all dependencies, improving testability
// and reducing parameter count.
func NewRouter(cfg RouterConfig) *gin.Engine {
	log := cfg.Log
	if log == nil {
		log = logger.Nop()
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	if cfg.TracingEnabled {
		router.Use(otelgin.Middleware(cfg.ServiceName))
	}

	if len(cfg.AllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Authorization", "Content-Type", auth.CSRFTokenHeader},
			ExposeHeaders:    []string{auth.CSRFTokenHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Apply security headers to all responses
	router.Use(auth.SecurityHeadersMiddleware())

	// CSRF must run before session so that session context is preserved.
	// The password-grant token endpoint carries no cookie and is exempt.
	if len(cfg.CSRFSecret) > 0 {
		router.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.SecureCookies, cfg.AuthService, auth.TokenPath))
	}

	// Session runs after CSRF so session context isn't overwritten by CSRF's request replacement
	if cfg.SessionManager != nil {
		router.Use(cfg.SessionManager.SessionLoadSave())
	}

	// Identity resolution never blocks; table policies decide access
	if cfg.AuthMiddleware != nil {
		router.Use(cfg.AuthMiddleware.Handler())
	}

	health := NewHealthController(cfg.Database, cfg.Version)
	router.GET("/health", health.Status)
	router.GET("/ping", health.Ping)

	api := router.Group("/api")

	if cfg.AuthController != nil {
		cfg.AuthController.RegisterRoutes(router)
	}

	if cfg.Courses != nil {
		coursesController := NewCoursesController(cfg.Courses, cfg.Tasks, cfg.Audit, log)
		api.GET("/courses", coursesController.List)
		api.POST("/courses", coursesController.Create)
		api.PUT("/courses", coursesController.Update)
		api.DELETE("/courses", coursesController.Delete)
		api.GET("/courses/:id", coursesController.Get)
	}

	if cfg.Enrollment != nil {
		enrollmentController := NewEnrollmentController(cfg.Enrollment, log)
		api.GET("/courses/:id/enrollment", enrollmentController.Check)
		api.POST("/courses/:id/enrollment", enrollmentController.Toggle)
		api.GET("/wishlist", enrollmentController.Wishlist)
		api.GET("/wishlist/count", enrollmentController.Count)
	}

	if cfg.Comments != nil {
		commentsController := NewCommentsController(cfg.Comments, log)
		api.GET("/courses/:id/comments", commentsController.List)
		api.POST("/courses/:id/comments", commentsController.Post)
	}

	if cfg.Enrollment != nil && cfg.Comments != nil {
		live := NewLiveController(cfg.Enrollment, cfg.Comments, cfg.AllowedOrigins, log)
		api.GET("/wishlist/count/live", live.WishlistCount)
		api.GET("/courses/:id/comments/live", live.CommentThread)
	}

	// Task management endpoints (admin only)
	if cfg.Tasks != nil && cfg.AuthMiddleware != nil {
		tasksController := NewTasksController(cfg.Tasks, cfg.Audit, log)
		admin := api.Group("/tasks", cfg.AuthMiddleware.RequireRole(entities.UserRoleAdmin))
		admin.GET("/types", tasksController.ListTaskTypes)
		admin.GET("/:id", tasksController.GetTaskStatus)
		admin.POST("/:type/run", tasksController.RunTask)
	}

	if cfg.Audit != nil && cfg.AuthMiddleware != nil {
		auditController := NewAuditController(cfg.Audit, log)
		admin := api.Group("/admin/audit", cfg.AuthMiddleware.RequireRole(entities.UserRoleAdmin))
		admin.GET("", auditController.List)
		admin.DELETE("", auditController.Prune)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found"})
	})

	return router
}
