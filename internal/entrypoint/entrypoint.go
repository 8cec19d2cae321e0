package entrypoint

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/catalog/internal/audit"
	"github.com/mrlokans/catalog/internal/auth"
	"github.com/mrlokans/catalog/internal/comments"
	"github.com/mrlokans/catalog/internal/config"
	"github.com/mrlokans/catalog/internal/courses"
	"github.com/mrlokans/catalog/internal/database"
	auditstore "github.com/mrlokans/catalog/internal/database/audit"
	"github.com/mrlokans/catalog/internal/enrollment"
	http_controllers "github.com/mrlokans/catalog/internal/http"
	"github.com/mrlokans/catalog/internal/logger"
	"github.com/mrlokans/catalog/internal/recordstore"
	"github.com/mrlokans/catalog/internal/scheduler"
	"github.com/mrlokans/catalog/internal/tasks"
	"github.com/mrlokans/catalog/internal/telemetry"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

// App is a fully wired server.
type App struct {
	Router   *gin.Engine
	Shutdown ShutdownFunc
}

func Serve(router *gin.Engine, cfg *config.Config, log *logger.Logger, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		log.Info("starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("listen failed", "error", err)
		}
	}()

	// kill (no param) sends SIGTERM, kill -2 is SIGINT
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server", "timeout", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Close live streams and workers before the listener
	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server shutdown failed", "error", err)
	}

	log.Info("server exiting")
}

func Run(cfg *config.Config, version string) {
	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("starting course catalog", "version", version, "environment", cfg.Global.Environment)

	app, err := Build(context.Background(), cfg, version, log)
	if err != nil {
		log.Fatal("failed to initialize server", "error", err)
	}

	Serve(app.Router, cfg, log, app.Shutdown)
}

// Build opens every backing service and wires the router. The returned
// Shutdown releases them in reverse order.
func Build(ctx context.Context, cfg *config.Config, version string, log *logger.Logger) (*App, error) {
	var closers []func(ctx context.Context)
	shutdown := func(ctx context.Context) {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i](ctx)
		}
	}
	fail := func(err error) (*App, error) {
		shutdown(context.Background())
		return nil, err
	}

	otelShutdown, err := telemetry.Init(ctx, cfg.Telemetry, cfg.Global.Environment, version, log)
	if err != nil {
		log.Warn("telemetry disabled", "error", err)
		otelShutdown = func(context.Context) error { return nil }
	}
	closers = append(closers, func(ctx context.Context) {
		if err := otelShutdown(ctx); err != nil {
			log.Warn("telemetry shutdown failed", "error", err)
		}
	})

	db, err := database.NewDatabase(cfg.Database, log)
	if err != nil {
		return fail(fmt.Errorf("failed to initialize database: %w", err))
	}
	closers = append(closers, func(context.Context) {
		if err := db.Close(); err != nil {
			log.Error("error closing database", "error", err)
		}
	})

	broker, err := newBroker(ctx, cfg.Realtime, log)
	if err != nil {
		return fail(err)
	}
	closers = append(closers, func(context.Context) { _ = broker.Close() })

	assets, err := newAssetResolver(cfg.Storage)
	if err != nil {
		return fail(err)
	}

	store := recordstore.New(db.DB, broker, log)
	tables := database.NewTables(store)

	courseRepo := courses.NewRepository(tables.Courses, log.With("component", "courses"))
	synchronizer := enrollment.NewSynchronizer(tables.Enrollments, courseRepo, cfg.Store.OperationTimeout, log.With("component", "enrollment"))
	commentManager := comments.NewManager(tables.Comments, tables.Profiles, store, assets, comments.Options{
		AvatarBucket:       cfg.Storage.AvatarBucket,
		ProfileConcurrency: cfg.Store.ProfileConcurrency,
		Timeout:            cfg.Store.OperationTimeout,
	}, log.With("component", "comments"))
	auditService := audit.NewService(auditstore.NewRepository(db.DB), log.With("component", "audit"))

	// Authentication
	if cfg.Auth.JWTSecret == "" {
		secret, err := auth.GenerateSecret()
		if err != nil {
			return fail(fmt.Errorf("failed to generate token secret: %w", err))
		}
		cfg.Auth.JWTSecret = secret
		log.Warn("generated token secret (set AUTH_JWT_SECRET to keep tokens valid across restarts)")
	}

	authService := auth.NewService(db.DB, cfg.Auth, recordstore.NewAuthEvents(), log.With("component", "auth"))
	unsubscribe := authService.OnAuthStateChange(synchronizer.HandleAuthEvent)
	closers = append(closers, func(context.Context) { unsubscribe() })

	sqlDB, err := db.SQLDB()
	if err != nil {
		return fail(fmt.Errorf("failed to get SQL DB for sessions: %w", err))
	}
	sessionManager, err := auth.NewSessionManager(sqlDB, db.Driver, cfg.Auth)
	if err != nil {
		return fail(fmt.Errorf("failed to initialize session manager: %w", err))
	}
	authMiddleware := auth.NewMiddleware(authService, sessionManager)
	authController := auth.NewAuthController(authService, sessionManager, cfg.Auth, log.With("component", "auth"))

	var csrfSecret []byte
	if cfg.Auth.CSRFEnabled {
		csrfSecret, err = sessionSecret(cfg.Auth.SessionSecret)
		if err != nil {
			return fail(err)
		}
		if cfg.Auth.SessionSecret == "" {
			log.Warn("generated session secret (set AUTH_SESSION_SECRET to persist)")
		}
	}

	if cfg.Auth.AdminEmail != "" && cfg.Auth.AdminPassword != "" {
		created, err := authService.EnsureAdmin(ctx, cfg.Auth.AdminEmail, cfg.Auth.AdminName, cfg.Auth.AdminPassword)
		if err != nil {
			return fail(fmt.Errorf("failed to seed admin: %w", err))
		}
		if created {
			log.Info("admin account created", "email", cfg.Auth.AdminEmail)
		}
	} else if hasUsers, _ := authService.HasUsers(ctx); !hasUsers {
		log.Warn("no users found; run 'create-admin' to add an administrator")
	}

	// Background work
	var taskRunner http_controllers.TaskRunner
	var sweepEnqueuer scheduler.SweepEnqueuer = scheduler.InlineSweep{Sweeper: db, Log: log.With("component", "sweep")}
	if cfg.Tasks.Enabled {
		taskClient, err := tasks.NewClient(cfg.Database.Path, cfg.Tasks, log)
		if err != nil {
			return fail(fmt.Errorf("failed to initialize task queue: %w", err))
		}
		taskClient.Register(
			tasks.NewPurgeCourseQueue(tables, log),
			tasks.NewSweepOrphansQueue(db, log),
			tasks.NewCleanupAuditEventsQueue(auditService, log),
		)

		taskCtx, taskCancel := context.WithCancel(context.Background())
		go taskClient.Start(taskCtx)
		closers = append(closers, func(ctx context.Context) {
			taskClient.Stop(ctx)
			taskCancel()
			if err := taskClient.Close(); err != nil {
				log.Error("error closing task client", "error", err)
			}
		})

		taskRunner = taskClient
		sweepEnqueuer = taskClient
	}

	sweeps := scheduler.NewSweepScheduler(sweepEnqueuer, cfg.Sweep.Enabled, cfg.Sweep.Schedule, log)
	if err := sweeps.Start(context.Background()); err != nil {
		return fail(err)
	}
	closers = append(closers, func(context.Context) { sweeps.Stop() })

	router := http_controllers.NewRouter(http_controllers.RouterConfig{
		Courses:        courseRepo,
		Enrollment:     synchronizer,
		Comments:       commentManager,
		Database:       db,
		Tasks:          taskRunner,
		Audit:          auditService,
		AuthMiddleware: authMiddleware,
		AuthController: authController,
		SessionManager: sessionManager,
		AuthService:    authService,
		CSRFSecret:     csrfSecret,
		SecureCookies:  cfg.Auth.SecureCookies,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		TracingEnabled: cfg.Telemetry.Enabled,
		ServiceName:    telemetry.ServiceName(cfg.Telemetry),
		Version:        version,
		Log:            log,
	})

	return &App{Router: router, Shutdown: shutdown}, nil
}

func newBroker(ctx context.Context, cfg config.Realtime, log *logger.Logger) (recordstore.Broker, error) {
	switch cfg.Broker {
	case config.BrokerRedis:
		broker, err := recordstore.NewRedisBroker(ctx, log, recordstore.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			Channel:  cfg.RedisChannel,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		log.Info("realtime broker: redis", "addr", cfg.RedisAddr, "channel", cfg.RedisChannel)
		return broker, nil
	case config.BrokerMemory, "":
		return recordstore.NewMemoryBroker(log), nil
	default:
		return nil, fmt.Errorf("unsupported realtime broker %q", cfg.Broker)
	}
}

func newAssetResolver(cfg config.Storage) (recordstore.AssetResolver, error) {
	if cfg.CloudinaryURL != "" {
		resolver, err := recordstore.NewCloudinaryResolver(cfg.CloudinaryURL)
		if err != nil {
			return nil, fmt.Errorf("failed to configure cloudinary: %w", err)
		}
		return resolver, nil
	}
	return recordstore.BucketResolver{BaseURL: cfg.PublicBaseURL}, nil
}

// sessionSecret decodes a configured hex secret, uses it raw when it is not
// hex, or generates one when empty.
func sessionSecret(configured string) ([]byte, error) {
	if configured != "" {
		if secret, err := hex.DecodeString(configured); err == nil {
			return secret, nil
		}
		return []byte(configured), nil
	}
	generated, err := auth.GenerateSecret()
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSRF secret: %w", err)
	}
	return hex.DecodeString(generated)
}
