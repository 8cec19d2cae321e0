package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type DatabaseDriver string

const (
	DatabaseDriverSQLite   DatabaseDriver = "sqlite"
	DatabaseDriverPostgres DatabaseDriver = "postgres"
)

type BrokerKind string

const (
	BrokerMemory BrokerKind = "memory"
	BrokerRedis  BrokerKind = "redis"
)

type (
	Config struct {
		HTTP
		Global
		Log
		Database
		Auth
		Store
		Realtime
		Storage
		Tasks
		Sweep
		CORS
		Telemetry
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
		Environment              string
	}
	Log struct {
		Mode string // "dev" or "prod"
	}
	Database struct {
		Driver DatabaseDriver
		Path   string // sqlite file
		DSN    string // postgres connection string
	}
	Auth struct {
		SessionSecret   string
		SessionLifetime time.Duration
		JWTSecret       string
		AccessTokenTTL  time.Duration
		BcryptCost      int
		SecureCookies   bool // Set to false for local dev without HTTPS
		CSRFEnabled     bool

		// Rate limiting configuration
		MaxLoginAttempts int           // Max failed attempts before lockout (default: 5)
		RateLimitWindow  time.Duration // Time window for counting attempts (default: 15m)
		LockoutDuration  time.Duration // How long to lock out (default: 30m)

		// Seeded on startup when both are set
		AdminEmail    string
		AdminPassword string
		AdminName     string
	}
	Store struct {
		OperationTimeout   time.Duration // Upper bound for each toggle/post store call
		ProfileConcurrency int           // Parallel profile lookups per thread fetch
	}
	Realtime struct {
		Broker        BrokerKind
		RedisAddr     string
		RedisPassword string
		RedisChannel  string
	}
	Storage struct {
		PublicBaseURL string
		AvatarBucket  string
		CloudinaryURL string // When set, assets resolve through Cloudinary
	}
	Tasks struct {
		Enabled         bool
		Workers         int
		ReleaseAfter    time.Duration // Stuck tasks return to the queue after this
		CleanupInterval time.Duration // How often finished tasks are pruned
	}
	Sweep struct {
		Enabled  bool
		Schedule string // Cron format: "30 3 * * *" = daily at 03:30
	}
	CORS struct {
		AllowedOrigins []string
	}
	Telemetry struct {
		Enabled     bool
		ServiceName string
		Endpoint    string
		Insecure    bool
		SampleRatio float64
	}
)

// NewConfig reads configuration from the environment, after loading an
// optional .env file.
func NewConfig() *Config {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8188)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 5)
	v.SetDefault("environment", "development")
	v.SetDefault("log_mode", "dev")

	v.SetDefault("database_driver", string(DatabaseDriverSQLite))
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("database_dsn", "")

	// Auth defaults
	v.SetDefault("auth_session_secret", "")       // Auto-generated if empty
	v.SetDefault("auth_session_lifetime", "24h")  // 24 hours
	v.SetDefault("auth_jwt_secret", "")           // Auto-generated if empty
	v.SetDefault("auth_access_token_ttl", "1h")   // Bearer token lifetime
	v.SetDefault("auth_bcrypt_cost", 12)          // bcrypt cost factor
	v.SetDefault("auth_secure_cookies", true)     // HTTPS-only cookies
	v.SetDefault("auth_csrf_enabled", true)       // CSRF for cookie sessions
	v.SetDefault("auth_max_login_attempts", 5)    // Max failed attempts
	v.SetDefault("auth_rate_limit_window", "15m") // Window for counting attempts
	v.SetDefault("auth_lockout_duration", "30m")  // Lockout duration
	v.SetDefault("auth_admin_name", "Administrator")

	v.SetDefault("store_operation_timeout", "10s")
	v.SetDefault("store_profile_concurrency", 8)

	v.SetDefault("realtime_broker", string(BrokerMemory))
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_channel", "catalog:changes")

	v.SetDefault("storage_public_base_url", "http://localhost:8188/storage")
	v.SetDefault("storage_avatar_bucket", DefaultAvatarBucket)

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")

	v.SetDefault("sweep_enabled", true)
	v.SetDefault("sweep_schedule", "30 3 * * *") // Daily at 03:30

	v.SetDefault("cors_allowed_origins", "http://localhost:3000,http://127.0.0.1:3000")

	v.SetDefault("otel_enabled", false)
	v.SetDefault("otel_service_name", "course-catalog")
	v.SetDefault("otel_exporter_otlp_endpoint", "")
	v.SetDefault("otel_exporter_otlp_insecure", false)
	v.SetDefault("otel_sampler_ratio", 0.1)

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
			Environment:              v.GetString("ENVIRONMENT"),
		},
		Log: Log{
			Mode: v.GetString("LOG_MODE"),
		},
		Database: Database{
			Driver: DatabaseDriver(strings.ToLower(v.GetString("DATABASE_DRIVER"))),
			Path:   v.GetString("DATABASE_PATH"),
			DSN:    v.GetString("DATABASE_DSN"),
		},
		Auth: Auth{
			SessionSecret:    v.GetString("AUTH_SESSION_SECRET"),
			SessionLifetime:  v.GetDuration("AUTH_SESSION_LIFETIME"),
			JWTSecret:        v.GetString("AUTH_JWT_SECRET"),
			AccessTokenTTL:   v.GetDuration("AUTH_ACCESS_TOKEN_TTL"),
			BcryptCost:       v.GetInt("AUTH_BCRYPT_COST"),
			SecureCookies:    v.GetBool("AUTH_SECURE_COOKIES"),
			CSRFEnabled:      v.GetBool("AUTH_CSRF_ENABLED"),
			MaxLoginAttempts: v.GetInt("AUTH_MAX_LOGIN_ATTEMPTS"),
			RateLimitWindow:  v.GetDuration("AUTH_RATE_LIMIT_WINDOW"),
			LockoutDuration:  v.GetDuration("AUTH_LOCKOUT_DURATION"),
			AdminEmail:       v.GetString("AUTH_ADMIN_EMAIL"),
			AdminPassword:    v.GetString("AUTH_ADMIN_PASSWORD"),
			AdminName:        v.GetString("AUTH_ADMIN_NAME"),
		},
		Store: Store{
			OperationTimeout:   v.GetDuration("STORE_OPERATION_TIMEOUT"),
			ProfileConcurrency: v.GetInt("STORE_PROFILE_CONCURRENCY"),
		},
		Realtime: Realtime{
			Broker:        BrokerKind(strings.ToLower(v.GetString("REALTIME_BROKER"))),
			RedisAddr:     v.GetString("REDIS_ADDR"),
			RedisPassword: v.GetString("REDIS_PASSWORD"),
			RedisChannel:  v.GetString("REDIS_CHANNEL"),
		},
		Storage: Storage{
			PublicBaseURL: v.GetString("STORAGE_PUBLIC_BASE_URL"),
			AvatarBucket:  v.GetString("STORAGE_AVATAR_BUCKET"),
			CloudinaryURL: v.GetString("CLOUDINARY_URL"),
		},
		Tasks: Tasks{
			Enabled:         v.GetBool("TASKS_ENABLED"),
			Workers:         v.GetInt("TASK_WORKERS"),
			ReleaseAfter:    v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval: v.GetDuration("TASK_CLEANUP_INTERVAL"),
		},
		Sweep: Sweep{
			Enabled:  v.GetBool("SWEEP_ENABLED"),
			Schedule: v.GetString("SWEEP_SCHEDULE"),
		},
		CORS: CORS{
			AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
		Telemetry: Telemetry{
			Enabled:     v.GetBool("OTEL_ENABLED"),
			ServiceName: v.GetString("OTEL_SERVICE_NAME"),
			Endpoint:    v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
			Insecure:    v.GetBool("OTEL_EXPORTER_OTLP_INSECURE"),
			SampleRatio: v.GetFloat64("OTEL_SAMPLER_RATIO"),
		},
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
