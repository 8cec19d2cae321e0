package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikestefanello/backlite"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mrlokans/catalog/internal/audit"
	"github.com/mrlokans/catalog/internal/auth"
	"github.com/mrlokans/catalog/internal/comments"
	"github.com/mrlokans/catalog/internal/config"
	"github.com/mrlokans/catalog/internal/courses"
	"github.com/mrlokans/catalog/internal/database"
	auditstore "github.com/mrlokans/catalog/internal/database/audit"
	"github.com/mrlokans/catalog/internal/enrollment"
	"github.com/mrlokans/catalog/internal/entities"
	"github.com/mrlokans/catalog/internal/logger"
	"github.com/mrlokans/catalog/internal/recordstore"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// recordingTasks is a TaskRunner that remembers what was enqueued.
type recordingTasks struct {
	mu       sync.Mutex
	purged   []string
	sweeps   int
	cleanups []int
}

func (r *recordingTasks) EnqueuePurge(_ context.Context, courseID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.purged = append(r.purged, courseID)
	return nil
}

func (r *recordingTasks) EnqueueSweep(context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweeps++
	return "task-1", nil
}

func (r *recordingTasks) EnqueueAuditCleanup(_ context.Context, retentionDays int) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cleanups = append(r.cleanups, retentionDays)
	return "task-2", nil
}

func (r *recordingTasks) Status(context.Context, string) (backlite.TaskStatus, error) {
	return backlite.TaskStatusPending, nil
}

func (r *recordingTasks) purges() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.purged...)
}

// testEnv is the full HTTP stack on an in-memory database. Callers
// authenticate with bearer tokens.
type testEnv struct {
	router *gin.Engine
	tables *database.Tables
	tasks  *recordingTasks
	audit  *audit.Service
	admin  *entities.User
	member *entities.User
	other  *entities.User
	tokens map[string]string
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.NewDatabase(config.Database{Driver: config.DatabaseDriverSQLite, Path: ":memory:"}, logger.Nop())
	require.NoError(t, err)
	broker := recordstore.NewMemoryBroker(logger.Nop())
	t.Cleanup(func() {
		broker.Close()
		db.Close()
	})

	client := recordstore.New(db.DB, broker, logger.Nop())
	tables := database.NewTables(client)
	repo := courses.NewRepository(tables.Courses, logger.Nop())
	synchronizer := enrollment.NewSynchronizer(tables.Enrollments, repo, 5*time.Second, logger.Nop())
	manager := comments.NewManager(tables.Comments, tables.Profiles, client,
		recordstore.BucketResolver{BaseURL: "https://cdn.example.com/storage"},
		comments.Options{AvatarBucket: "avatars", ProfileConcurrency: 4, Timeout: 5 * time.Second},
		logger.Nop())

	authCfg := config.Auth{
		JWTSecret:      "test-jwt-secret",
		AccessTokenTTL: time.Hour,
		BcryptCost:     bcrypt.MinCost,
	}
	events := recordstore.NewAuthEvents()
	events.OnChange(synchronizer.HandleAuthEvent)
	authService := auth.NewService(db.DB, authCfg, events, logger.Nop())

	env := &testEnv{
		tables: tables,
		tasks:  &recordingTasks{},
		audit:  audit.NewService(auditstore.NewRepository(db.DB), logger.Nop()),
		tokens: make(map[string]string),
	}
	env.admin = env.createUser(t, authService, "admin@example.com", "Admin", entities.UserRoleAdmin)
	env.member = env.createUser(t, authService, "ada@example.com", "Ada Lovelace", entities.UserRoleMember)
	env.other = env.createUser(t, authService, "bob@example.com", "Bob", entities.UserRoleMember)

	env.router = NewRouter(RouterConfig{
		Courses:        repo,
		Enrollment:     synchronizer,
		Comments:       manager,
		Database:       db,
		Tasks:          env.tasks,
		Audit:          env.audit,
		AuthService:    authService,
		AuthMiddleware: auth.NewMiddleware(authService, nil),
		Version:        "test",
		Log:            logger.Nop(),
	})
	return env
}

func (e *testEnv) createUser(t *testing.T, svc *auth.Service, email, name string, role entities.UserRole) *entities.User {
	t.Helper()
	user, err := svc.CreateUser(context.Background(), email, name, "correct-horse-battery", role)
	require.NoError(t, err)
	token, _, err := svc.IssueAccessToken(user)
	require.NoError(t, err)
	e.tokens[user.ID] = token
	return user
}

// do sends a JSON request as user; a nil user is anonymous.
func (e *testEnv) do(t *testing.T, method, path string, body any, user *entities.User) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != nil {
		req.Header.Set("Authorization", "Bearer "+e.tokens[user.ID])
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// createCourse adds a course through the API as admin.
func (e *testEnv) createCourse(t *testing.T, body map[string]any) entities.Course {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/courses", body, e.admin)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Course entities.Course `json:"course"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Course
}

func courseBody(title string) map[string]any {
	return map[string]any{
		"title":       title,
		"instructor":  "Grace Hopper",
		"description": "Learn " + title,
		"price":       10,
		"category":    "Programming",
	}
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}
