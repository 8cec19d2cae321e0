package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/catalog/internal/entities"
	"github.com/mrlokans/catalog/internal/recordstore"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// newIdentityRouter echoes the store session the middleware attached.
func newIdentityRouter(m *Middleware, extra ...gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(m.Handler())
	handlers := append(extra, func(c *gin.Context) {
		s := recordstore.SessionFromContext(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"user_id": s.UserID, "role": string(s.Role), "auth_type": GetAuthType(c)})
	})
	router.GET("/api/whoami", handlers...)
	return router
}

func createTestUser(t *testing.T, svc *Service, email string, role entities.UserRole) *entities.User {
	t.Helper()
	user, err := svc.CreateUser(context.Background(), email, "Test", testPassword, role)
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	return user
}

func TestMiddleware_AnonymousPassesThrough(t *testing.T) {
	svc, _ := setupService(t)
	router := newIdentityRouter(NewMiddleware(svc, nil))

	req := httptest.NewRequest(http.MethodGet, "/api/whoami", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if want := `{"auth_type":"none","role":"","user_id":""}`; rr.Body.String() != want {
		t.Errorf("body = %s, want %s", rr.Body.String(), want)
	}
}

func TestMiddleware_BearerAuth(t *testing.T) {
	svc, _ := setupService(t)
	user := createTestUser(t, svc, "admin@example.com", entities.UserRoleAdmin)
	token, _, err := svc.IssueAccessToken(user)
	if err != nil {
		t.Fatalf("IssueAccessToken() error = %v", err)
	}
	router := newIdentityRouter(NewMiddleware(svc, nil))

	tests := []struct {
		name       string
		header     string
		wantUserID string
	}{
		{"valid token", "Bearer " + token, user.ID},
		{"lowercase scheme", "bearer " + token, user.ID},
		{"invalid token", "Bearer garbage", ""},
		{"basic auth", "Basic dXNlcjpwYXNz", ""},
		{"missing token", "Bearer ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/whoami", nil)
			req.Header.Set("Authorization", tt.header)
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			if rr.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", rr.Code)
			}
			want := `"user_id":"` + tt.wantUserID + `"`
			if !strings.Contains(rr.Body.String(), want) {
				t.Errorf("body = %s, want it to contain %s", rr.Body.String(), want)
			}
		})
	}
}

func TestMiddleware_RequireAuth(t *testing.T) {
	svc, _ := setupService(t)
	m := NewMiddleware(svc, nil)
	router := newIdentityRouter(m, m.RequireAuth())

	req := httptest.NewRequest(http.MethodGet, "/api/whoami", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"code":"auth_required"`) {
		t.Errorf("expected auth_required code, got %s", rr.Body.String())
	}
}

func TestMiddleware_RequireRole(t *testing.T) {
	svc, _ := setupService(t)
	member := createTestUser(t, svc, "member@example.com", entities.UserRoleMember)
	admin := createTestUser(t, svc, "admin@example.com", entities.UserRoleAdmin)
	m := NewMiddleware(svc, nil)
	router := newIdentityRouter(m, m.RequireRole(entities.UserRoleAdmin))

	tests := []struct {
		name string
		user *entities.User
		want int
	}{
		{"anonymous", nil, http.StatusUnauthorized},
		{"member", member, http.StatusForbidden},
		{"admin", admin, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/whoami", nil)
			if tt.user != nil {
				token, _, _ := svc.IssueAccessToken(tt.user)
				req.Header.Set("Authorization", "Bearer "+token)
			}
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)
			if rr.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, rr.Code)
			}
		})
	}
}

func TestContextHelpers_Anonymous(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	if GetUserID(c) != "" {
		t.Error("expected empty user id")
	}
	if GetUserRole(c) != "" {
		t.Error("expected empty role")
	}
	if GetAuthType(c) != AuthTypeNone {
		t.Error("expected AuthTypeNone")
	}
	if IsAuthenticated(c) {
		t.Error("anonymous context should not be authenticated")
	}
}
