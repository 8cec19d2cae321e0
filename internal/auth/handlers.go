package auth

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/catalog/internal/config"
	"github.com/mrlokans/catalog/internal/entities"
	"github.com/mrlokans/catalog/internal/logger"
	"github.com/mrlokans/catalog/internal/recordstore"
)

// TokenPath is the password-grant endpoint used by API clients. It is exempt
// from CSRF protection since it sets no cookie.
const TokenPath = "/api/auth/token"

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

// userResponse is the public view of a user.
type userResponse struct {
	ID       string            `json:"id"`
	Email    string            `json:"email"`
	FullName string            `json:"full_name"`
	Role     entities.UserRole `json:"role"`
}

func newUserResponse(u *entities.User) userResponse {
	return userResponse{ID: u.ID, Email: u.Email, FullName: u.FullName, Role: u.Role}
}

// AuthController handles authentication-related HTTP endpoints.
type AuthController struct {
	service        *Service
	sessionManager *SessionManager
	limiter        *LoginLimiter
	log            *logger.Logger
}

// NewAuthController creates a new authentication controller.
func NewAuthController(service *Service, sessionManager *SessionManager, cfg config.Auth, log *logger.Logger) *AuthController {
	return &AuthController{
		service:        service,
		sessionManager: sessionManager,
		limiter:        NewLoginLimiter(cfg),
		log:            log,
	}
}

// RegisterRoutes registers authentication routes on the router.
func (ac *AuthController) RegisterRoutes(router gin.IRouter) {
	group := router.Group("/api/auth")
	group.POST("/signup", ac.SignUp)
	group.POST("/login", ac.Login)
	group.POST("/logout", ac.Logout)
	group.GET("/session", ac.Session)
	group.POST("/token", ac.Token)
}

// SignUp creates a member account and signs it in.
func (ac *AuthController) SignUp(c *gin.Context) {
	var req signUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	user, err := ac.service.SignUp(c.Request.Context(), req.Email, req.FullName, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrUserExists):
			c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
		case errors.Is(err, ErrPasswordTooShort):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Password must be at least 12 characters"})
		case errors.Is(err, ErrPasswordTooLong):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Password exceeds maximum length of 72 characters"})
		case errors.Is(err, ErrEmailRequired), errors.Is(err, ErrPasswordRequired):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Email and password are required"})
		case errors.Is(err, ErrEmailInvalid):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email format"})
		default:
			ac.log.Error("sign-up failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		}
		return
	}

	if err := ac.startSession(c, user); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": newUserResponse(user)})
}

// Login checks credentials and starts a cookie session.
func (ac *AuthController) Login(c *gin.Context) {
	user, ok := ac.authenticate(c)
	if !ok {
		return
	}
	if err := ac.startSession(c, user); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": newUserResponse(user)})
}

// Token checks credentials and returns a bearer access token.
func (ac *AuthController) Token(c *gin.Context) {
	user, ok := ac.authenticate(c)
	if !ok {
		return
	}
	token, expiresAt, err := ac.service.IssueAccessToken(user)
	if err != nil {
		ac.log.Error("failed to issue access token", "user_id", user.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue token"})
		return
	}
	ac.service.notify(recordstore.SignedIn, user.ID)
	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"token_type":   "Bearer",
		"expires_in":   int(time.Until(expiresAt).Seconds()),
		"user":         newUserResponse(user),
	})
}

// authenticate applies rate limiting and checks the posted credentials. It
// writes the error response itself.
func (ac *AuthController) authenticate(c *gin.Context) (*entities.User, bool) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return nil, false
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	clientIP := c.ClientIP()

	if retryAfter, ok := ac.limiter.Check(clientIP, email); !ok {
		ac.tooManyAttempts(c, email, retryAfter)
		return nil, false
	}

	user, err := ac.service.Authenticate(c.Request.Context(), email, req.Password)
	if err != nil {
		if lockout := ac.limiter.Fail(clientIP, email); lockout > 0 {
			ac.log.Warn("login locked out", "email", email, "ip", clientIP, "lockout", lockout)
		}

		errorMsg := "Invalid email or password"
		if errors.Is(err, ErrAccountLocked) {
			errorMsg = "Account is locked. Please try again later."
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": errorMsg})
		return nil, false
	}

	ac.limiter.Reset(clientIP, email)
	return user, true
}

func (ac *AuthController) tooManyAttempts(c *gin.Context, email string, retryAfter time.Duration) {
	seconds := retryAfterSeconds(retryAfter)
	ac.log.Info("login rejected during lockout", "email", email, "retry_after_seconds", seconds)
	c.Header("Retry-After", strconv.Itoa(seconds))
	c.JSON(http.StatusTooManyRequests, gin.H{
		"error":               "Too many login attempts. Please try again later.",
		"retry_after_seconds": seconds,
	})
}

func (ac *AuthController) startSession(c *gin.Context, user *entities.User) error {
	if ac.sessionManager != nil {
		if err := ac.sessionManager.CreateSession(c.Request, user); err != nil {
			ac.log.Error("failed to create session", "user_id", user.ID, "error", err)
			return err
		}
	}
	ac.service.notify(recordstore.SignedIn, user.ID)
	return nil
}

// Logout destroys the session.
func (ac *AuthController) Logout(c *gin.Context) {
	userID := GetUserID(c)
	if ac.sessionManager != nil {
		_ = ac.sessionManager.DestroySession(c.Request)
	}
	if userID != "" {
		ac.service.notify(recordstore.SignedOut, userID)
	}
	c.JSON(http.StatusOK, gin.H{"message": "Signed out"})
}

// Session reports the current identity. Anonymous callers get a null user.
func (ac *AuthController) Session(c *gin.Context) {
	userID := GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusOK, gin.H{"user": nil, "csrf_token": GetCSRFToken(c)})
		return
	}
	user, err := ac.service.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"user": nil, "csrf_token": GetCSRFToken(c)})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user":       newUserResponse(user),
		"auth_type":  GetAuthType(c),
		"csrf_token": GetCSRFToken(c),
	})
}
