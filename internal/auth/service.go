package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/catalog/internal/config"
	"github.com/mrlokans/catalog/internal/entities"
	"github.com/mrlokans/catalog/internal/logger"
	"github.com/mrlokans/catalog/internal/recordstore"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrUserExists       = errors.New("user already exists")
	ErrInvalidToken     = errors.New("invalid token")
	ErrTokenExpired     = errors.New("token expired")
	ErrInvalidRole      = errors.New("invalid role")
	ErrEmailRequired    = errors.New("email is required")
	ErrPasswordRequired = errors.New("password is required")
	ErrAccountLocked    = errors.New("account is locked due to too many failed login attempts")
	ErrEmailInvalid     = errors.New("invalid email format")
)

// Service handles authentication and user management.
type Service struct {
	db        *gorm.DB
	config    config.Auth
	jwtSecret []byte
	events    *recordstore.AuthEvents
	log       *logger.Logger
	now       func() time.Time
}

// NewService creates a new authentication service. Sign-in and sign-out are
// announced on events.
func NewService(db *gorm.DB, cfg config.Auth, events *recordstore.AuthEvents, log *logger.Logger) *Service {
	if events == nil {
		events = recordstore.NewAuthEvents()
	}
	return &Service{
		db:        db,
		config:    cfg,
		jwtSecret: []byte(cfg.JWTSecret),
		events:    events,
		log:       log,
		now:       time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateUser creates a user and its public profile.
func (s *Service) CreateUser(ctx context.Context, email, fullName, password string, role entities.UserRole) (*entities.User, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, ErrEmailRequired
	}
	if password == "" {
		return nil, ErrPasswordRequired
	}
	// RFC 5321 limit is 254
	if len(email) > 254 || !emailPattern.MatchString(email) {
		return nil, ErrEmailInvalid
	}
	switch role {
	case entities.UserRoleAdmin, entities.UserRoleMember:
	default:
		return nil, ErrInvalidRole
	}

	passwordHash, err := HashPassword(password, s.config.BcryptCost)
	if err != nil {
		return nil, err
	}

	user := &entities.User{
		Email:        email,
		FullName:     strings.TrimSpace(fullName),
		PasswordHash: passwordHash,
		Role:         role,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&entities.User{}).Where("email = ?", email).Count(&existing).Error; err != nil {
			return fmt.Errorf("failed to check existing user: %w", err)
		}
		if existing > 0 {
			return ErrUserExists
		}
		if err := tx.Create(user).Error; err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		profile := &entities.Profile{ID: user.ID, Email: user.Email, FullName: user.FullName}
		if err := tx.Create(profile).Error; err != nil {
			return fmt.Errorf("failed to create profile: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("user created", "user_id", user.ID, "role", user.Role)
	return user, nil
}

// SignUp registers a member account.
func (s *Service) SignUp(ctx context.Context, email, fullName, password string) (*entities.User, error) {
	return s.CreateUser(ctx, email, fullName, password, entities.UserRoleMember)
}

// EnsureAdmin creates the admin account unless a user with that email
// exists. It reports whether a user was created.
func (s *Service) EnsureAdmin(ctx context.Context, email, fullName, password string) (bool, error) {
	_, err := s.CreateUser(ctx, email, fullName, password, entities.UserRoleAdmin)
	if errors.Is(err, ErrUserExists) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Authenticate validates credentials and returns the user.
// Implements account lockout after too many failed attempts.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*entities.User, error) {
	var user entities.User
	err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if user.LockedUntil != nil && s.now().Before(*user.LockedUntil) {
		return nil, ErrAccountLocked
	}

	if err := CheckPassword(password, user.PasswordHash); err != nil {
		s.recordFailedLogin(ctx, &user)
		return nil, err
	}

	now := s.now()
	s.db.WithContext(ctx).Model(&user).Updates(map[string]any{
		"last_login_at":      now,
		"failed_login_count": 0,
		"locked_until":       nil,
	})
	user.LastLoginAt = &now

	return &user, nil
}

// recordFailedLogin increments the failed login counter and locks the account if threshold reached.
func (s *Service) recordFailedLogin(ctx context.Context, user *entities.User) {
	user.FailedLoginCount++

	updates := map[string]any{
		"failed_login_count": user.FailedLoginCount,
	}

	maxAttempts := s.config.MaxLoginAttempts
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	if user.FailedLoginCount >= maxAttempts {
		lockoutDuration := s.config.LockoutDuration
		if lockoutDuration == 0 {
			lockoutDuration = 30 * time.Minute
		}
		updates["locked_until"] = s.now().Add(lockoutDuration)
		s.log.Warn("account locked", "user_id", user.ID)
	}

	s.db.WithContext(ctx).Model(user).Updates(updates)
}

// GetUserByID retrieves a user by their ID.
func (s *Service) GetUserByID(ctx context.Context, id string) (*entities.User, error) {
	var user entities.User
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// HasUsers returns true if any users exist in the database.
func (s *Service) HasUsers(ctx context.Context) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&entities.User{}).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// OnAuthStateChange registers fn for sign-in and sign-out events.
func (s *Service) OnAuthStateChange(fn func(recordstore.AuthEvent)) (unsubscribe func()) {
	return s.events.OnChange(fn)
}

func (s *Service) notify(kind recordstore.AuthEventKind, userID string) {
	s.events.Emit(recordstore.AuthEvent{Kind: kind, UserID: userID, At: s.now()})
}

// StoreSession maps a user to the identity store operations run as.
func StoreSession(user *entities.User) recordstore.Session {
	if user == nil {
		return recordstore.Session{}
	}
	role := recordstore.RoleMember
	if user.IsAdmin() {
		role = recordstore.RoleAdmin
	}
	return recordstore.Session{UserID: user.ID, Email: user.Email, Role: role}
}
