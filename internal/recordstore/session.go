package recordstore

import "context"

type Role string

const (
	RoleAnonymous Role = ""
	RoleMember    Role = "member"
	RoleAdmin     Role = "admin"
	// RoleService bypasses all policies. Only background jobs use it.
	RoleService Role = "service"
)

// Session is the identity a store operation runs as.
type Session struct {
	UserID string
	Email  string
	Role   Role
}

func (s Session) Authenticated() bool {
	return s.UserID != ""
}

func (s Session) IsAdmin() bool {
	return s.Role == RoleAdmin
}

func (s Session) IsService() bool {
	return s.Role == RoleService
}

type sessionKey struct{}

// WithSession returns a context carrying s.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFromContext returns the session in ctx, or the anonymous session.
func SessionFromContext(ctx context.Context) Session {
	if s, ok := ctx.Value(sessionKey{}).(Session); ok {
		return s
	}
	return Session{}
}

// CurrentUserID returns the current user id and whether there is one.
func CurrentUserID(ctx context.Context) (string, bool) {
	s := SessionFromContext(ctx)
	return s.UserID, s.Authenticated()
}

// ServiceContext returns a context that runs store operations with the
// service role.
func ServiceContext(ctx context.Context) context.Context {
	return WithSession(ctx, Session{Role: RoleService})
}
