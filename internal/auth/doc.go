// Package auth identifies callers of the catalog API.
//
// Browsers sign in with a cookie session (alexedwards/scs) and API clients
// exchange credentials for a short-lived HS256 bearer token (golang-jwt).
// Either way the middleware loads the user and attaches the matching
// recordstore.Session to the request context, so table policies see who is
// asking. Anonymous requests are not rejected here; RequireAuth and
// RequireRole guard routes that need a user.
//
// # Configuration
//
//	AUTH_SESSION_SECRET=<hex-32-bytes>  # CSRF key, auto-generated if empty
//	AUTH_JWT_SECRET=<hex-32-bytes>      # Token signing key, auto-generated if empty
//	AUTH_SESSION_LIFETIME=24h           # Session duration
//	AUTH_ACCESS_TOKEN_TTL=1h            # Bearer token lifetime
//	AUTH_BCRYPT_COST=12                 # bcrypt cost factor
//	AUTH_SECURE_COOKIES=true            # HTTPS-only cookies
//	AUTH_ADMIN_EMAIL / AUTH_ADMIN_PASSWORD  # Seed an admin on startup
//
// # Usage
//
//	authService := auth.NewService(db.DB, cfg.Auth, events, log)
//	sessions, _ := auth.NewSessionManager(sqlDB, cfg.Database.Driver, cfg.Auth)
//	router.Use(sessions.SessionLoadSave())
//	router.Use(auth.NewMiddleware(authService, sessions).Handler())
//
// Sign-in and sign-out are emitted as recordstore.AuthEvent values; the
// enrollment synchronizer listens to refresh wishlist counts.
package auth
