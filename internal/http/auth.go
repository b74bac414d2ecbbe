package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"budgetbuddy/internal/core"
)

type userContextKey struct{}

// Authenticator validates HS256 bearer tokens and resolves the caller.
// The user identity always comes from the token subject, request bodies
// never decide who owns the data.
type Authenticator struct {
	secret []byte
}

func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

// Middleware rejects requests without a valid bearer token and stores the
// authenticated user in the request context.
func (a *Authenticator) Middleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "Missing bearer token")
			return
		}

		user, err := a.Verify(token)
		if err != nil {
			slog.WarnContext(r.Context(), "Rejected token", "error", err, "url", r.URL.Path)
			writeError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		next(w, r.WithContext(WithUser(r.Context(), user)))
	}
}

// Verify parses and validates the token, returning the caller identity.
func (a *Authenticator) Verify(tokenString string) (core.AuthenticatedUser, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return core.AuthenticatedUser{}, fmt.Errorf("parse token: %w", err)
	}
	if claims.Subject == "" {
		return core.AuthenticatedUser{}, fmt.Errorf("token has no subject")
	}
	return core.AuthenticatedUser{ID: claims.Subject}, nil
}

// WithUser stores the authenticated user in the context.
func WithUser(ctx context.Context, user core.AuthenticatedUser) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// UserFromContext returns the authenticated user set by the middleware.
func UserFromContext(ctx context.Context) (core.AuthenticatedUser, bool) {
	user, ok := ctx.Value(userContextKey{}).(core.AuthenticatedUser)
	return user, ok
}
