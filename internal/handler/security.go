package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/seoulglow/kbeauty-store/internal/domain/auth"
)

// TokenVerifier turns a bearer token into a session.
type TokenVerifier interface {
	Verify(token string) (auth.Session, error)
}

type sessionKey struct{}

// SessionFromContext returns the session stored by Authenticate. Anonymous
// requests get the zero Session.
func SessionFromContext(ctx context.Context) auth.Session {
	s, _ := ctx.Value(sessionKey{}).(auth.Session)
	return s
}

// SecurityHandler authenticates requests carrying a bearer token.
type SecurityHandler struct {
	tokens TokenVerifier
}

// NewSecurityHandler creates a SecurityHandler.
func NewSecurityHandler(tokens TokenVerifier) *SecurityHandler {
	return &SecurityHandler{tokens: tokens}
}

// Authenticate verifies the Authorization header, if any, and stores the
// session in the request context. A present but invalid token is rejected
// with 401; a missing one leaves the request anonymous.
func (s *SecurityHandler) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, r, auth.ErrUnauthenticated)
			return
		}
		sess, err := s.tokens.Verify(token)
		if err != nil {
			writeError(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), sessionKey{}, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireSession rejects anonymous requests with 401.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if SessionFromContext(r.Context()).IsZero() {
			writeError(w, r, auth.ErrUnauthenticated)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects anonymous requests with 401 and non-administrators
// with 403.
func RequireAdmin(next http.Handler) http.Handler {
	return RequireSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := SessionFromContext(r.Context()).RequireAdmin(); err != nil {
			writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	}))
}
