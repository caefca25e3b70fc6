package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"imgvault/internal/store"
)

type authContextKey struct{}

type authPrincipal struct {
	AuthType string
	Token    string
	User     *store.AuthUser
}

func contextWithAuthPrincipal(ctx context.Context, principal authPrincipal) context.Context {
	return context.WithValue(ctx, authContextKey{}, principal)
}

func authPrincipalFromContext(ctx context.Context) (authPrincipal, bool) {
	if ctx == nil {
		return authPrincipal{}, false
	}
	principal, ok := ctx.Value(authContextKey{}).(authPrincipal)
	if !ok || principal.User == nil {
		return authPrincipal{}, false
	}
	return principal, true
}

// requireAuth resolves the session token and rejects anonymous requests.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, authType := sessionTokenFromRequest(r)
		if token == "" {
			s.writeErrorReq(w, r, http.StatusUnauthorized, unauthorized(fmt.Errorf("authentication required")))
			return
		}
		user, err := s.auth.AuthenticateSessionToken(r.Context(), token, time.Now().UTC())
		if err != nil {
			s.writeStoreError(w, r, err)
			return
		}
		if user == nil {
			s.writeErrorReq(w, r, http.StatusUnauthorized, unauthorized(fmt.Errorf("invalid or expired session")))
			return
		}
		ctx := contextWithAuthPrincipal(r.Context(), authPrincipal{AuthType: authType, Token: token, User: user})
		next(w, r.WithContext(ctx))
	}
}

// ownerID returns the authenticated user's id. Handlers behind requireAuth
// always have one.
func ownerID(r *http.Request) string {
	principal, ok := authPrincipalFromContext(r.Context())
	if !ok {
		return ""
	}
	return principal.User.ID
}

func sessionTokenFromRequest(r *http.Request) (string, string) {
	if r == nil {
		return "", ""
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) > len("Bearer ") && strings.EqualFold(header[:len("Bearer ")], "Bearer ") {
		return strings.TrimSpace(header[len("Bearer "):]), authTypeBearer
	}
	if cookie, err := r.Cookie(sessionCookieName); err == nil && strings.TrimSpace(cookie.Value) != "" {
		return strings.TrimSpace(cookie.Value), authTypeSession
	}
	return "", ""
}

func requestScheme(r *http.Request) string {
	if r == nil {
		return "http"
	}
	if r.TLS != nil {
		return "https"
	}
	if proto := strings.ToLower(strings.TrimSpace(r.Header.Get("X-Forwarded-Proto"))); proto == "https" {
		return "https"
	}
	return "http"
}
