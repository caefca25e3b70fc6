package server

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"imgvault/internal/api"
	"imgvault/internal/store"
)

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req api.RegisterRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}

	user, err := s.auth.Register(r.Context(), req.Email, req.Username, req.Password, time.Now().UTC())
	if err != nil {
		switch {
		case errors.Is(err, errInvalidAccount):
			s.writeErrorReq(w, r, http.StatusBadRequest, badRequest(err))
		case errors.Is(err, store.ErrConflict):
			s.writeErrorReq(w, r, http.StatusConflict, conflictCode(fmt.Errorf("email already registered"), ErrCodeEmailTaken))
		default:
			s.writeStoreError(w, r, err)
		}
		return
	}

	s.log().Info("user registered", "user_id", user.ID)
	s.writeJSON(w, http.StatusOK, user.Model())
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req api.LoginRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}

	now := time.Now().UTC()
	limiterKey := loginAttemptKey(req.Email, r)
	if !s.loginLimiter.Allow(limiterKey, now) {
		s.writeErrorReq(w, r, http.StatusTooManyRequests, resourceExhausted(fmt.Errorf("too many login attempts; retry later")))
		return
	}

	result, err := s.auth.Login(r.Context(), req.Email, req.Password, now)
	if err != nil {
		switch {
		case errors.Is(err, errInvalidCredentials):
			s.loginLimiter.RegisterFailure(limiterKey, now)
			s.writeErrorReq(w, r, http.StatusUnauthorized, unauthorized(errInvalidCredentials))
		case errors.Is(err, errInvalidAccount):
			s.writeErrorReq(w, r, http.StatusBadRequest, badRequest(err))
		default:
			s.writeStoreError(w, r, err)
		}
		return
	}
	s.loginLimiter.Reset(limiterKey)

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    result.Token,
		Path:     "/",
		HttpOnly: true,
		Secure:   requestScheme(r) == "https",
		SameSite: http.SameSiteLaxMode,
		Expires:  result.ExpiresAt,
	})

	s.writeJSON(w, http.StatusOK, api.LoginResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		User:      result.User.Model(),
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	principal, _ := authPrincipalFromContext(r.Context())
	if err := s.auth.RevokeSessionToken(r.Context(), principal.Token, time.Now().UTC()); err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   requestScheme(r) == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0).UTC(),
	})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	principal, _ := authPrincipalFromContext(r.Context())
	s.writeJSON(w, http.StatusOK, principal.User.Model())
}

// handleDeleteMe removes the caller's images, albums and sessions, then the
// account. The account survives when any image could not be deleted.
func (s *Server) handleDeleteMe(w http.ResponseWriter, r *http.Request) {
	result, err := s.media.DeleteUser(r.Context(), ownerID(r))
	s.writeBulkResult(w, r, result, err, ErrCodeUserNotFound)
}

func loginAttemptKey(email string, r *http.Request) string {
	user := strings.ToLower(strings.TrimSpace(email))
	if user == "" {
		user = "<empty>"
	}
	ip := requestClientIP(r)
	if ip == "" {
		ip = "<unknown>"
	}
	return ip + "|" + user
}

func requestClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	remote := strings.TrimSpace(r.RemoteAddr)
	if remote == "" {
		return ""
	}
	host, _, err := net.SplitHostPort(remote)
	if err == nil {
		return strings.TrimSpace(host)
	}
	return remote
}
