package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

const (
	bearerPrefix    = "Bearer "
	errInvalidToken = "Invalid or missing bearer token"
)

// bearerAuth rejects requests whose Authorization header does not carry the
// configured token. A missing or malformed header yields 401, a wrong token
// 403. With no token configured every request passes.
func (s *Server) bearerAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(s.token) == 0 {
			next.ServeHTTP(w, r)
			return
		}

		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix)
		if !ok || token == "" {
			authRejections.WithLabelValues(authMissing).Inc()
			s.writeError(w, http.StatusUnauthorized, errInvalidToken)
			return
		}

		if subtle.ConstantTimeCompare([]byte(token), s.token) != 1 {
			authRejections.WithLabelValues(authInvalid).Inc()
			s.logger.Warn("rejected bearer token", "path", r.URL.Path, "remote", r.RemoteAddr)
			s.writeError(w, http.StatusForbidden, errInvalidToken)
			return
		}

		next.ServeHTTP(w, r)
	})
}
