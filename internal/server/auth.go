// auth.go - Shared password check for uploads.
package server

import (
	"crypto/hmac"
	"crypto/sha256"
	"net/http"
)

const passwordHeader = "X-Password"

// authorize reports whether supplied matches the configured password.
// Both sides are hashed first so the comparison does not leak the length.
func (s *Server) authorize(supplied string) bool {
	if supplied == "" {
		return false
	}
	got := sha256.Sum256([]byte(supplied))
	want := sha256.Sum256([]byte(s.cfg.password))
	return hmac.Equal(got[:], want[:])
}

// requirePassword rejects requests without a valid X-Password header
// before the body is read.
func (s *Server) requirePassword(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		supplied := r.Header.Get(passwordHeader)
		if !s.authorize(supplied) {
			s.debugf(r, "Unauthorized upload attempt from %s", clientIP(r))
			s.metrics.RecordAuthFailure()

			msg := "Unauthorized. Provide a password."
			if supplied != "" {
				msg = "Unauthorized. Provide a valid password."
			}
			writeJSON(w, http.StatusUnauthorized, errorResp{Error: msg})
			return
		}
		next.ServeHTTP(w, r)
	})
}
