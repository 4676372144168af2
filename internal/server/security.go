// security.go - Response headers applied to every route
package server

import "net/http"

// securityHeadersMiddleware adds security headers to all responses
func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Prevent MIME sniffing of uploaded files
		w.Header().Set("X-Content-Type-Options", "nosniff")

		// Referrer Policy - don't leak file URLs
		w.Header().Set("Referrer-Policy", "no-referrer")

		// Prevent clickjacking of the HTML pages
		w.Header().Set("X-Frame-Options", "SAMEORIGIN")

		w.Header().Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")

		next.ServeHTTP(w, r)
	})
}
