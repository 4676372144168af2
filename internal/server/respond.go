package server

import (
	"encoding/json"
	"net/http"
	"strings"
)

// errorResp is the JSON body of every failed upload. ShareX shows the
// error field to the user ({json:error} in the sxcu file).
type errorResp struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// requestScheme is the scheme returned URLs are built with.
func (s *Server) requestScheme(r *http.Request) string {
	if s.cfg.ForceHTTPS {
		return "https"
	}
	if s.cfg.TrustProxy {
		if proto := firstHeaderValue(r, "X-Forwarded-Proto"); proto == "http" || proto == "https" {
			return proto
		}
	}
	if r.TLS != nil {
		return "https"
	}
	return "http"
}

// requestHost is the host returned URLs are built with.
func (s *Server) requestHost(r *http.Request) string {
	if s.cfg.TrustProxy {
		if host := firstHeaderValue(r, "X-Forwarded-Host"); host != "" {
			return host
		}
	}
	return r.Host
}

// publicURL is where name can be fetched by whoever sent r.
func (s *Server) publicURL(r *http.Request, name string) string {
	return s.requestScheme(r) + "://" + s.requestHost(r) + s.cfg.BaseURL + name
}

// firstHeaderValue returns the first entry of a comma separated header,
// as appended by each proxy in a chain.
func firstHeaderValue(r *http.Request, key string) string {
	v, _, _ := strings.Cut(r.Header.Get(key), ",")
	return strings.ToLower(strings.TrimSpace(v))
}
