package server

import (
	"encoding/json"
	"net/http"
)

const sxcuFilename = "sharex-server.sxcu"

// sxcuConfig is a ShareX custom uploader definition. Field order is the
// order ShareX itself writes.
type sxcuConfig struct {
	Version         string            `json:"Version"`
	Name            string            `json:"Name"`
	DestinationType string            `json:"DestinationType"`
	RequestMethod   string            `json:"RequestMethod"`
	RequestURL      string            `json:"RequestURL"`
	Body            string            `json:"Body"`
	Headers         map[string]string `json:"Headers"`
	FileFormName    string            `json:"FileFormName"`
	URL             string            `json:"URL"`
	ErrorMessage    string            `json:"ErrorMessage"`
}

func (s *Server) sxcuFor(r *http.Request) sxcuConfig {
	host := s.requestHost(r)
	return sxcuConfig{
		Version:         "18.0.0",
		Name:            "ShareX Server (" + host + ")",
		DestinationType: "ImageUploader, TextUploader, FileUploader",
		RequestMethod:   http.MethodPost,
		RequestURL:      s.requestScheme(r) + "://" + host + s.cfg.BaseURL + "api/upload",
		Body:            "MultipartFormData",
		Headers:         map[string]string{passwordHeader: s.cfg.password},
		FileFormName:    "file",
		URL:             "{json:url}",
		ErrorMessage:    "{json:error}",
	}
}

// handleSxcu serves the uploader definition as a download. It contains the
// password, so it is only routed when explicitly enabled.
func (s *Server) handleSxcu() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.debugf(r, "SXCU configuration requested by %s", clientIP(r))

		body, err := json.Marshal(s.sxcuFor(r))
		if err != nil {
			http.Error(w, "Could not build the configuration file.", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Disposition", "attachment;filename="+sxcuFilename)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
	}
}
