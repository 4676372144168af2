package server

import (
	"errors"
	"mime"
	"net/http"
	"path"

	"github.com/go-chi/chi/v5"

	"sharex-server/internal/storage"
)

// contentTypeFor guesses the type from the extension only; stored files
// carry no other metadata.
func contentTypeFor(name string) string {
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// handleFile streams a stored file. Range and conditional requests are
// answered by http.ServeContent.
func (s *Server) handleFile() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "filename")
		if name == "" {
			s.debugf(r, "File request with no filename from %s", clientIP(r))
			http.Error(w, "No filename provided.", http.StatusBadRequest)
			return
		}

		s.debugf(r, "File %s requested by %s", name, clientIP(r))

		info, err := s.store.Stat(r.Context(), name)
		if err != nil {
			s.fileError(w, r, name, err)
			return
		}
		f, err := s.store.Open(r.Context(), name)
		if err != nil {
			s.fileError(w, r, name, err)
			return
		}
		defer func() { _ = f.Close() }()

		s.debugf(r, "Serving file %s to %s", name, clientIP(r))
		w.Header().Set("Content-Type", contentTypeFor(name))
		w.Header().Set("Accept-Ranges", "bytes")
		http.ServeContent(w, r, name, info.ModTime, f)
		s.metrics.RecordDownload(info.Size)
	}
}

func (s *Server) fileError(w http.ResponseWriter, r *http.Request, name string, err error) {
	if errors.Is(err, storage.ErrNotExist) || errors.Is(err, storage.ErrInvalidName) {
		s.debugf(r, "The requested file %s does not exist", name)
		s.metrics.RecordDownloadMiss()
		http.Error(w, "The requested file does not exist.", http.StatusNotFound)
		return
	}

	s.requestLogger(r).WithError(err).WithField("file", name).Error("open file")
	http.Error(w, "Could not read the requested file.", http.StatusInternalServerError)
}
