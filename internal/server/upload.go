package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"sharex-server/internal/storage"
)

// uploadFormField is the multipart field ShareX sends the file in.
const uploadFormField = "file"

// uploadResp is returned after a successful upload. ShareX reads the link
// from it ({json:url} in the sxcu file).
type uploadResp struct {
	URL string `json:"url"`
}

// handleUpload handles POST {base}api/upload. The password has already been
// checked by requirePassword.
//
// The body is read part by part and the file part is streamed straight into
// storage, so memory use does not grow with the upload size. Exactly one
// file part, named "file", is accepted; anything else rejects the whole
// request and discards what was already stored.
func (s *Server) handleUpload() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		if s.cfg.MaxUploadBytes > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
		}

		mr, err := r.MultipartReader()
		if err != nil {
			s.debugf(r, "Upload attempt with no file from %s", clientIP(r))
			s.metrics.RecordUploadError()
			writeJSON(w, http.StatusBadRequest, errorResp{Error: "No file provided."})
			return
		}

		var (
			stored string
			size   int64
		)
		for {
			part, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil {
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					s.failUpload(w, r, stored, err)
					return
				}
				s.debugf(r, "Malformed upload from %s: %v", clientIP(r), err)
				s.discard(r, stored)
				s.metrics.RecordUploadError()
				writeJSON(w, http.StatusBadRequest, errorResp{Error: "No file provided."})
				return
			}

			// Plain form fields are ignored.
			if part.FileName() == "" {
				_ = part.Close()
				continue
			}

			if part.FormName() != uploadFormField || stored != "" {
				_ = part.Close()
				s.debugf(r, "Unexpected file field %q from %s", part.FormName(), clientIP(r))
				s.discard(r, stored)
				s.metrics.RecordUploadError()
				writeJSON(w, http.StatusBadRequest, errorResp{Error: "Unexpected field."})
				return
			}

			name, err := allocateName(r.Context(), s.store, part.FileName(), s.cfg.FilenameLength)
			if err != nil {
				_ = part.Close()
				s.failUpload(w, r, "", err)
				return
			}

			n, err := s.store.Create(r.Context(), name, part)
			_ = part.Close()
			if err != nil {
				s.failUpload(w, r, "", err)
				return
			}
			stored, size = name, n
		}

		if stored == "" {
			s.debugf(r, "Upload attempt with no file from %s", clientIP(r))
			s.metrics.RecordUploadError()
			writeJSON(w, http.StatusBadRequest, errorResp{Error: "No file provided."})
			return
		}

		s.metrics.RecordUpload(size, time.Since(start))
		s.requestLogger(r).WithFields(logrus.Fields{
			"file":  stored,
			"bytes": size,
		}).Info("upload stored")
		s.debugf(r, "File %s uploaded successfully by %s", stored, clientIP(r))

		writeJSON(w, http.StatusOK, uploadResp{URL: s.publicURL(r, stored)})
	}
}

// failUpload answers an upload that broke while reading the body or
// writing to storage, removing stored if it is set.
func (s *Server) failUpload(w http.ResponseWriter, r *http.Request, stored string, err error) {
	s.discard(r, stored)
	s.metrics.RecordUploadError()

	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		s.debugf(r, "Upload from %s exceeded %d bytes", clientIP(r), tooLarge.Limit)
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResp{Error: "File too large."})
	case errors.Is(err, storage.ErrExist):
		s.requestLogger(r).WithError(err).Warn("filename collision")
		writeJSON(w, http.StatusConflict, errorResp{Error: "Filename already taken, try again."})
	case errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, context.Canceled):
		s.debugf(r, "Upload from %s aborted: %v", clientIP(r), err)
		writeJSON(w, http.StatusBadRequest, errorResp{Error: "Upload aborted."})
	default:
		s.requestLogger(r).WithError(err).Error("upload failed")
		writeJSON(w, http.StatusInternalServerError, errorResp{Error: "Upload failed."})
	}
}

// discard removes a file stored earlier in a request that is being
// rejected. It runs even when the client has gone away.
func (s *Server) discard(r *http.Request, name string) {
	if name == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), 10*time.Second)
	defer cancel()
	if err := s.store.Remove(ctx, name); err != nil && !errors.Is(err, storage.ErrNotExist) {
		s.requestLogger(r).WithError(err).WithField("file", name).Warn("discard rejected upload")
	}
}
