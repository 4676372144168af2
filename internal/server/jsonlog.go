// jsonlog.go - Structured logging, JSON in production, text otherwise.
package server

import (
	"io"
	"net/http"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// newLogger builds the logger of one server. Debug lines are dropped
// unless debug is set.
func newLogger(out io.Writer, format string, debug bool) *logrus.Logger {
	if out == nil {
		out = os.Stdout
	}

	l := logrus.New()
	l.SetOutput(out)
	if format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339})
	}
	if debug {
		l.SetLevel(logrus.DebugLevel)
	} else {
		l.SetLevel(logrus.InfoLevel)
	}
	return l
}

// requestLogger returns an entry carrying the request id.
func (s *Server) requestLogger(r *http.Request) *logrus.Entry {
	return s.log.WithField("rid", RequestIDFromContext(r.Context()))
}

// debugf is a side channel: it never fails and never blocks the response
// beyond the write to the log output.
func (s *Server) debugf(r *http.Request, format string, args ...any) {
	if !s.log.IsLevelEnabled(logrus.DebugLevel) {
		return
	}
	s.requestLogger(r).Debugf(format, args...)
}
