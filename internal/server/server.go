package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"sharex-server/internal/storage"
)

// ErrAlreadyStarted is returned by Start on a running server.
var ErrAlreadyStarted = errors.New("server already started")

// BindError reports that the listening socket could not be opened.
type BindError struct {
	Addr string
	Err  error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("listen on %s: %v", e.Addr, e.Err)
}

func (e *BindError) Unwrap() error { return e.Err }

// Server is a ShareX upload server. Create it with New, then Start it.
type Server struct {
	cfg       Config
	store     storage.Storage
	log       *logrus.Logger
	metrics   *Metrics
	handler   http.Handler
	createdAt time.Time

	// lifecycle serialises Start and Stop. mu guards the fields below and
	// is never held across a blocking call.
	lifecycle  sync.Mutex
	mu         sync.Mutex
	httpServer *http.Server
	listener   net.Listener
	done       chan struct{}
}

// New validates opts and registers the routes. Nothing is bound or written
// to disk until Start.
func New(opts Options) (*Server, error) {
	cfg, err := NewConfig(opts)
	if err != nil {
		return nil, err
	}

	store := opts.Storage
	if store == nil {
		store = storage.NewDisk(cfg.SavePath)
	}

	s := &Server{
		cfg:       cfg,
		store:     store,
		log:       newLogger(opts.LogOutput, cfg.LogFormat, cfg.Debug),
		metrics:   NewMetrics(),
		createdAt: time.Now(),
	}
	s.handler = s.routes()
	return s, nil
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	if s.cfg.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(securityHeadersMiddleware)
	r.Use(middleware.GetHead)

	base := s.cfg.BaseURL
	html := r.With(middleware.Compress(5, "text/html"))

	html.Get(base, s.handleRoot())
	if base != "/" {
		html.Get(strings.TrimSuffix(base, "/"), s.handleRoot())
	}

	// Fixed routes go in before the catch-all filename route so a listing
	// named like a file is never shadowed.
	if s.cfg.EnableSxcu {
		r.Get(base+"api/sxcu", s.handleSxcu())
	}
	if s.cfg.ListingEnabled() {
		html.Get(base+s.cfg.FileListing, s.handleListing())
	}
	r.Get(base+"api/health", s.handleHealth())
	if s.cfg.EnableMetrics {
		r.Get(base+"api/metrics", s.handleMetrics())
	}
	r.With(s.requirePassword).Post(base+"api/upload", s.handleUpload())

	r.Get(base+"{filename}", s.handleFile())

	return r
}

// Start prepares the storage root and binds the listener. It returns once
// the server accepts connections; serving continues in the background
// until Stop.
func (s *Server) Start(ctx context.Context) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.Lock()
	running := s.httpServer != nil
	s.mu.Unlock()
	if running {
		return ErrAlreadyStarted
	}

	s.log.Debugf("Ensuring storage root for %s", s.cfg.SavePath)
	if err := s.store.EnsureRoot(ctx); err != nil {
		return fmt.Errorf("prepare storage: %w", err)
	}

	addr := net.JoinHostPort("", strconv.Itoa(int(s.cfg.Port)))
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		s.log.WithError(err).Error("Something went wrong when starting the server")
		return &BindError{Addr: addr, Err: err}
	}

	hs := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	done := make(chan struct{})

	go func() {
		defer close(done)
		if err := hs.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.WithError(err).Error("serve")
		}
	}()

	s.mu.Lock()
	s.httpServer = hs
	s.listener = ln
	s.done = done
	s.mu.Unlock()

	s.log.Infof("ShareX server started on port %d", listenerPort(ln))
	return nil
}

// Stop stops accepting connections and waits for in-flight requests until
// ctx is done, then closes what is left. Stopping a stopped server is a
// no-op. Addr, Port and Done keep answering while Stop waits.
func (s *Server) Stop(ctx context.Context) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.Lock()
	hs, done := s.httpServer, s.done
	s.mu.Unlock()
	if hs == nil {
		return nil
	}

	err := hs.Shutdown(ctx)
	if err != nil {
		_ = hs.Close()
	}
	<-done

	s.mu.Lock()
	s.httpServer = nil
	s.listener = nil
	s.done = nil
	s.mu.Unlock()

	s.log.Info("ShareX server stopped")
	return err
}

// Done is closed when the running server stops serving, whether through
// Stop or a fatal accept error. It is nil before Start.
func (s *Server) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Addr returns the bound address, or "" when the server is not running.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Port returns the bound port while running, otherwise the configured one.
// With Port 0 in the options this is how callers learn the chosen port.
func (s *Server) Port() uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return s.cfg.Port
	}
	return uint16(listenerPort(s.listener))
}

// Handler returns the routed handler, for embedding or tests.
func (s *Server) Handler() http.Handler { return s.handler }

// Config returns the resolved configuration.
func (s *Server) Config() Config { return s.cfg }

// Metrics returns the server counters.
func (s *Server) Metrics() *Metrics { return s.metrics }

func listenerPort(ln net.Listener) int {
	if tcp, ok := ln.Addr().(*net.TCPAddr); ok {
		return tcp.Port
	}
	return 0
}
