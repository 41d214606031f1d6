// Package relay serves the transcription page and accepts finished transcripts
// from it over loopback HTTP.
//
// One Server owns the most recent submission and at most one submission
// callback. Requests are served concurrently; both values are guarded by a
// mutex and the callback runs outside it.
package relay

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

const loopbackHost = "127.0.0.1"

const (
	defaultMaxBodyBytes  = 1 << 20
	defaultShutdownGrace = 2 * time.Second
)

var ginModeOnce sync.Once

// Options tunes request limits and shutdown behavior. Zero values select defaults.
type Options struct {
	MaxBodyBytes  int64
	ShutdownGrace time.Duration
}

// Server is the loopback transcription relay.
type Server struct {
	logger *slog.Logger
	opts   Options
	engine *gin.Engine

	// lifecycle guards the fields below. Shutdown itself runs outside it;
	// draining is closed once the previous server has fully stopped.
	lifecycle  sync.Mutex
	httpServer *http.Server
	listener   net.Listener
	done       chan struct{}
	draining   chan struct{}

	mu       sync.Mutex
	last     string
	callback func(string)
}

// New constructs a stopped relay server.
func New(opts Options, logger *slog.Logger) *Server {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}
	if opts.ShutdownGrace <= 0 {
		opts.ShutdownGrace = defaultShutdownGrace
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s := &Server{logger: logger, opts: opts}
	s.engine = s.routes()
	return s
}

// Start binds 127.0.0.1:port and begins serving in the background. It returns
// once the socket is listening. Starting a running server is a no-op.
// Port 0 selects an ephemeral port; see Addr.
func (s *Server) Start(ctx context.Context, port int) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	for s.draining != nil {
		draining := s.draining
		s.lifecycle.Unlock()
		select {
		case <-draining:
		case <-ctx.Done():
			s.lifecycle.Lock()
			return ctx.Err()
		}
		s.lifecycle.Lock()
	}
	if s.httpServer != nil {
		return nil
	}

	addr := net.JoinHostPort(loopbackHost, strconv.Itoa(port))
	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		s.logger.Error("relay bind failed", "addr", addr, "error", err.Error())
		return &BindError{Addr: addr, Err: err}
	}

	srv := &http.Server{
		Handler:  s.engine,
		ErrorLog: slog.NewLogLogger(s.logger.Handler(), slog.LevelDebug),
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("relay serve stopped", "error", err.Error())
		}
	}()

	s.httpServer, s.listener, s.done = srv, listener, done
	s.logger.Info("relay listening", "addr", listener.Addr().String())
	return nil
}

// Stop closes the listener and waits up to the shutdown grace period for
// in-flight requests before force-closing their connections. Stopping a
// stopped server is a no-op; a Stop racing another waits for it to finish.
// Addr, URL and Running report the server as stopped while it drains.
// Stop never fails.
func (s *Server) Stop() {
	s.lifecycle.Lock()
	srv, done, draining := s.httpServer, s.done, s.draining
	if srv == nil {
		s.lifecycle.Unlock()
		if draining != nil {
			<-draining
		}
		return
	}
	drained := make(chan struct{})
	s.httpServer, s.listener, s.done, s.draining = nil, nil, nil, drained
	s.lifecycle.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownGrace)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		s.logger.Warn("relay shutdown grace expired; closing connections", "error", err.Error())
		_ = srv.Close()
	}
	<-done

	s.lifecycle.Lock()
	s.draining = nil
	s.lifecycle.Unlock()
	close(drained)
	s.logger.Info("relay stopped")
}

// Running reports whether the server currently holds a listener.
func (s *Server) Running() bool {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	return s.listener != nil
}

// Addr returns the bound host:port, or "" when stopped.
func (s *Server) Addr() string {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// URL returns the page URL, or "" when stopped.
func (s *Server) URL() string {
	addr := s.Addr()
	if addr == "" {
		return ""
	}
	return "http://" + addr + "/"
}

// SetSubmissionCallback replaces the submission callback. nil clears it.
func (s *Server) SetSubmissionCallback(fn func(text string)) {
	s.mu.Lock()
	s.callback = fn
	s.mu.Unlock()
}

// LastSubmission returns the most recently accepted text, or "" if none.
func (s *Server) LastSubmission() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// ServeHTTP routes a single request without a socket.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.engine.ServeHTTP(w, r)
}

// accept stores text and returns the callback to run for it.
func (s *Server) accept(text string) func(string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = text
	return s.callback
}
