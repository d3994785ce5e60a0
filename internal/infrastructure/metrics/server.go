package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nerrad567/hadiscovery/internal/infrastructure/config"
)

const readHeaderTimeout = 5 * time.Second

// ErrAlreadyStarted is returned by Start on a running Server.
var ErrAlreadyStarted = errors.New("metrics: server already started")

// Logger is the logging interface used by Server.
type Logger interface {
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Error(string, ...any) {}

// Server serves a Prometheus registry over HTTP.
type Server struct {
	cfg      config.MetricsConfig
	handler  http.Handler
	logger   Logger
	mu       sync.Mutex
	srv      *http.Server
	listener net.Listener
}

// NewServer creates a Server for the registry.
//
// Go runtime and process collectors are added to reg when absent.
func NewServer(cfg config.MetricsConfig, reg *prometheus.Registry) *Server {
	registerRuntimeCollectors(reg)

	mux := http.NewServeMux()
	mux.Handle(cfg.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	return &Server{
		cfg:     cfg,
		handler: mux,
		logger:  noopLogger{},
	}
}

func registerRuntimeCollectors(reg *prometheus.Registry) {
	for _, c := range []prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		// A collector registered earlier keeps serving.
		_ = reg.Register(c)
	}
}

// SetLogger sets the logger for serve errors.
func (s *Server) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	s.mu.Lock()
	s.logger = logger
	s.mu.Unlock()
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.srv != nil {
		return ErrAlreadyStarted
	}

	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return fmt.Errorf("metrics: listen %s: %w", s.cfg.Listen, err)
	}

	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	s.srv = srv
	s.listener = ln
	logger := s.logger

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()

	return nil
}

// Addr returns the listening address, or "" when not started.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown stops the server, waiting for in-flight scrapes until ctx ends.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.srv = nil
	s.listener = nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
