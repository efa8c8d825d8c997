package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"strmhook/internal/config"
	"strmhook/internal/generator"
	"strmhook/internal/history"
	"strmhook/internal/logging"
	"strmhook/internal/metrics"
)

// Generator runs pointer-file generation for the webhook routes.
type Generator interface {
	FromDirectory(ctx context.Context, dir string) (generator.Result, error)
	FromFiles(ctx context.Context, files []string) generator.Result
}

// HistoryReader lists recorded runs.
type HistoryReader interface {
	Recent(ctx context.Context, limit int) ([]history.Run, error)
}

// Server is the webhook HTTP listener.
type Server struct {
	bind     string
	token    string
	cfg      *config.Config
	gen      Generator
	history  HistoryReader
	metrics  *metrics.Metrics
	logger   *slog.Logger
	handler  http.Handler
	listener net.Listener
	server   *http.Server
}

// Option customizes a Server.
type Option func(*Server)

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logging.NewComponentLogger(logger, "server")
	}
}

// WithHistory exposes recorded runs on GET /history.
func WithHistory(reader HistoryReader) Option {
	return func(s *Server) {
		s.history = reader
	}
}

// WithMetrics instruments every route and exposes GET /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// New builds the server and its routes. Nothing listens until Start.
func New(cfg *config.Config, gen Generator, opts ...Option) *Server {
	s := &Server{
		bind:   strings.TrimSpace(cfg.Server.Bind),
		token:  cfg.Server.Token,
		cfg:    cfg,
		gen:    gen,
		logger: logging.NewComponentLogger(nil, "server"),
	}
	for _, opt := range opts {
		opt(s)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/webhook/strm", authMiddleware(s.token, s.handleDirectory))
	mux.HandleFunc("/webhook/strm/direct", authMiddleware(s.token, s.handleDirect))
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/config", authMiddleware(s.token, s.handleConfig))
	mux.HandleFunc("/history", authMiddleware(s.token, s.handleHistory))
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics.Handler())
	}
	s.handler = s.metrics.Middleware(mux)

	s.server = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Directory runs walk the whole remote tree before answering.
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start listens on the configured bind address and serves until ctx is done
// or Stop is called.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("webhook listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("webhook server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("webhook server listening",
		logging.String("address", listener.Addr().String()),
		logging.Bool("auth", s.token != ""),
	)
	return nil
}

// Addr returns the bound listener address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the listener down, waiting briefly for in-flight requests.
func (s *Server) Stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}
