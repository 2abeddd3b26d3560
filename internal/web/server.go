// Package web provides the HTTP server and web UI for Moodify.
package web

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// DefaultAddr is the default server address.
const DefaultAddr = "127.0.0.1:8080"

const (
	minWriteTimeout = 60 * time.Second
	// captureSlack covers device start-up and the classifier and transcript
	// tails that run after the capture window.
	captureSlack = 30 * time.Second
)

// ServerConfig holds server configuration.
type ServerConfig struct {
	Addr         string
	TemplatesFS  fs.FS
	StaticFS     fs.FS
	Sampler      MoodSampler
	Voice        VoiceDetector
	Playlists    Playlists
	Preview      http.Handler // optional live camera preview
	SampleBudget time.Duration
	// ListenDuration is the voice capture window; with SampleBudget it sets
	// the write timeout.
	ListenDuration time.Duration
	Cloud          bool
	Logger         *slog.Logger
}

// Server is the HTTP server for the web application.
type Server struct {
	router   chi.Router
	server   *http.Server
	handlers *Handlers
	preview  http.Handler
	logger   *slog.Logger
}

// NewServer creates a new web server.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	templates, err := NewTemplates(cfg.TemplatesFS)
	if err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}

	handlers := NewHandlers(HandlerDeps{
		Sampler:      cfg.Sampler,
		Voice:        cfg.Voice,
		Playlists:    cfg.Playlists,
		Templates:    templates,
		SampleBudget: cfg.SampleBudget,
		Cloud:        cfg.Cloud,
		Logger:       logger,
	})

	s := &Server{
		router:   chi.NewRouter(),
		handlers: handlers,
		preview:  cfg.Preview,
		logger:   logger,
	}

	s.setupMiddleware()
	s.setupRoutes(cfg.StaticFS)

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: writeTimeout(cfg.SampleBudget, cfg.ListenDuration),
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// writeTimeout covers the longest camera or voice run.
func writeTimeout(sample, listen time.Duration) time.Duration {
	return max(minWriteTimeout, max(sample, listen)+captureSlack)
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupMiddleware configures middleware for the router.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
}

// setupRoutes configures routes for the application.
func (s *Server) setupRoutes(staticFS fs.FS) {
	// Websocket upgrades need the unwrapped response writer.
	if s.preview != nil {
		s.router.Handle("/preview", s.preview)
	}

	s.router.Group(func(r chi.Router) {
		r.Use(middleware.Compress(5))

		fileServer := http.FileServer(http.FS(staticFS))
		r.Handle("/static/*", http.StripPrefix("/static/", fileServer))

		r.Get("/", s.handlers.Home)
		r.Get("/healthz", s.handlers.Health)

		r.Post("/mood/{mood}", s.handlers.SelectMood)
		r.Post("/detect/camera", s.handlers.DetectCamera)
		r.Post("/detect/voice", s.handlers.DetectVoice)
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("starting server", "url", "http://"+s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Run starts the server and handles graceful shutdown on interrupt signals.
func (s *Server) Run() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	errCh := make(chan error, 1)
	go func() {
		if err := s.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-stop:
		s.logger.Info("shutting down server")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}
