// Package server exposes props, recommendations, health checks, metrics and
// the websocket stream over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/parlay-edge/internal/metrics"
	"github.com/yourusername/parlay-edge/internal/provider"
	"github.com/yourusername/parlay-edge/internal/publish"
	"github.com/yourusername/parlay-edge/internal/service"
)

// DatabasePinger defines the interface for checking database connectivity.
type DatabasePinger interface {
	Ping(ctx context.Context) error
}

// HealthResponse is the /health body.
type HealthResponse struct {
	OK       bool   `json:"ok"`
	Provider string `json:"provider"`
	Time     string `json:"time"`
	Service  string `json:"service,omitempty"`
	Version  string `json:"version,omitempty"`
}

// ReadyResponse represents the JSON response for readiness check endpoints.
type ReadyResponse struct {
	Status   string            `json:"status"`
	Service  string            `json:"service"`
	Checks   map[string]string `json:"checks,omitempty"`
	Duration string            `json:"duration,omitempty"`
}

// Config holds the configuration for the API server.
type Config struct {
	ServiceName    string
	Version        string
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	AllowedOrigins []string
	MetricsPath    string
	DisableMetrics bool
	Logger         *logrus.Logger
	DB             DatabasePinger
	Source         provider.Source
	Service        *service.RecommendationService
	Hub            *publish.Hub
}

// Server is the parlay-edge HTTP API.
type Server struct {
	cfg    Config
	source provider.Source
	svc    *service.RecommendationService
	hub    *publish.Hub
	db     DatabasePinger
	logger *logrus.Logger
	router chi.Router
	server *http.Server
	now    func() time.Time

	mu    sync.RWMutex
	ready bool
}

// NewServer creates a new API server. Source and Service are required.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Source == nil {
		return nil, fmt.Errorf("odds source is required")
	}
	if cfg.Service == nil {
		return nil, fmt.Errorf("recommendation service is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 15 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 60 * time.Second
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "parlay-edge"
	}

	s := &Server{
		cfg:    cfg,
		source: cfg.Source,
		svc:    cfg.Service,
		hub:    cfg.Hub,
		db:     cfg.DB,
		logger: cfg.Logger,
		now:    time.Now,
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(chimiddleware.Recoverer)

	origins := s.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Get("/live", s.handleLive)
	if !s.cfg.DisableMetrics {
		r.Handle(s.cfg.MetricsPath, metrics.Handler())
	}

	if s.hub != nil {
		r.Get("/ws", s.hub.ServeWS)
	}

	r.Route("/nfl", func(r chi.Router) {
		// /ws is mounted outside this group so long-lived streams are not timed out
		r.Use(chimiddleware.Timeout(s.cfg.WriteTimeout))

		r.Get("/events", s.handleEvents)
		r.Get("/props", s.handleProps)
		r.Get("/parlays", s.handleParlays)
		r.Get("/parlays/{id}/history", s.handleParlayHistory)

		r.Get("/recommendations", s.handleRecommendationHistory)
		r.Get("/recommendations/latest", s.handleLatestRecommendation)
		r.Get("/recommendations/{id}", s.handleRecommendation)
	})

	return r
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// SetReady marks the server as ready to accept traffic.
func (s *Server) SetReady(ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = ready
}

// IsReady returns whether the server is ready.
func (s *Server) IsReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithFields(logrus.Fields{
			"port":    s.cfg.Port,
			"service": s.cfg.ServiceName,
		}).Info("API server starting")

		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return s.Shutdown()
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	if s.server == nil {
		return nil
	}

	s.logger.Info("API server shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

// handleHealth handles the /health endpoint - basic liveness check.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, HealthResponse{
		OK:       true,
		Provider: s.source.Name(),
		Time:     s.now().UTC().Format(time.RFC3339),
		Service:  s.cfg.ServiceName,
		Version:  s.cfg.Version,
	})
}

// handleLive handles the /live endpoint - kubernetes liveness probe.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady handles the /ready endpoint - checks database connectivity.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	checks := make(map[string]string)
	allHealthy := true

	if !s.IsReady() {
		allHealthy = false
		checks["service"] = "not_ready"
	} else {
		checks["service"] = "ok"
	}

	if s.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		if err := s.db.Ping(ctx); err != nil {
			allHealthy = false
			checks["database"] = fmt.Sprintf("error: %v", err)
		} else {
			checks["database"] = "ok"
		}
	}

	if s.hub != nil {
		checks["websocket_clients"] = fmt.Sprintf("%d", s.hub.ClientCount())
	}

	response := ReadyResponse{
		Service:  s.cfg.ServiceName,
		Checks:   checks,
		Duration: time.Since(start).String(),
	}

	if allHealthy {
		response.Status = "ok"
		respondJSON(w, http.StatusOK, response)
		return
	}
	response.Status = "not_ready"
	respondJSON(w, http.StatusServiceUnavailable, response)
}
