// Package server assembles the remote replica HTTP API: routes, middleware and the change feed hub.
package server

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iudanet/docsync/internal/server/handlers"
	"github.com/iudanet/docsync/internal/server/middleware"
	"github.com/iudanet/docsync/internal/server/storage"
)

const (
	// DefaultTokenTTL время жизни access token
	DefaultTokenTTL = 15 * time.Minute
	// DefaultAuthRate лимит попыток login/register в минуту с одного IP
	DefaultAuthRate = 10
)

// Store объединяет хранилища, которые нужны серверу
type Store interface {
	storage.UserStorage
	storage.RevisionStorage
	handlers.Pinger
}

// Config параметры HTTP API
type Config struct {
	Version      string
	JWTSecret    []byte
	TokenTTL     time.Duration
	PingInterval time.Duration
	// Rate - запросов в минуту с одного IP; 0 отключает ограничение
	Rate int
	// AuthRate - лимит для /auth/*; 0 означает DefaultAuthRate
	AuthRate int
}

// Server is the assembled http.Handler of the remote replica.
type Server struct {
	handler http.Handler
	hub     *handlers.FeedHub
	limiter *middleware.PathRateLimiter
	logger  *slog.Logger
}

// New wires handlers and middleware over store
func New(store Store, cfg Config, logger *slog.Logger) (*Server, error) {
	if len(cfg.JWTSecret) == 0 {
		return nil, errors.New("jwt secret is required")
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = DefaultTokenTTL
	}
	if cfg.AuthRate <= 0 {
		cfg.AuthRate = DefaultAuthRate
	}

	jwtConfig := handlers.JWTConfig{
		Secret:         cfg.JWTSecret,
		AccessTokenTTL: cfg.TokenTTL,
	}

	hub := handlers.NewFeedHub(logger)
	authHandler := handlers.NewAuthHandler(logger, store, jwtConfig)
	healthHandler := handlers.NewHealthHandler(logger, store, cfg.Version)
	replHandler := handlers.NewReplicationHandler(logger, store, hub, cfg.PingInterval)

	requireAuth := middleware.AuthMiddleware(logger, jwtConfig)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/v1/auth/login", authHandler.Login)
	mux.HandleFunc("GET /api/v1/health", healthHandler.Health)
	mux.Handle("GET /api/v1/changes", requireAuth(http.HandlerFunc(replHandler.Changes)))
	mux.Handle("GET /api/v1/changes/feed", requireAuth(http.HandlerFunc(replHandler.Feed)))
	mux.Handle("POST /api/v1/revisions", requireAuth(http.HandlerFunc(replHandler.Push)))
	mux.Handle("GET /metrics", promhttp.Handler())

	s := &Server{hub: hub, logger: logger}

	var h http.Handler = mux
	if cfg.Rate > 0 {
		s.limiter = middleware.NewPathRateLimiter([]middleware.PathRateLimit{
			{Path: "/api/v1/auth/login", Rate: cfg.AuthRate, Window: time.Minute},
			{Path: "/api/v1/auth/register", Rate: cfg.AuthRate, Window: time.Minute},
		}, cfg.Rate, time.Minute, logger)
		h = s.limiter.Middleware(h)
	}
	h = middleware.LoggingWithSkip(logger, []string{"/api/v1/health", "/metrics"})(h)
	h = middleware.MetricsMiddleware()(h)
	h = middleware.RecoveryMiddleware(logger)(h)

	s.handler = h
	return s, nil
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Close завершает websocket-ленты и фоновые горутины лимитеров
func (s *Server) Close() {
	s.hub.Close()
	if s.limiter != nil {
		s.limiter.Stop()
	}
	s.logger.Info("Server handlers closed")
}
