package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// ServerConfig holds the HTTP server's own listener and timeout settings,
// grounded on the teacher's ServerConfig (internal/interfaces/http/server.go).
type ServerConfig struct {
	ListenAddr           string
	RequestTimeout       time.Duration
	RequestQueueCapacity int
	ReadTimeout          time.Duration
	WriteTimeout         time.Duration
	IdleTimeout          time.Duration
}

// DefaultServerConfig returns the documented defaults (spec §6).
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		ListenAddr:           "127.0.0.1:8080",
		RequestTimeout:       2 * time.Second,
		RequestQueueCapacity: 1024,
		ReadTimeout:          10 * time.Second,
		WriteTimeout:         10 * time.Second,
		IdleTimeout:          60 * time.Second,
	}
}

// Server wraps the gorilla/mux router and stdlib http.Server (spec §4.H).
type Server struct {
	router   *mux.Router
	server   *http.Server
	handlers *Handlers
	config   ServerConfig
}

// NewServer builds a Server exposing the routes in spec §6's table plus
// GET /models and POST /models/reload. metricsHandler is mounted at
// GET /metrics (telemetry.Handler()).
func NewServer(config ServerConfig, handlers *Handlers, metricsHandler http.Handler, log zerolog.Logger) *Server {
	router := mux.NewRouter()
	s := &Server{router: router, handlers: handlers, config: config}
	s.setupRoutes(metricsHandler, log)

	s.server = &http.Server{
		Addr:         config.ListenAddr,
		Handler:      router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}
	return s
}

func (s *Server) setupRoutes(metricsHandler http.Handler, log zerolog.Logger) {
	sem := make(chan struct{}, s.config.RequestQueueCapacity)

	s.router.Use(recoveryMiddleware(log))
	s.router.Use(requestIDMiddleware)
	s.router.Use(loggingMiddleware(log))
	s.router.Use(backpressureMiddleware(sem))
	s.router.Use(jsonContentTypeMiddleware)

	s.router.Handle("/metrics", metricsHandler).Methods(http.MethodGet)
	s.router.HandleFunc("/health", s.handlers.Health).Methods(http.MethodGet)
	s.router.HandleFunc("/ready", s.handlers.Ready).Methods(http.MethodGet)
	s.router.HandleFunc("/models", s.handlers.Models).Methods(http.MethodGet)
	s.router.HandleFunc("/models/reload", s.handlers.ReloadModel).Methods(http.MethodPost)

	predict := s.router.PathPrefix("/").Subrouter()
	predict.Use(timeoutMiddleware(s.config.RequestTimeout))
	predict.HandleFunc("/predict", s.handlers.Predict).Methods(http.MethodPost)
	predict.HandleFunc("/predict/batch", s.handlers.PredictBatch).Methods(http.MethodPost)

	s.router.NotFoundHandler = http.HandlerFunc(s.handlers.NotFound)
}

// Start blocks serving HTTP until the server is shut down.
func (s *Server) Start() error {
	err := s.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully drains in-flight requests, bounded by ctx's deadline
// (spec §5 "graceful shutdown").
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
