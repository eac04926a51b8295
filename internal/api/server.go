// Package api serves published scan snapshots over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/whale-scanner/internal/logging"
	"github.com/whale-scanner/internal/models"
	"github.com/whale-scanner/internal/storage"
	"github.com/whale-scanner/internal/types"
)

// SnapshotProvider serves the published output of the latest scan run.
// Implemented by storage.SnapshotCache; tests substitute fakes.
type SnapshotProvider interface {
	GetSnapshot(ctx context.Context, mode, rank string) (*models.Snapshot, error)
	GetMeta(ctx context.Context) (*models.RunMeta, error)
}

// HistoryProvider serves per-wallet metric history across runs.
type HistoryProvider interface {
	AddressHistory(ctx context.Context, addr types.Address, limit int) ([]storage.MetricsPoint, error)
}

// Server is the HTTP API server.
type Server struct {
	router     *mux.Router
	httpServer *http.Server
	snapshots  SnapshotProvider
	history    HistoryProvider
	config     *ServerConfig
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	FreeTierRPS     int
	PremiumTierRPS  int
}

// NewServer creates an API server. history may be nil when no metrics
// store is configured.
func NewServer(config *ServerConfig, snapshots SnapshotProvider, history HistoryProvider) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		snapshots: snapshots,
		history:   history,
		config:    config,
	}

	s.setupRouter()
	return s
}

// setupRouter configures the router with middleware and routes.
func (s *Server) setupRouter() {
	rateLimiter := NewRateLimiter(s.config.FreeTierRPS, s.config.PremiumTierRPS)

	s.router.Use(LoggingMiddleware)
	s.router.Use(RecoveryMiddleware)
	s.router.Use(CORSMiddleware)
	s.router.Use(RateLimitMiddleware(rateLimiter))
	s.router.Use(CompressionMiddleware)

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.config.Host, s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/rankings/{mode}", s.handleGetRankings).Methods("GET")
	api.HandleFunc("/meta", s.handleGetMeta).Methods("GET")
	api.HandleFunc("/wallets/{address}/history", s.handleGetWalletHistory).Methods("GET")
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "whale-scanner",
	})
}

// Router returns the configured handler, for tests.
func (s *Server) Router() http.Handler { return s.router }

// Start starts the HTTP server.
func (s *Server) Start() error {
	logging.GetGlobalLogger().WithField("addr", s.httpServer.Addr).Info("Starting API server")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.GetGlobalLogger().Info("Shutting down API server")
	return s.httpServer.Shutdown(ctx)
}
