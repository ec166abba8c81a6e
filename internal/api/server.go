// Package api provides the HTTP surface of the backend.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cpenarrieta/personal-finance-backend/internal/api/handlers"
	"github.com/cpenarrieta/personal-finance-backend/internal/api/middleware"
	"github.com/cpenarrieta/personal-finance-backend/internal/application/service"
	"github.com/cpenarrieta/personal-finance-backend/internal/infrastructure/storage"
)

// Config holds API server configuration.
type Config struct {
	Port           int
	AllowedOrigins []string
}

// DefaultConfig returns sensible defaults for the API server.
func DefaultConfig() Config {
	return Config{
		Port:           8080,
		AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
	}
}

// Server is the HTTP API server.
type Server struct {
	config         Config
	router         chi.Router
	httpServer     *http.Server
	logger         *slog.Logger
	repo           storage.Repository
	receiptService *service.ReceiptService
}

// NewServer creates a new API server.
func NewServer(cfg Config, repo storage.Repository, receiptService *service.ReceiptService, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config:         cfg,
		router:         chi.NewRouter(),
		logger:         logger,
		repo:           repo,
		receiptService: receiptService,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware configures global middleware.
func (s *Server) setupMiddleware() {
	// CORS; method and header defaults come from the middleware
	s.router.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: s.config.AllowedOrigins,
	}))

	// Request logging
	s.router.Use(middleware.Logging(s.logger))
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	// Health check (no /api prefix - for load balancers)
	healthHandler := handlers.NewHealthHandler()
	s.router.Get("/health", healthHandler.ServeHTTP)

	// API routes
	s.router.Route("/api", func(r chi.Router) {
		// Transactions
		transactionsHandler := handlers.NewTransactionsHandler(s.repo)
		r.Get("/transactions", transactionsHandler.List)
		r.Get("/transactions/{id}", transactionsHandler.Get)

		// Categories
		categoriesHandler := handlers.NewCategoriesHandler(s.repo)
		r.Get("/categories", categoriesHandler.List)

		// Stats
		statsHandler := handlers.NewStatsHandler(s.repo)
		r.Get("/stats", statsHandler.Get)

		// Receipt workflow
		if s.receiptService != nil {
			receiptsHandler := handlers.NewReceiptsHandler(s.receiptService)
			r.Post("/receipts/match", receiptsHandler.Match)
			r.Post("/receipts/analyze", receiptsHandler.Analyze)
			r.Post("/receipts/link", receiptsHandler.Link)

			splitsHandler := handlers.NewSplitsHandler(s.receiptService)
			r.Post("/transactions/{id}/split", splitsHandler.Create)
		}
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting API server", "addr", addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")

	if s.httpServer == nil {
		return nil
	}

	return s.httpServer.Shutdown(ctx)
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}
