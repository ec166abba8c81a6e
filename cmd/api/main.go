package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/cpenarrieta/personal-finance-backend/internal/api"
	"github.com/cpenarrieta/personal-finance-backend/internal/application/service"
	"github.com/cpenarrieta/personal-finance-backend/internal/domain/analyzer"
	"github.com/cpenarrieta/personal-finance-backend/internal/domain/matcher"
	"github.com/cpenarrieta/personal-finance-backend/internal/domain/validator"
	"github.com/cpenarrieta/personal-finance-backend/internal/infrastructure/config"
	"github.com/cpenarrieta/personal-finance-backend/internal/infrastructure/logging"
	"github.com/cpenarrieta/personal-finance-backend/internal/infrastructure/storage"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configFile := flag.String("config", "config.yaml", "Configuration file path")
	flag.Parse()

	// .env is optional; real env vars win either way
	_ = godotenv.Load()

	cfg := config.LoadOrEnvWithPath(*configFile)

	logger := logging.NewLoggerWithSystem(cfg.Observability.Logging, "api")

	store, err := storage.NewStorage(cfg.Storage.DatabasePath)
	if err != nil {
		logger.Error("failed to open database", "path", cfg.Storage.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	// Without an API key the service runs without receipt analysis;
	// matching and manual splits still work.
	var receiptAnalyzer *analyzer.Analyzer
	if cfg.Vision.APIKey != "" {
		visionClient := analyzer.NewRealVisionClient(cfg.Vision.APIKey, cfg.Vision.BaseURL)
		receiptAnalyzer = analyzer.NewAnalyzer(visionClient, cfg.Vision.Model)
	} else {
		logger.Warn("no vision API key configured, receipt analysis disabled")
	}

	matchConfig := matcher.DefaultConfig()
	matchConfig.AmountWeight = cfg.Matching.AmountWeight
	matchConfig.MerchantWeight = cfg.Matching.MerchantWeight
	matchConfig.DateWeight = cfg.Matching.DateWeight
	matchConfig.DateToleranceDays = cfg.Matching.DateToleranceDays
	matchConfig.MinScore = cfg.Matching.MinScore
	matchConfig.MaxResults = cfg.Matching.MaxResults

	receiptService := service.NewReceiptService(
		store,
		matcher.NewMatcher(matchConfig),
		validator.NewValidator(validator.Config{Tolerance: cfg.Reconcile.Tolerance}),
		receiptAnalyzer,
		cfg.Matching.LookbackDays,
		logger,
	)

	server := api.NewServer(api.Config{
		Port:           cfg.Server.Port,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}, store, receiptService, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", "error", err)
			os.Exit(1)
		}
	}
}
