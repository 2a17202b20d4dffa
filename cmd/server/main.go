package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/pft-interpreter-server/internal/api"
	"github.com/pft-interpreter-server/internal/config"
	"github.com/pft-interpreter-server/internal/feedback"
	"github.com/pft-interpreter-server/internal/report"
	"github.com/pft-interpreter-server/internal/service"
)

func main() {
	// Load configuration
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	logger := configManager.NewLogger()

	// Build the reference table and the interpretation engine
	table, err := configManager.LoadReferenceTable()
	if err != nil {
		log.Fatalf("Failed to load reference table: %v", err)
	}

	model, err := service.NewReferenceEquationModel(logger, table, cfg.Cache.PredictionCacheSize)
	if err != nil {
		log.Fatalf("Failed to build reference equation model: %v", err)
	}

	interpreter := service.NewInterpreter(logger, model)
	generator := report.NewGenerator(model)

	reviews, err := feedback.NewSQLiteStore(cfg.Storage.FeedbackDBPath)
	if err != nil {
		log.Fatalf("Failed to open review store: %v", err)
	}
	defer reviews.Close()

	logger.WithField("addr", cfg.Server.Host).Info("Starting PFT interpretation server")

	// Create server
	server := api.NewServer(logger, cfg, interpreter, generator, reviews)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	// Start server
	if err := server.Start(ctx); err != nil {
		log.Fatalf("Server failed: %v", err)
	}

	logger.Info("Server stopped")
}
