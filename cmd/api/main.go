package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/aftersales-hub/factory-reports/internal/classify"
	"github.com/aftersales-hub/factory-reports/internal/config"
	"github.com/aftersales-hub/factory-reports/internal/database"
	"github.com/aftersales-hub/factory-reports/internal/ingestion"
	"github.com/aftersales-hub/factory-reports/internal/normalize"
	"github.com/aftersales-hub/factory-reports/internal/server"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := godotenv.Load(); err != nil {
		logger.Warn("No .env file loaded", zap.Error(err))
	}

	cfg, err := config.New()
	if err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	ctx := context.Background()

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to connect to the database", zap.Error(err))
	}
	defer pool.Close()

	store := database.NewPostgresStore(pool)
	if err := store.CreateTables(ctx); err != nil {
		logger.Fatal("Failed to set up database schema", zap.Error(err))
	}

	normalizer, err := normalize.New()
	if err != nil {
		logger.Fatal("Invalid column alias tables", zap.Error(err))
	}

	classifier := classify.New(cfg.FactoryCodes)
	service := ingestion.NewService(store, classifier, normalizer, logger)
	router := server.SetupRoutes(server.NewReportService(store, service, logger))

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: router,
	}

	go func() {
		logger.Info("Server starting", zap.Int("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Forced shutdown", zap.Error(err))
	}
}
