package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kashsbd/awlam-backend/internal/logger"
	"github.com/kashsbd/awlam-backend/internal/metrics"
	"github.com/kashsbd/awlam-backend/internal/realtime"
	"github.com/kashsbd/awlam-backend/internal/router"
	"github.com/kashsbd/awlam-backend/internal/search"
	"github.com/kashsbd/awlam-backend/internal/storage"
	"github.com/kashsbd/awlam-backend/pkg/config"
	"github.com/kashsbd/awlam-backend/pkg/firebase"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg := config.Load()

	if err := logger.Initialize(cfg.LogLevel, cfg.LogFile); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Close()

	metrics.Initialize()

	// Initialize database connections
	db, err := config.InitDB(cfg)
	if err != nil {
		logger.Log.Fatal("Failed to initialize databases", zap.Error(err))
	}
	defer db.CloseDB()

	services := router.Services{
		Config:   cfg,
		Mongo:    db.Database(),
		Postgres: db.Postgres,
		Hub:      realtime.NewHub(),
	}

	redisClient, err := config.NewRedisClient(cfg)
	if err != nil {
		logger.Log.Warn("Redis unavailable, list caching disabled", zap.Error(err))
	} else {
		services.Redis = redisClient
		defer redisClient.Close()
	}

	minioClient, err := config.NewMinIOClient(cfg)
	if err != nil {
		logger.Log.Fatal("Failed to initialize MinIO", zap.Error(err))
	}
	services.Objects = storage.NewMinIOStore(minioClient, cfg.MinIOBucket)

	searchClient, err := search.NewClient(cfg.ElasticsearchURL)
	if err != nil {
		logger.Log.Warn("Elasticsearch unavailable, search disabled", zap.Error(err))
	} else {
		services.Search = searchClient
	}

	ctx := context.Background()
	firebaseApp, err := firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath)
	if err != nil {
		logger.Log.Warn("Firebase unavailable", zap.Error(err))
	} else {
		services.Firebase = firebaseApp
	}

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true

	router.SetupMiddleware(e)
	if err := router.SetupRoutes(e, services); err != nil {
		logger.Log.Fatal("Failed to set up routes", zap.Error(err))
	}

	metricsSrv := &http.Server{
		Addr:    ":" + cfg.MetricsPort,
		Handler: promhttp.Handler(),
	}
	go func() {
		logger.Log.Info("Metrics server starting", zap.String("port", cfg.MetricsPort))
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Error("Metrics server failed", zap.Error(err))
		}
	}()

	// Start server
	go func() {
		logger.Log.Info("Awlam backend starting", zap.String("port", cfg.Port), zap.String("env", cfg.Env))
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Warn("Metrics server shutdown", zap.Error(err))
	}
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}
	logger.Log.Info("Server exited")
}
