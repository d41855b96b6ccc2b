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

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/pinlens/backend/internal/auth"
	"github.com/pinlens/backend/internal/config"
	"github.com/pinlens/backend/internal/database"
	"github.com/pinlens/backend/internal/engagement"
	"github.com/pinlens/backend/internal/handlers"
	"github.com/pinlens/backend/internal/logger"
	"github.com/pinlens/backend/internal/metrics"
	"github.com/pinlens/backend/internal/pubsub"
	"github.com/pinlens/backend/internal/store"
	"github.com/pinlens/backend/internal/telemetry"
	"github.com/pinlens/backend/internal/validation"
	ws "github.com/pinlens/backend/internal/websocket"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	cfg := config.Load()

	if err := logger.Initialize(cfg.LogLevel, cfg.LogFile); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Close()

	logger.Log.Info("=== Pinlens engagement server starting ===",
		zap.String("environment", cfg.Environment),
		zap.String("port", cfg.Port),
	)

	if cfg.JWTSecret == "" {
		logger.Log.Fatal("JWT_SECRET environment variable is required")
	}

	// Tracing
	tp, err := telemetry.InitTracer(telemetry.Config{
		ServiceName:  "pinlens-backend",
		Environment:  cfg.Environment,
		OTLPEndpoint: cfg.OTLPEndpoint,
		Enabled:      cfg.TracingEnabled,
		SamplingRate: 1.0,
	})
	if err != nil {
		logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	if tp != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = tp.Shutdown(shutdownCtx)
		}()
	}

	metrics.Initialize()

	// Database
	if err := database.Initialize(); err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer database.Close()

	if err := database.Migrate(); err != nil {
		logger.Log.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Fail fast when required backing services are missing
	if err := validation.NewServiceValidator().ValidateServices(context.Background()); err != nil {
		logger.Log.Fatal("Service validation failed", zap.Error(err))
	}

	// Redis pub/sub for invalidation and notification fan-out
	broker, err := pubsub.NewRedisBroker(cfg.RedisHost, cfg.RedisPort, cfg.RedisPassword, logger.Log)
	if err != nil {
		logger.Log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer broker.Close()

	st := store.New(database.DB)
	fanout := engagement.NewFanout(broker, logger.Log)
	authMW := auth.NewMiddleware([]byte(cfg.JWTSecret))

	// WebSocket hub
	hub := ws.NewHub(logger.Log)
	go hub.Run()

	wsHandler := ws.NewHandler(hub, authMW, ws.SessionConfig{
		Reader:          st,
		Sender:          st,
		Broker:          broker,
		PollInterval:    cfg.PollInterval,
		DispatchTimeout: cfg.DispatchTimeout,
		Logger:          logger.Log,
	}, logger.Log)

	h := handlers.New(st, fanout, logger.Log)
	router := handlers.SetupRouter(cfg, h, wsHandler, authMW)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // WebSocket connections are long-lived
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Log.Info("🚀 HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutdown signal received, draining connections")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := hub.Shutdown(shutdownCtx); err != nil {
		logger.Log.Warn("WebSocket hub shutdown incomplete", zap.Error(err))
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("HTTP server shutdown failed", zap.Error(err))
	}

	logger.Log.Info("=== Pinlens engagement server stopped ===")
}
