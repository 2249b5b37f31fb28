package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quantum-collab/internal/api"
	"quantum-collab/internal/config"
	"quantum-collab/internal/db"
	"quantum-collab/internal/logging"
	"quantum-collab/internal/pubsub"
	"quantum-collab/internal/repository"
	"quantum-collab/internal/services"
	"quantum-collab/internal/services/collaboration"
	"quantum-collab/internal/telemetry"
)

/*
Startup order: config, logger, tracing, storage, event sink, hub, HTTP.
Shutdown runs in reverse: stop accepting requests, flush and close the
hub, drain queued events, then release redis, the database and the tracer.
*/

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New().FromPath(cfg.LogFile).WithLevel(cfg.LogLevel).Make()
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()
	log := logger.Logger

	log.Info().Msg("🚀 Starting quantum collaboration hub...")

	// Tracing first so every later operation is traced
	jaegerShutdown, err := telemetry.InitJaeger("quantum-collab", cfg.JaegerEndpoint, log)
	if err != nil {
		log.Warn().Err(err).Msg("⚠️  Jaeger unavailable, continuing without tracing")
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := jaegerShutdown(ctx); err != nil {
			log.Warn().Err(err).Msg("⚠️  Failed to shutdown Jaeger")
		}
	}()

	hub := collaboration.NewHub(log, nil)
	hub.SetSnapshotInterval(cfg.Hub.SnapshotInterval)

	var sessionRepo *repository.SessionRepositoryImpl
	if cfg.StorageDriver == "postgres" {
		database, err := db.NewGorm(cfg, log)
		if err != nil {
			log.Fatal().Err(err).Msg("❌ Failed to connect to database")
		}
		defer database.Close()

		sessionRepo = repository.NewSessionRepository(database.DB)
		hub.SetSessionStore(sessionRepo)
		hub.SetDocumentRepository(repository.NewDocumentRepository(database.DB))

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := hub.Restore(ctx); err != nil {
			log.Error().Err(err).Msg("failed to restore sessions, starting empty")
		}
		cancel()
	}

	// Redis I/O happens on the dispatcher's workers, never on a socket's read loop
	var dispatcher *services.EventDispatcher
	if cfg.RedisAddr != "" {
		publisher, err := pubsub.NewRedisPublisher(pubsub.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			log.Warn().Err(err).Msg("⚠️  Redis unavailable, lifecycle events will not be published")
		} else {
			defer publisher.Close()
			dispatcher = services.NewEventDispatcher(publisher, cfg.EventWorkers, cfg.EventQueueSize, log)
			dispatcher.Start()
			hub.SetEventSink(dispatcher)
			log.Info().Str("addr", cfg.RedisAddr).Msg("✓ Redis event sink connected")
		}
	}

	hub.Start()

	wsHandler := collaboration.NewWebSocketHandler(hub, cfg.Hub, log)
	handler := api.NewHandler(hub, wsHandler, log)
	if sessionRepo != nil {
		handler.SetSessionArchive(sessionRepo)
	}
	router := api.SetupRoutes(handler, log)

	addr := fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Str("storage", cfg.StorageDriver).Msg("🌐 Server listening")
		log.Info().Msg("   WS     /ws/collaboration?userId&userName&sessionId&projectId")
		log.Info().Msg("   POST   /api/sessions            - Create session")
		log.Info().Msg("   GET    /api/sessions            - List active sessions")
		log.Info().Msg("   POST   /api/sessions/:id/end    - End session")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("❌ Server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// hijacked websocket connections are not tracked by server.Shutdown;
	// the hub closes them itself after the final snapshot flush
	if err := server.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("⚠️  Server forced to shutdown")
	}
	hub.Shutdown(ctx)
	if dispatcher != nil {
		dispatcher.Shutdown()
	}

	log.Info().Msg("✓ Server shutdown complete")
}
