package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/mr1hm/orbitview/internal/api"
	"github.com/mr1hm/orbitview/internal/assistant"
	"github.com/mr1hm/orbitview/internal/catalog"
	"github.com/mr1hm/orbitview/internal/config"
	"github.com/mr1hm/orbitview/internal/logging"
	"github.com/mr1hm/orbitview/internal/repository"
	"github.com/mr1hm/orbitview/internal/session"
	"github.com/mr1hm/orbitview/internal/tiles"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Fatal while loading config: %v", err)
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("Server starting", "host", cfg.Server.Host, "port", cfg.Server.Port)

	cat := catalog.Default()
	if cfg.GIBS.CatalogPath != "" {
		cat, err = catalog.Load(cfg.GIBS.CatalogPath)
		if err != nil {
			logging.Fatalf("Failed to load catalog: %v", err)
		}
	}
	slog.Info("catalog loaded",
		"base_layers", len(cat.BaseLayers()),
		"overlays", len(cat.OverlayLayers()),
		"events", len(cat.Events()))

	builder := tiles.NewBuilder(cfg.GIBS.Endpoint)

	db, err := repository.NewSQLiteDB(cfg.DB.Path)
	if err != nil {
		logging.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var gen assistant.Generator
	gemini, err := assistant.NewGeminiGenerator(ctx, cfg.Assistant.APIKey, cfg.Assistant.Model)
	if err != nil {
		slog.Warn("assistant backend unavailable, replies will apologize", "error", err)
		gen = assistant.Unavailable{Err: err}
	} else {
		slog.Info("assistant backend configured", "backend", gemini.Name())
		gen = gemini
	}

	asst := assistant.New(gen,
		assistant.WithTemperature(float32(cfg.Assistant.Temperature)),
		assistant.WithTimeout(cfg.Assistant.Timeout),
	)
	dispatcher := assistant.NewDispatcher(asst, cfg.Worker.Count, cfg.Worker.BufferSize)
	dispatcher.Start(ctx)

	sessions := session.NewRegistry(session.RegistryConfig{
		PlaybackInterval: cfg.Session.PlaybackInterval,
		IdleTTL:          cfg.Session.IdleTTL,
		ReapInterval:     cfg.Session.ReapInterval,
	}, cat, builder, db)
	sessions.Start(ctx)

	// Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logging.Middleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false, // Set to false when using wildcard origins
	}))
	router.Use(api.RateLimitMiddleware(cfg.Server.RateLimitRPS))

	handler := api.NewHandler(cat, builder, sessions, dispatcher, cfg.Server.ChatRateLimitRPS)
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}
	// Event streams never finish on their own, so end them once draining starts.
	srv.RegisterOnShutdown(sessions.CloseStreams)

	go func() {
		slog.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	// Questions already accepted still get their reply before workers exit.
	dispatcher.Stop()
	cancel()
	sessions.Stop()

	slog.Info("shutdown complete")
}
