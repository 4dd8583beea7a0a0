package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/huddlechat/huddle/internal/api"
	"github.com/huddlechat/huddle/internal/auth"
	"github.com/huddlechat/huddle/internal/chat"
	"github.com/huddlechat/huddle/internal/config"
	"github.com/huddlechat/huddle/internal/handlers"
	"github.com/huddlechat/huddle/internal/moderation"
	"github.com/huddlechat/huddle/internal/store"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	var logger zerolog.Logger
	if cfg.IsDevelopment() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	} else {
		logger = zerolog.New(os.Stdout).
			With().
			Timestamp().
			Logger()
	}

	if cfg.EphemeralSecret {
		logger.Warn().Msg("JWT_SECRET not set; using an ephemeral secret, tokens will not survive a restart")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// User store: PostgreSQL when configured, SQLite otherwise
	var users store.UserStore
	if cfg.DatabaseURL != "" {
		pgStore, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres connection failed")
		}
		users = pgStore
		logger.Info().Msg("connected to PostgreSQL")
	} else {
		sqliteStore, err := store.NewSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			logger.Fatal().Err(err).Msg("sqlite open failed")
		}
		users = sqliteStore
		logger.Info().Str("path", cfg.SQLitePath).Msg("using SQLite user store")
	}
	defer users.Close()

	// Message store: Redis when configured, in-memory otherwise
	var messages store.MessageStore
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisStore, err := store.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connection failed")
		}
		messages = redisStore
		redisClient = redisStore.Client()
		logger.Info().Msg("connected to Redis")
	} else {
		messages = store.NewMemoryMessageStore()
		logger.Warn().Msg("using in-memory message store; messages will not survive a restart")
	}
	defer messages.Close()

	// Retention enforcement runs continuously, not only at read time
	store.StartJanitor(ctx, messages, time.Hour)

	// Content filter
	terms := cfg.ModerationTerms
	if len(terms) == 0 {
		terms = moderation.DefaultTerms
	}
	filter := moderation.NewFilter(terms)

	// Auth gateway and realtime hub
	authSvc := auth.NewService(users, []byte(cfg.JWTSecret))
	hub := chat.NewHub(logger, messages, filter, authSvc, cfg.HistoryLimit)
	if err := hub.LoadGroup(ctx); err != nil {
		logger.Warn().Err(err).Msg("failed to load persisted group metadata")
	}

	// HTTP layer
	h := handlers.NewHandler(authSvc, users, messages, hub, logger, cfg.UploadDir, cfg.ThemesDir)
	router := api.NewRouter(logger, cfg, h, hub, redisClient)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // WebSocket connections are long-lived
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("env", cfg.Env).
			Msg("starting huddle server")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	<-ctx.Done()

	logger.Info().Msg("shutting down server...")

	// Graceful shutdown with 30 second timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	hub.Shutdown(10 * time.Second)

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server stopped")
}
