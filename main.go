package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	utils "direct2url/internal"
	"direct2url/internal/config"
	"direct2url/internal/middleware"
	"direct2url/internal/signer"
	"direct2url/internal/upload"
	"direct2url/pkg/logger"
)

func main() {
	cfg := config.Load()
	logger.SetLevel(cfg.LogLevel)
	if cfg.IsProduction() {
		logger.UseJSON(os.Stdout)
	}

	limiter, closeLimiter := newLimiter(cfg)
	defer closeLimiter()

	uploadHandler := upload.NewHandler(upload.NewService(signer.NewBroker()), cfg.Environment)

	mux := http.NewServeMux()
	uploadHandler.Register(mux, middleware.RateLimit(limiter, middleware.ClientKey(cfg.RateLimit.TrustProxy)))

	server := &http.Server{
		Addr: fmt.Sprintf(":%s", cfg.Port),
		Handler: middleware.Chain(mux,
			middleware.RequestID,
			middleware.Logger,
			middleware.Recovery,
			middleware.CORS(cfg.AllowedOrigins),
			middleware.MaxBody(cfg.MaxBodyBytes),
		),
		ReadTimeout:  cfg.Timeouts.Read,
		WriteTimeout: cfg.Timeouts.Write,
		IdleTimeout:  cfg.Timeouts.Idle,
	}

	go func() {
		logger.Log.Info().Str("port", cfg.Port).Str("environment", cfg.Environment).Msg("Starting server 🚀")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.Shutdown("Server failed to start", err)
		}
	}()

	utils.NotifyQuit()
	<-utils.QuitChan

	logger.Log.Info().Msg("Shutting down server... 🛑")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeouts.Shutdown)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Log.Error().Err(err).Msg("Server forced to shutdown 🚨")
		return
	}

	logger.Log.Info().Msg("Server exited")
}

// newLimiter shares counters through redis when REDIS_URL is set and falls
// back to per-process buckets otherwise.
func newLimiter(cfg *config.Config) (middleware.Limiter, func()) {
	requests, window := cfg.RateLimit.Requests, cfg.RateLimit.Window
	if cfg.RateLimit.RedisURL == "" {
		return middleware.NewMemoryLimiter(requests, window), func() {}
	}

	client, err := middleware.NewRedisClient(context.Background(), cfg.RateLimit.RedisURL)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("redis unavailable, using in-memory rate limiting")
		return middleware.NewMemoryLimiter(requests, window), func() {}
	}
	logger.Log.Info().Msg("Rate limiting through redis")
	return middleware.NewRedisLimiter(client, requests, window), func() { client.Close() }
}
