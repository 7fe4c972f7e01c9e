package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/RickCreator87/AIGateway-Ollama-fc3eadfe/internal/auth"
	"github.com/RickCreator87/AIGateway-Ollama-fc3eadfe/internal/config"
	"github.com/RickCreator87/AIGateway-Ollama-fc3eadfe/internal/gateway"
	"github.com/RickCreator87/AIGateway-Ollama-fc3eadfe/internal/ollama"
	"github.com/RickCreator87/AIGateway-Ollama-fc3eadfe/internal/policy"
	"github.com/RickCreator87/AIGateway-Ollama-fc3eadfe/internal/ratelimit"
	"github.com/RickCreator87/AIGateway-Ollama-fc3eadfe/internal/server"
	"github.com/RickCreator87/AIGateway-Ollama-fc3eadfe/internal/telemetry"
	"github.com/RickCreator87/AIGateway-Ollama-fc3eadfe/internal/tokens"
	"github.com/RickCreator87/AIGateway-Ollama-fc3eadfe/internal/usage"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	shutdown, err := telemetry.InitTracer("ollama-gateway", logger)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
		}
	}()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	store := policy.NewMemoryStore(policy.FromConfig(cfg.Policies))
	authenticator := auth.New(store)
	backend := ollama.NewClient(cfg.Ollama.BaseURL)
	estimator := tokens.NewEstimator()

	// A configured Redis URL switches the limiter and meter to the shared
	// store so multiple gateway processes see one budget and one set of
	// counters.
	var limiter ratelimit.Limiter = ratelimit.NewMemory()
	var meter usage.Meter = usage.NewMemory()
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			log.Fatalf("Failed to parse Redis URL: %v", err)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(context.Background()).Err(); err != nil {
			log.Fatalf("Redis ping failed: %v", err)
		}
		limiter = ratelimit.NewRedis(client)
		meter = usage.NewRedis(client)
		logger.Info("using Redis-backed rate limiter and usage meter")
	}

	handler := gateway.NewHandler(authenticator, limiter, meter, backend, estimator, logger, cfg.Admin.Key)

	srv := server.New(cfg.Server.Port, logger)
	handler.Routes(srv.Router)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	case <-sigCh:
		logger.Info("shutdown signal received, stopping gateway")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("gateway shutdown complete")
}
