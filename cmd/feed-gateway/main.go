// Command feed-gateway runs the licensed access gateway in front of the
// X API. It exposes a single proxy endpoint plus health, readiness, and
// metrics endpoints.
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

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/feedkit/x-feed-gateway/pkg/gateway"
	"github.com/feedkit/x-feed-gateway/pkg/license"
	"github.com/feedkit/x-feed-gateway/pkg/logging"
	"github.com/feedkit/x-feed-gateway/pkg/ratelimit"
	"github.com/feedkit/x-feed-gateway/pkg/upstream"
)

func main() {
	// Configuration from environment
	port := getEnv("PORT", "8080")
	bearerToken := os.Getenv("X_BEARER_TOKEN")
	baseURL := getEnv("X_API_BASE_URL", upstream.DefaultBaseURL)
	licenseURL := os.Getenv("LICENSE_API_URL")
	redisURL := os.Getenv("REDIS_URL")

	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(getEnv("LOG_LEVEL", "info")),
		Pretty: os.Getenv("LOG_PRETTY") == "true",
		Output: os.Stderr,
	})

	if bearerToken == "" {
		logger.Fatal().Msg("X_BEARER_TOKEN is required")
	}
	if licenseURL == "" {
		logger.Fatal().Msg("LICENSE_API_URL is required")
	}

	// Redis is optional: without it, rate-limit window state stays
	// local to this replica.
	var redisClient *redis.Client
	if redisURL != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: redisURL})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Fatal().Err(err).Str("addr", redisURL).Msg("Failed to connect to Redis")
		}
		defer redisClient.Close()
		logger.Info().Str("addr", redisURL).Msg("Connected to Redis")
	}

	observer := ratelimit.NewObserver(redisClient, logging.NewLogger("ratelimit"))

	upstreamClient, err := upstream.New(upstream.Config{
		BaseURL:     baseURL,
		BearerToken: bearerToken,
		Observer:    observer,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create upstream client")
	}

	resolver, err := license.NewResolver(licenseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create license resolver")
	}

	handler, err := gateway.NewHandler(resolver, upstreamClient)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create gateway handler")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/ready", readyHandler(redisClient))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/api/feed", gateway.HTTPHandler(handler))

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 45 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", server.Addr).Str("upstream", baseURL).Msg("Starting feed gateway")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Server failed")
		}
	}()

	waitForShutdown(server, logger)
}

// waitForShutdown blocks until SIGINT/SIGTERM, then drains in-flight
// requests.
func waitForShutdown(server *http.Server, logger zerolog.Logger) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logger.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Graceful shutdown failed")
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

// readyHandler reports readiness. Redis is only checked when
// configured; the gateway itself is stateless.
func readyHandler(redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if redisClient != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := redisClient.Ping(ctx).Err(); err != nil {
				http.Error(w, fmt.Sprintf("redis unavailable: %v", err), http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK")
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
