package main

import (
	"context"
	"encoding/base64"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/voltgrid/merchant-gateway/internal/config"
	"github.com/voltgrid/merchant-gateway/internal/server"
	"github.com/voltgrid/merchant-gateway/internal/telemetry"
	"github.com/voltgrid/merchant-gateway/internal/upstream"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	log.Println("Starting Merchant Gateway...")

	ctx := context.Background()

	// Initialize OpenTelemetry (OTLP collectors want Basic auth with
	// instanceId:apiToken base64 encoded)
	authString := cfg.OTEL.InstanceID + ":" + cfg.OTEL.Token
	authEncoded := base64.StdEncoding.EncodeToString([]byte(authString))

	otelProvider, err := telemetry.Initialize(ctx, telemetry.Config{
		ServiceName:    cfg.OTEL.ServiceName,
		ServiceVersion: cfg.OTEL.ServiceVersion,
		Environment:    cfg.OTEL.Environment,
		OTLPEndpoint:   cfg.OTEL.Endpoint,
		OTLPHeaders: map[string]string{
			"Authorization": "Basic " + authEncoded,
		},
		Enabled: cfg.OTEL.Enabled,
	})
	if err != nil {
		log.Printf("Warning: Failed to initialize OpenTelemetry: %v", err)
	}
	if otelProvider != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			otelProvider.Shutdown(shutdownCtx)
		}()
	}

	// Connect to Redis when the idempotency cache is configured
	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       0,
		})
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		log.Println("Redis connected")
	}

	// Build the backend forwarders and probe them once at startup. An
	// unreachable backend is logged, not fatal; it may come up later.
	registry := upstream.NewRegistry(cfg.Services)

	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	for name, probeErr := range registry.Probe(probeCtx) {
		if probeErr != nil {
			log.Printf("Warning: %s unreachable: %v", name, probeErr)
			continue
		}
		log.Printf("%s reachable", name)
	}
	cancel()

	app := server.NewApp(server.AppDependencies{
		Config:      cfg,
		Upstreams:   registry,
		RedisClient: redisClient,
	})

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		log.Println("Shutting down gracefully...")
		app.Shutdown()
	}()

	log.Printf("Server starting on port %s", cfg.Server.Port)
	if err := app.Listen(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
