/**
 * @description
 * This is the main entry point for the wallet backend. It is responsible
 * for initializing all components of the service: configuration, database
 * connection, the relayer client, the message broker producer/consumer,
 * the repository, the directory service and relay orchestrator, and the
 * HTTP server. It wires everything together and starts the service.
 *
 * @dependencies
 * - log, net/http: Standard Go libraries for logging and HTTP serving.
 * - github.com/jackc/pgx/v5: PostgreSQL driver.
 * - github.com/redis/go-redis/v9: Rate-limiter backend.
 * - internal/api, internal/app, internal/config, internal/store.
 * - pkg/rabbitmq, pkg/relayerclient.
 */

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/hernan-erasmo/stackup/internal/api"
	"github.com/hernan-erasmo/stackup/internal/app"
	"github.com/hernan-erasmo/stackup/internal/config"
	"github.com/hernan-erasmo/stackup/internal/store"
	"github.com/hernan-erasmo/stackup/pkg/rabbitmq"
	"github.com/hernan-erasmo/stackup/pkg/relayerclient"
)

func main() {
	// Load application configuration from environment variables.
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"config load failed\" err=%v", err)
	}
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		log.Fatalf("level=fatal component=bootstrap msg=\"jwt secret must be configured\" env=JWT_SECRET")
	}

	log.Printf("level=info component=bootstrap msg=\"starting wallet backend\" port=%s chain_id=%d", cfg.ServerPort, cfg.ChainID)

	// Establish a connection pool to the PostgreSQL database.
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database url parse failed\" err=%v", err)
	}
	poolConfig.MaxConns = 50
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute
	// Disable prepared statement caching to prevent conflicts
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	dbpool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database connection failed\" err=%v", err)
	}
	defer dbpool.Close()
	log.Println("level=info component=bootstrap msg=\"database connected\"")

	// Initialize the RabbitMQ producer for relay status events. The
	// service stays up without the broker; status channels then appear
	// indefinitely pending to clients.
	var producer rabbitmq.Publisher
	eventProducer, err := rabbitmq.NewEventProducer(cfg.RabbitMQURL)
	if err != nil {
		log.Printf("level=warn component=bootstrap msg=\"rabbitmq producer unavailable; using fallback\" err=%v", err)
		producer = &rabbitmq.ProducerFallback{}
	} else {
		defer eventProducer.Close()
		producer = eventProducer
		log.Println("level=info component=bootstrap msg=\"rabbitmq producer connected\"")
	}

	// Initialize the client for the bundler/relayer API.
	relayer := relayerclient.NewClient(cfg.RelayerAPIBaseURL, cfg.RelayerAPIKey)

	// Optional Redis client backing the recovery rate limiter.
	var redisClient *redis.Client
	if cfg.RecoverConfirmRateLimit > 0 {
		if strings.TrimSpace(cfg.RedisURL) == "" {
			log.Println("level=warn component=bootstrap msg=\"redis url missing; recovery rate limiting disabled\" env=REDIS_URL")
		} else {
			redisOptions, parseErr := redis.ParseURL(cfg.RedisURL)
			if parseErr != nil {
				log.Printf("level=warn component=bootstrap msg=\"redis url parse failed; recovery rate limiting disabled\" err=%v", parseErr)
			} else {
				redisClient = redis.NewClient(redisOptions)
				pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancelPing()
				if pingErr := redisClient.Ping(pingCtx).Err(); pingErr != nil {
					log.Printf("level=warn component=bootstrap msg=\"redis ping failed; recovery rate limiting disabled\" err=%v", pingErr)
					redisClient.Close()
					redisClient = nil
				} else {
					defer redisClient.Close()
					log.Println("level=info component=bootstrap msg=\"redis connected\"")
				}
			}
		}
	}

	// Initialize the data access layer, the directory service, and the
	// relay orchestrator.
	repository := store.NewPostgresRepository(dbpool)
	directoryService := app.NewService(repository)

	orchestrator := app.NewRelayOrchestrator(repository, relayer, producer, cfg.ChainID)
	if redisClient != nil {
		orchestrator.SetRecoveryRateLimiter(
			app.NewRedisRecoveryRateLimiter(redisClient, cfg.RedisRateLimitPrefix),
			cfg.RecoverConfirmRateLimit,
			time.Duration(cfg.RecoverConfirmRateWindowSecs)*time.Second,
		)
	}

	// Wire the status hub behind a RabbitMQ consumer bound to the relay
	// status routing keys. Without the broker, the long-poll endpoint
	// reports channels as still pending.
	hub := app.NewStatusHub()
	statusConsumer := app.NewRelayStatusConsumer(hub)

	rabbitConsumer, err := rabbitmq.NewConsumer(cfg.RabbitMQURL)
	if err != nil {
		log.Printf("level=warn component=bootstrap msg=\"rabbitmq consumer unavailable; status delivery disabled\" err=%v", err)
	} else {
		defer rabbitConsumer.Close()
		bindings := map[string]func([]byte) bool{
			app.RoutingKeyRelaySuccess: statusConsumer.HandleMessage,
			app.RoutingKeyRelayFailed:  statusConsumer.HandleMessage,
		}
		if err := rabbitConsumer.ConsumeWithBindings(app.RelayEventsExchange, cfg.RelayStatusQueue, bindings); err != nil {
			log.Fatalf("level=fatal component=bootstrap msg=\"relay status consumer start failed\" err=%v", err)
		}
		log.Println("level=info component=bootstrap msg=\"relay status consumer started\"")
	}

	// Optional channel-TTL sweeper.
	sweeper := app.StartChannelSweeper(orchestrator, time.Duration(cfg.RelayChannelTTLMinutes)*time.Minute)
	if sweeper != nil {
		defer sweeper.Stop()
	}

	// Initialize the API handlers and router.
	handlers := api.NewWalletHandlers(directoryService, orchestrator, hub)
	router := api.WalletRoutes(handlers, cfg.JWTSecret)

	serverAddr := fmt.Sprintf(":%s", cfg.ServerPort)
	log.Printf("level=info component=http msg=\"server listening\" addr=%s", serverAddr)

	server := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("level=fatal component=http msg=\"server stopped unexpectedly\" err=%v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Println("level=info component=http msg=\"shutdown started\"")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("level=error component=http msg=\"shutdown failed\" err=%v", err)
	}

	log.Println("level=info component=http msg=\"shutdown complete\"")
}
