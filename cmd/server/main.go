// Package main is the settlement service entry point. It wires the
// database, the keyed store, the payment gateway, the event publisher and
// all settlement services, then serves the API and the background retry
// worker until shutdown.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bazaar/internal/config"
	"bazaar/internal/events"
	"bazaar/internal/gateway"
	"bazaar/internal/metrics"
	"bazaar/internal/repositories"
	"bazaar/internal/repositories/cache"
	"bazaar/internal/routes"
	"bazaar/internal/services/cod"
	"bazaar/internal/services/payout"
	"bazaar/internal/services/retry"
	"bazaar/internal/services/vendor"
	"bazaar/internal/services/webhook"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	config.LoadEnv()
	cfg := config.LoadSettlement()

	db, err := repositories.InitDB()
	if err != nil {
		log.Fatalf("database init failed: %v", err)
	}

	store := newStore()
	defer store.Close()

	gw := newGateway()
	publisher := newPublisher()
	defer publisher.Close()

	collector := metrics.NewPrometheusCollector(prometheus.DefaultRegisterer)

	// Repositories
	payoutRepo := repositories.NewPayoutRepository(db)
	vendorRepo := repositories.NewVendorRepository(db)
	remittanceRepo := repositories.NewRemittanceRepository(db)
	riskRepo := repositories.NewRiskRepository(db)
	alertRepo := repositories.NewAlertRepository(db)

	// Services. Orchestrator and scheduler reference each other, so they
	// are linked after construction.
	vendorService := vendor.NewService(vendorRepo)
	payoutService := payout.NewService(payoutRepo, vendorRepo, store, gw, publisher, collector, cfg)
	scheduler := retry.NewScheduler(store, payoutRepo, alertRepo, publisher, collector, cfg.RetryScanInterval)
	payoutService.SetScheduler(scheduler)
	scheduler.SetInitiator(payoutService)

	riskScorer := cod.NewRiskScorer(riskRepo, store, cfg)
	codService := cod.NewService(remittanceRepo, store, riskScorer, payoutService, collector, cfg)
	webhookService := webhook.NewService(gw, payoutService, store, alertRepo, collector, cfg.WebhookRetention)

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	go scheduler.Start(workerCtx)
	go serveMetrics()

	app := fiber.New(fiber.Config{
		AppName:      "bazaar-settlement",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	})
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use("/api", limiter.New(limiter.Config{
		Max:        config.GetIntEnv("API_RATE_LIMIT", 300),
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests. Please try again later.",
			})
		},
	}))

	routes.SetupRoutes(app, routes.Dependencies{
		DB:            db,
		Store:         store,
		Alerts:        alertRepo,
		Vendors:       vendorService,
		Payouts:       payoutService,
		COD:           codService,
		Risk:          riskScorer,
		Webhooks:      webhookService,
		ServiceSecret: config.GetEnv("SERVICE_TOKEN_SECRET", "bazaar-dev-secret"),
	})

	go func() {
		if err := app.Listen(":" + config.GetEnv("PORT", "3000")); err != nil {
			log.Fatalf("server stopped: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down")
	stopWorkers()
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Printf("server shutdown: %v", err)
	}
}

// newStore selects the keyed store backend. Redis in production; the
// in-memory store exists for local runs without infrastructure.
func newStore() cache.Store {
	if config.GetEnv("STORE_BACKEND", "redis") == "memory" {
		log.Println("using in-memory keyed store")
		return cache.NewMemoryStore()
	}
	client := cache.NewRedisClient(&cache.RedisConfig{
		Host:     config.GetEnv("REDIS_HOST", "localhost"),
		Port:     config.GetEnv("REDIS_PORT", "6379"),
		Password: config.GetEnv("REDIS_PASSWORD", ""),
		DB:       config.GetIntEnv("REDIS_DB", 0),
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatalf("redis unreachable: %v", err)
	}
	return cache.NewRedisStore(client)
}

// newGateway selects the payment gateway client.
func newGateway() gateway.Gateway {
	if config.GetEnv("GATEWAY_BACKEND", "stripe") == "memory" {
		log.Println("using in-memory payment gateway")
		return gateway.NewMemoryGateway()
	}
	secret := config.GetEnv("STRIPE_SECRET_KEY", "")
	if secret == "" {
		log.Fatal("STRIPE_SECRET_KEY is required with the stripe gateway backend")
	}
	return gateway.NewStripeGateway(secret, config.GetEnv("STRIPE_WEBHOOK_SECRET", ""))
}

// newPublisher wires Kafka when brokers are configured, otherwise events
// are dropped.
func newPublisher() events.Publisher {
	brokers := config.GetListEnv("KAFKA_BROKERS")
	if len(brokers) == 0 {
		log.Println("no kafka brokers configured, settlement events disabled")
		return events.NoopPublisher{}
	}
	return events.NewKafkaPublisher(brokers)
}

func serveMetrics() {
	addr := ":" + config.GetEnv("METRICS_PORT", "9091")
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Printf("metrics server stopped: %v", err)
	}
}
