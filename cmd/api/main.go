// cmd/api/main.go
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-checkout/internal/config"
	"github.com/your-org/storefront-checkout/internal/domain/cart"
	"github.com/your-org/storefront-checkout/internal/domain/order"
	"github.com/your-org/storefront-checkout/internal/domain/payment"
	"github.com/your-org/storefront-checkout/internal/domain/tabs"
	"github.com/your-org/storefront-checkout/internal/infrastructure/backend"
	"github.com/your-org/storefront-checkout/internal/infrastructure/database/redis"
	"github.com/your-org/storefront-checkout/internal/interfaces/http"
	"github.com/your-org/storefront-checkout/internal/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLog := logger.New(cfg.Logging)
	appLog.WithFields(logrus.Fields{
		"name":        cfg.App.Name,
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
	}).Info("Starting application")

	// Connect to Redis
	redisClient, err := redis.NewConnection(cfg, appLog)
	if err != nil {
		appLog.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer redisClient.Close()

	if err := redisClient.Health(context.Background()); err != nil {
		appLog.WithError(err).Fatal("Redis health check failed")
	}

	api := backend.NewClient(cfg.Backend, appLog)

	pricing := cfg.DeliveryConfig()
	if cfg.Shipping.FromBackend {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Backend.Timeout)
		settings, err := api.GetShippingSettings(ctx)
		cancel()
		if err != nil {
			appLog.WithError(err).Warn("Using configured shipping fees, backend settings unavailable")
		} else {
			pricing = settings
			appLog.WithFields(logrus.Fields{
				"free_shipping_threshold": pricing.FreeShippingThreshold,
				"standard_cost":           pricing.StandardCost,
				"express_cost":            pricing.ExpressCost,
			}).Info("Loaded shipping settings from backend")
		}
	}

	registry := tabs.NewRegistry(tabs.Dependencies{
		Storage: func(profileID string) cart.SharedStorage {
			return redis.NewCartStorage(redisClient, redis.Namespace(cfg.Cart.KeyPrefix, profileID), cfg.Cart.TTL, appLog)
		},
		Validator:  api,
		Submitter:  order.NewSubmitter(api, appLog),
		Payments:   payment.NewPaymeService(api, appLog),
		Pricing:    pricing,
		StorageKey: cfg.Cart.StorageKey,
	}, appLog)
	defer registry.CloseAll()

	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	defer stopJanitor()
	go registry.RunJanitor(janitorCtx, time.Minute, cfg.Cart.TabIdleTimeout)

	appLog.Info("All systems operational")

	// Create and start HTTP server
	server := http.NewServer(cfg, redisClient, registry, appLog)

	// Start server in a goroutine
	go func() {
		if err := server.Start(); err != nil {
			appLog.WithError(err).Fatal("Failed to start HTTP server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLog.Info("Shutting down gracefully")

	// Give server 30 seconds to shutdown gracefully
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Stop(ctx); err != nil {
		appLog.WithError(err).Error("Failed to shutdown HTTP server gracefully")
	}

	appLog.Info("Server shutdown completed")
}
