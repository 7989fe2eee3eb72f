package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tm-acme-shop/acme-shop-bakery-orders/internal/events"
	"github.com/tm-acme-shop/acme-shop-bakery-orders/internal/handlers"
	"github.com/tm-acme-shop/acme-shop-bakery-orders/internal/logging"
	"github.com/tm-acme-shop/acme-shop-bakery-orders/internal/repository"
	"github.com/tm-acme-shop/acme-shop-bakery-orders/internal/server"
	"github.com/tm-acme-shop/acme-shop-bakery-orders/internal/service"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server (default)",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := logging.NewLogger("bakery-orders")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			logger.Error("Failed to close store", logging.Fields{"error": err.Error()})
		}
	}()

	var orderCache repository.OrderCache
	if cfg.Features.EnableOrderCaching {
		cache := repository.NewRedisOrderCache(cfg.Redis)
		defer cache.Close()
		if err := cache.Ping(ctx); err != nil {
			logger.Warn("Redis unreachable, serving from store until it recovers", logging.Fields{"error": err.Error()})
		}
		orderCache = cache
	}

	var eventPublisher service.EventPublisher
	if cfg.Features.EnableOrderEvents {
		publisher := events.NewKafkaPublisher(cfg.Kafka)
		defer publisher.Close()
		eventPublisher = publisher
	}

	orderService := service.NewOrderService(store.Orders(), orderCache, eventPublisher, cfg.Orders)

	var accountService *service.AccountService
	if cfg.Features.EnableAccounts {
		accountService = service.NewAccountService(store.Accounts(), 0)
	}

	h := handlers.NewHandlers(orderService, accountService, store)
	srv := server.New(h, cfg)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Server starting", logging.Fields{
			"addr":                  cfg.Server.Addr(),
			"store":                 store.Driver(),
			"enable_accounts":       cfg.Features.EnableAccounts,
			"enable_order_caching":  cfg.Features.EnableOrderCaching,
			"enable_order_events":   cfg.Features.EnableOrderEvents,
			"enable_payment_events": cfg.Features.EnablePaymentEvents,
		})
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	var consumer *events.KafkaConsumer
	if cfg.Features.EnablePaymentEvents {
		consumer = events.NewKafkaConsumer(cfg.Kafka, orderService)
		go func() {
			if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Event consumer failed", logging.Fields{"error": err.Error()})
			}
		}()
	}

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		return fmt.Errorf("http server: %w", err)
	}

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if consumer != nil {
		if err := consumer.Stop(); err != nil {
			logger.Warn("Failed to close event consumer", logging.Fields{"error": err.Error()})
		}
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", logging.Fields{"error": err.Error()})
	}

	logger.Info("Server exited")
	return nil
}
