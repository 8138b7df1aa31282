package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/flicky/storefront-api/internal/ai"
	"github.com/flicky/storefront-api/internal/config"
	"github.com/flicky/storefront-api/internal/handler"
	"github.com/flicky/storefront-api/internal/repository"
	"github.com/flicky/storefront-api/internal/service"
	"github.com/flicky/storefront-api/internal/worker"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the order worker",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(envFile)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg, newLogger())
	},
}

func serve(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	// PostgreSQL
	dbPool, err := openPostgres(ctx, cfg.DB)
	if err != nil {
		return err
	}
	defer dbPool.Close()
	log.Info("connected to PostgreSQL")

	// Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("connect to Redis: %w", err)
	}
	log.Info("connected to Redis")

	// RabbitMQ is optional: without it orders are still placed, only the
	// order.placed event is skipped.
	var (
		amqpConn  *amqp.Connection
		publisher service.OrderPublisher
		pubCh     *amqp.Channel
		consumeCh *amqp.Channel
	)
	if conn, err := amqp.Dial(cfg.RabbitMQ.URL); err != nil {
		log.Warn("RabbitMQ unavailable, order events disabled", "error", err)
	} else {
		amqpConn = conn
		defer amqpConn.Close()

		if consumeCh, err = amqpConn.Channel(); err != nil {
			return fmt.Errorf("open RabbitMQ channel: %w", err)
		}
		defer consumeCh.Close()
		if err := worker.SetupRabbitMQ(consumeCh); err != nil {
			return fmt.Errorf("setup RabbitMQ: %w", err)
		}
		if pubCh, err = amqpConn.Channel(); err != nil {
			return fmt.Errorf("open RabbitMQ channel: %w", err)
		}
		defer pubCh.Close()
		publisher = worker.NewPublisher(pubCh)
		log.Info("connected to RabbitMQ")
	}

	// Description generator
	var textModel ai.TextModel
	gemini, err := ai.NewGeminiModel(ctx, cfg.AI.APIKey, cfg.AI.Model)
	if err != nil {
		log.Warn("Gemini unavailable, descriptions disabled", "error", err)
	} else if gemini != nil {
		defer gemini.Close()
		textModel = gemini
	}

	// Repositories
	profileRepo := repository.NewProfileRepository(dbPool)
	storeRepo := repository.NewStoreRepository(dbPool)
	productRepo := repository.NewProductRepository(dbPool)
	orderRepo := repository.NewOrderRepository(dbPool)
	cartRepo := repository.NewCartRepository(redisClient, cfg.Session.TTL)
	checkoutRepo := repository.NewCheckoutRepository(redisClient, cfg.Session.TTL, cfg.Session.LockTTL)
	denylist := repository.NewTokenDenylist(redisClient)

	// Services
	authSvc := service.NewAuthService(profileRepo, denylist, cfg.JWT.Secret, cfg.JWT.Expiration)
	catalogSvc := service.NewCatalogService(storeRepo, productRepo, redisClient)
	adminSvc := service.NewAdminService(catalogSvc, storeRepo, profileRepo, ai.NewDescriber(textModel, log))
	cartSvc := service.NewCartService(cartRepo, productRepo)
	orderSvc := service.NewOrderService(orderRepo, redisClient)
	checkoutSvc := service.NewCheckoutService(checkoutRepo, cartRepo, orderRepo, orderSvc, publisher, log)
	checkoutSvc.SetPersistTimeout(cfg.Session.LockTTL / 2)

	router := handler.NewRouter(handler.RouterConfig{
		Log:           log,
		JWTSecret:     cfg.JWT.Secret,
		Denylist:      denylist,
		SessionCookie: cfg.Session.CookieName,
		SessionTTL:    cfg.Session.TTL,
		Auth:          handler.NewAuthHandler(authSvc),
		Catalog:       handler.NewCatalogHandler(catalogSvc),
		Cart:          handler.NewCartHandler(cartSvc),
		Checkout:      handler.NewCheckoutHandler(checkoutSvc),
		Orders:        handler.NewOrderHandler(orderSvc),
		Admin:         handler.NewAdminHandler(adminSvc),
		Health:        handler.NewHealthHandler(dbPool, redisClient, amqpConn),
	})

	// Worker
	var orderWorker *worker.OrderWorker
	if consumeCh != nil {
		orderWorker = worker.NewOrderWorker(consumeCh, orderSvc, redisClient, log)
		if err := orderWorker.Start(ctx); err != nil {
			return fmt.Errorf("start order worker: %w", err)
		}
		defer orderWorker.Stop()
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting HTTP server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", "error", err)
	}
	log.Info("server stopped")
	return nil
}
