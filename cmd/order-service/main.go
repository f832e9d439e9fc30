package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/clovelane/order-service/internal/config"
	"github.com/clovelane/order-service/internal/db"
	"github.com/clovelane/order-service/internal/handler"
	"github.com/clovelane/order-service/internal/notify"
	"github.com/clovelane/order-service/internal/order"
	"github.com/clovelane/order-service/internal/queue"
	"github.com/clovelane/order-service/internal/transport"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	log.Logger = log.With().Str("service", "order-service").Logger()

	log.Info().Msg("Order service starting...")

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var wg sync.WaitGroup

	postgres, err := db.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer postgres.Close()

	// The schema normally already exists; a failed bootstrap is logged
	// and startup continues.
	if err := postgres.ApplyMigrations(cfg); err != nil {
		log.Warn().Err(err).Msg("Failed to apply migrations, continuing")
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redisClient.Close()

	orderRepo := order.NewRepository(postgres.Pool)
	jobRepo := queue.NewRepository(postgres.Pool)

	emailClient := notify.NewEmailClient(cfg.Email.APIURL, cfg.Email.APIKey, cfg.Email.From)
	smsClient := notify.NewSMSClient(cfg.SMS.APIURL, cfg.SMS.APIKey, cfg.SMS.From)
	history := notify.NewHistoryCache(redisClient)
	dispatcher := notify.NewDispatcher(emailClient, smsClient, history, cfg.Notify.BCC, cfg.Notify.BaseURL)

	queueService := queue.NewService(jobRepo, orderRepo, dispatcher)
	orderService := order.NewService(orderRepo, dispatcher, queueService, cfg.Notify.OrderPrefix)

	sweeper := queue.NewSweeper(queueService, queue.SweepInterval)
	sweeper.Start(ctx, &wg)

	orderHandler := handler.NewOrderHandler(orderService, history)
	router := transport.NewRouter(orderHandler)

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.App.Port).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Info().Msg("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Shutdown failed")
	}

	sweeper.Stop()
	cancel()
	wg.Wait()

	log.Info().Msg("Server stopped")
}
