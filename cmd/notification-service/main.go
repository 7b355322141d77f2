package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/medistock/medistock-backend/internal/notification"
	"github.com/medistock/medistock-backend/internal/notification/consumers"
	"github.com/medistock/medistock-backend/pkg/config"
	"github.com/medistock/medistock-backend/pkg/httputil"
	"github.com/medistock/medistock-backend/pkg/logger"
	"github.com/medistock/medistock-backend/pkg/messaging"
)

func main() {
	cfg, err := config.LoadWithValidation("notification-service")
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New("notification-service", cfg.Server.Environment)
	log.Info().Msg("starting Notification Service")

	rmq, err := messaging.New(&cfg.RabbitMQ, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
	}
	defer rmq.Close()

	email := notification.NewMockEmailSender(log)
	whatsapp := notification.NewMockWhatsAppSender(log)

	billConsumer, err := consumers.NewBillEventConsumer(rmq, email, whatsapp, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create bill event consumer")
	}
	alertConsumer, err := consumers.NewAlertEventConsumer(rmq, email, &cfg.Pharmacy, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create alert event consumer")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := billConsumer.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start bill event consumer")
	}
	if err := alertConsumer.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start alert event consumer")
	}

	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]interface{}{
			"status":   "healthy",
			"service":  "notification-service",
			"rabbitmq": rmq.Health(),
		})
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("health endpoint listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("stopped")
}
