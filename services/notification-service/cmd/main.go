package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/taskhive/task-platform/services/notification-service/internal/config"
	"github.com/taskhive/task-platform/services/notification-service/internal/relay"
	"github.com/taskhive/task-platform/shared/contracts"
	"github.com/taskhive/task-platform/shared/logging"
	"github.com/taskhive/task-platform/shared/messaging"
	"github.com/taskhive/task-platform/shared/metrics"
	"github.com/taskhive/task-platform/shared/monitoring"
	"github.com/taskhive/task-platform/shared/token"
)

func main() {
	cfg := config.Load()
	logger := logging.NewLogger(&cfg.Logging)

	if enabled, err := monitoring.InitSentry(cfg.Sentry); err != nil {
		logger.WithError(err).Warn("sentry init failed")
	} else if enabled {
		defer monitoring.Flush()
	}

	m := metrics.NewMetrics("taskhive", "notification_service")

	transport, err := messaging.NewRabbitMQ(cfg.RabbitMQ, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to rabbitmq")
	}
	defer transport.Close()

	r := relay.NewRelay(token.NewVerifier([]byte(cfg.JWTSecret)), logger, m)

	dispatcher := messaging.NewDispatcher(transport, contracts.NotificationQueue, logger, m)
	relay.RegisterHandlers(dispatcher, r, transport)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mux := http.NewServeMux()
	mux.Handle("/notifications", r)
	server := &http.Server{Addr: cfg.ListenAddr, Handler: mux}

	go func() {
		logger.Infof("notification-service websocket listening on %s", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("websocket server stopped")
		}
	}()

	go func() {
		http.Handle("/metrics", metrics.Handler())
		if err := http.ListenAndServe(cfg.MetricsAddr, nil); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("metrics server stopped")
		}
	}()

	go func() {
		<-ctx.Done()
		server.Shutdown(context.Background())
	}()

	logger.Infof("notification-service consuming %s", contracts.NotificationQueue)
	if err := dispatcher.Run(ctx); err != nil && ctx.Err() == nil {
		logger.WithError(err).Fatal("dispatcher stopped")
	}
	logger.Info("notification-service shut down")
}
