package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/taskhive/task-platform/services/auth-service/internal/config"
	"github.com/taskhive/task-platform/services/auth-service/internal/infrastructure/repository"
	"github.com/taskhive/task-platform/services/auth-service/internal/infrastructure/rpc"
	"github.com/taskhive/task-platform/services/auth-service/internal/service"
	"github.com/taskhive/task-platform/services/auth-service/migrations"
	"github.com/taskhive/task-platform/shared/contracts"
	"github.com/taskhive/task-platform/shared/logging"
	"github.com/taskhive/task-platform/shared/messaging"
	"github.com/taskhive/task-platform/shared/metrics"
	"github.com/taskhive/task-platform/shared/migration"
	"github.com/taskhive/task-platform/shared/monitoring"
	"github.com/taskhive/task-platform/shared/postgres"
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

	m := metrics.NewMetrics("taskhive", "auth_service")

	if err := migration.Run(migration.Config{
		DatabaseURL: postgres.URL(cfg.Postgres),
		Service:     "auth-service",
		Migrations:  migrations.FS,
		Dir:         ".",
	}, logger); err != nil {
		logger.WithError(err).Fatal("failed to run migrations")
	}

	pg, err := postgres.NewPostgres(cfg.Postgres)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to postgres")
	}
	defer pg.Close()

	transport, err := messaging.NewRabbitMQ(cfg.RabbitMQ, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to rabbitmq")
	}
	defer transport.Close()

	users := repository.NewUserRepository(pg.GetClient(), m)
	svc := service.NewAuthService(
		users,
		token.NewSigner([]byte(cfg.JWTSecret), cfg.AccessTokenTTL),
		token.NewSigner([]byte(cfg.JWTRefreshSecret), cfg.RefreshTokenTTL),
		token.NewVerifier([]byte(cfg.JWTRefreshSecret)),
		logger,
	)

	dispatcher := messaging.NewDispatcher(transport, contracts.AuthQueue, logger, m)
	rpc.Register(dispatcher, svc, pg.GetClient(), transport)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		http.Handle("/metrics", metrics.Handler())
		if err := http.ListenAndServe(cfg.MetricsAddr, nil); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("metrics server stopped")
		}
	}()

	logger.Infof("auth-service consuming %s", contracts.AuthQueue)
	if err := dispatcher.Run(ctx); err != nil && ctx.Err() == nil {
		logger.WithError(err).Fatal("dispatcher stopped")
	}
	logger.Info("auth-service shut down")
}
