package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/taskhive/task-platform/services/task-service/internal/config"
	"github.com/taskhive/task-platform/services/task-service/internal/infrastructure/cache"
	"github.com/taskhive/task-platform/services/task-service/internal/infrastructure/repository"
	"github.com/taskhive/task-platform/services/task-service/internal/infrastructure/rpc"
	"github.com/taskhive/task-platform/services/task-service/internal/service"
	"github.com/taskhive/task-platform/services/task-service/migrations"
	"github.com/taskhive/task-platform/shared/contracts"
	"github.com/taskhive/task-platform/shared/logging"
	"github.com/taskhive/task-platform/shared/messaging"
	"github.com/taskhive/task-platform/shared/metrics"
	"github.com/taskhive/task-platform/shared/migration"
	"github.com/taskhive/task-platform/shared/monitoring"
	"github.com/taskhive/task-platform/shared/postgres"
	"github.com/taskhive/task-platform/shared/redis"
)

func main() {
	cfg := config.Load()
	logger := logging.NewLogger(&cfg.Logging)

	if enabled, err := monitoring.InitSentry(cfg.Sentry); err != nil {
		logger.WithError(err).Warn("sentry init failed")
	} else if enabled {
		defer monitoring.Flush()
	}

	m := metrics.NewMetrics("taskhive", "task_service")

	if err := migration.Run(migration.Config{
		DatabaseURL: postgres.URL(cfg.Postgres),
		Service:     "task-service",
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

	rds, err := redis.NewRedis(cfg.Redis)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to redis")
	}
	defer rds.Close()

	transport, err := messaging.NewRabbitMQ(cfg.RabbitMQ, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to rabbitmq")
	}
	defer transport.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	taskQueue := messaging.NewClient(transport, messaging.ClientConfig{Queue: contracts.TaskQueue}, logger, m)
	notifier := messaging.NewClient(transport, messaging.ClientConfig{Queue: contracts.NotificationQueue}, logger, m)

	db := pg.GetClient()
	svc := service.NewTaskService(service.Options{
		Tasks:     repository.NewTaskRepository(db, m),
		Logs:      repository.NewLogRepository(db, m),
		Comments:  repository.NewCommentRepository(db, m),
		Cache:     cache.NewTaskCache(rds, cfg.CacheTTL, logger, m),
		TaskQueue: taskQueue,
		Notifier:  notifier,
		Logger:    logger,
	})

	dispatcher := messaging.NewDispatcher(transport, contracts.TaskQueue, logger, m)
	rpc.Register(dispatcher, svc, db, rds, transport)

	go func() {
		http.Handle("/metrics", metrics.Handler())
		if err := http.ListenAndServe(cfg.MetricsAddr, nil); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("metrics server stopped")
		}
	}()

	logger.Infof("task-service consuming %s", contracts.TaskQueue)
	if err := dispatcher.Run(ctx); err != nil && ctx.Err() == nil {
		logger.WithError(err).Fatal("dispatcher stopped")
	}
	logger.Info("task-service shut down")
}
