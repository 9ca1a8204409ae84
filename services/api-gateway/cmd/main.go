package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/taskhive/task-platform/services/api-gateway/internal/config"
	"github.com/taskhive/task-platform/services/api-gateway/internal/handlers"
	"github.com/taskhive/task-platform/services/api-gateway/internal/health"
	"github.com/taskhive/task-platform/services/api-gateway/internal/middleware"
	"github.com/taskhive/task-platform/services/api-gateway/internal/proxy"
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

	m := metrics.NewMetrics("taskhive", "api_gateway")

	transport, err := messaging.NewRabbitMQ(cfg.RabbitMQ, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to rabbitmq")
	}
	defer transport.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	authClient := messaging.NewClient(transport, messaging.ClientConfig{
		Queue:          contracts.AuthQueue,
		DefaultTimeout: cfg.CallTimeout,
	}, logger, m)
	taskClient := messaging.NewClient(transport, messaging.ClientConfig{
		Queue:          contracts.TaskQueue,
		DefaultTimeout: cfg.CallTimeout,
	}, logger, m)
	notificationClient := messaging.NewClient(transport, messaging.ClientConfig{
		Queue:          contracts.NotificationQueue,
		DefaultTimeout: cfg.CallTimeout,
	}, logger, m)

	for _, client := range []*messaging.Client{authClient, taskClient, notificationClient} {
		if err := client.Start(ctx); err != nil {
			logger.WithError(err).Fatal("failed to start messaging client")
		}
	}

	gateway := handlers.NewGateway(authClient, taskClient)
	verifier := token.NewVerifier([]byte(cfg.JWTSecret))

	aggregator := health.NewAggregator([]health.Dependency{
		{Name: "notification-service", Caller: notificationClient},
		{Name: "auth-service", Caller: authClient},
		{Name: "task-service", Caller: taskClient},
	}, cfg.HealthTimeout, transport.IsConnected)

	wsProxy, err := proxy.NewNotificationProxy(cfg.NotificationWSURL, logger)
	if err != nil {
		logger.WithError(err).Fatal("invalid notification service url")
	}

	router := chi.NewRouter()
	router.Use(middleware.Recover(logger, m))
	router.Use(middleware.Instrument(logger, m))
	router.Use(middleware.RateLimit(cfg.RateLimit, cfg.RateBurst))

	router.Route("/api", func(api chi.Router) {
		api.Post("/auth/login", gateway.Login)
		api.Post("/auth/register", gateway.Register)
		api.Post("/auth/refresh", gateway.RefreshToken)

		api.Group(func(guarded chi.Router) {
			guarded.Use(middleware.Authenticate(verifier))

			guarded.Get("/auth/users", gateway.ListUsers)
			guarded.Put("/auth/users", gateway.UpdateUser)

			guarded.Post("/task", gateway.CreateTask)
			guarded.Put("/task", gateway.UpdateTask)
			guarded.Get("/task", gateway.ListTasks)
			guarded.Get("/task/{id}", gateway.GetTask)
			guarded.Post("/task/comment", gateway.CreateComment)
			guarded.Get("/task/comment/{taskId}", gateway.ListComments)

			guarded.Get("/health-check", aggregator.Handler())
		})
	})

	router.Handle("/notifications", wsProxy)
	router.Handle("/metrics", metrics.Handler())

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	logger.Infof("api-gateway listening on %s", cfg.ListenAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.WithError(err).Fatal("http server stopped")
	}
	logger.Info("api-gateway shut down")
}
