package config

import (
	"time"

	"github.com/taskhive/task-platform/shared/env"
	"github.com/taskhive/task-platform/shared/logging"
	"github.com/taskhive/task-platform/shared/messaging"
	"github.com/taskhive/task-platform/shared/monitoring"
)

type Config struct {
	Environment string
	ListenAddr  string
	JWTSecret   string

	// NotificationWSURL is the notification service websocket endpoint
	// the gateway proxies /notifications to.
	NotificationWSURL string

	CallTimeout   time.Duration
	HealthTimeout time.Duration

	RateLimit int
	RateBurst int

	RabbitMQ messaging.RabbitMQConfig
	Logging  logging.Config
	Sentry   monitoring.SentryConfig
}

func Load() *Config {
	environment := env.GetString("ENVIRONMENT", "development")

	return &Config{
		Environment:       environment,
		ListenAddr:        env.GetString("LISTEN_ADDR", ":8080"),
		JWTSecret:         env.GetString("JWT_SECRET", "dev-secret"),
		NotificationWSURL: env.GetString("NOTIFICATION_WS_URL", "http://localhost:8081"),

		CallTimeout:   env.GetDuration("RPC_TIMEOUT", 10*time.Second),
		HealthTimeout: env.GetDuration("HEALTH_TIMEOUT", 3*time.Second),

		RateLimit: env.GetInt("RATE_LIMIT_RPS", 50),
		RateBurst: env.GetInt("RATE_LIMIT_BURST", 100),

		RabbitMQ: messaging.RabbitMQConfig{
			RabbitMQHost:     env.GetString("RABBITMQ_HOST", "localhost"),
			RabbitMQPort:     env.GetInt("RABBITMQ_PORT", 5672),
			RabbitMQUser:     env.GetString("RABBITMQ_USER", "guest"),
			RabbitMQPassword: env.GetString("RABBITMQ_PASSWORD", "guest"),
			RabbitMQVHost:    env.GetString("RABBITMQ_VHOST", "/"),
			PrefetchCount:    env.GetInt("RABBITMQ_PREFETCH", 32),
		},
		Logging: logging.Config{
			Level:       logging.LogLevel(env.GetString("LOG_LEVEL", "info")),
			Service:     "api-gateway",
			Environment: environment,
			PrettyLog:   env.GetBool("LOG_PRETTY", environment == "development"),
		},
		Sentry: monitoring.SentryConfig{
			DSN:         env.GetString("SENTRY_DSN", ""),
			Environment: environment,
			Service:     "api-gateway",
			SampleRate:  1.0,
		},
	}
}
