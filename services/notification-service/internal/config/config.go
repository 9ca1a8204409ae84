package config

import (
	"github.com/taskhive/task-platform/shared/env"
	"github.com/taskhive/task-platform/shared/logging"
	"github.com/taskhive/task-platform/shared/messaging"
	"github.com/taskhive/task-platform/shared/monitoring"
)

type Config struct {
	Environment string
	ListenAddr  string
	MetricsAddr string
	JWTSecret   string

	RabbitMQ messaging.RabbitMQConfig
	Logging  logging.Config
	Sentry   monitoring.SentryConfig
}

func Load() *Config {
	environment := env.GetString("ENVIRONMENT", "development")

	return &Config{
		Environment: environment,
		ListenAddr:  env.GetString("LISTEN_ADDR", ":8081"),
		MetricsAddr: env.GetString("METRICS_ADDR", ":9093"),
		JWTSecret:   env.GetString("JWT_SECRET", "dev-secret"),

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
			Service:     "notification-service",
			Environment: environment,
			PrettyLog:   env.GetBool("LOG_PRETTY", environment == "development"),
		},
		Sentry: monitoring.SentryConfig{
			DSN:         env.GetString("SENTRY_DSN", ""),
			Environment: environment,
			Service:     "notification-service",
			SampleRate:  1.0,
		},
	}
}
