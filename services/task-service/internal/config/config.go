package config

import (
	"time"

	"github.com/taskhive/task-platform/shared/env"
	"github.com/taskhive/task-platform/shared/logging"
	"github.com/taskhive/task-platform/shared/messaging"
	"github.com/taskhive/task-platform/shared/monitoring"
	"github.com/taskhive/task-platform/shared/postgres"
	"github.com/taskhive/task-platform/shared/redis"
)

type Config struct {
	Environment string
	MetricsAddr string
	CacheTTL    time.Duration

	Postgres postgres.PostgresConfig
	Redis    redis.RedisConfig
	RabbitMQ messaging.RabbitMQConfig
	Logging  logging.Config
	Sentry   monitoring.SentryConfig
}

func Load() *Config {
	environment := env.GetString("ENVIRONMENT", "development")

	return &Config{
		Environment: environment,
		MetricsAddr: env.GetString("METRICS_ADDR", ":9092"),
		CacheTTL:    env.GetDuration("TASK_CACHE_TTL", 5*time.Minute),

		Postgres: postgres.PostgresConfig{
			PostgresHost:     env.GetString("POSTGRES_HOST", "localhost"),
			PostgresPort:     env.GetInt("POSTGRES_PORT", 5432),
			PostgresUser:     env.GetString("POSTGRES_USER", "postgres"),
			PostgresPassword: env.GetString("POSTGRES_PASSWORD", "postgres"),
			PostgresDatabase: env.GetString("POSTGRES_DB", "tasks"),
			PostgresSSLMode:  env.GetString("POSTGRES_SSLMODE", "disable"),
			MaxConnections:   env.GetInt("POSTGRES_MAX_CONNECTIONS", 25),
			MaxIdleConns:     env.GetInt("POSTGRES_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime:  env.GetDuration("POSTGRES_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Redis: redis.RedisConfig{
			Host:     env.GetString("REDIS_HOST", "localhost"),
			Port:     env.GetInt("REDIS_PORT", 6379),
			Password: env.GetString("REDIS_PASSWORD", ""),
			DB:       env.GetInt("REDIS_DB", 0),
		},
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
			Service:     "task-service",
			Environment: environment,
			PrettyLog:   env.GetBool("LOG_PRETTY", environment == "development"),
		},
		Sentry: monitoring.SentryConfig{
			DSN:         env.GetString("SENTRY_DSN", ""),
			Environment: environment,
			Service:     "task-service",
			SampleRate:  1.0,
		},
	}
}
