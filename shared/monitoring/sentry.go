// Package monitoring wires crash reporting for the platform services.
package monitoring

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
)

// SentryConfig holds crash-reporting settings. An empty DSN disables
// reporting entirely.
type SentryConfig struct {
	DSN         string
	Environment string
	Service     string
	SampleRate  float64
}

// InitSentry initializes the global sentry client. Returns false when
// reporting is disabled.
func InitSentry(cfg SentryConfig) (bool, error) {
	if cfg.DSN == "" {
		return false, nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		ServerName:       cfg.Service,
		TracesSampleRate: cfg.SampleRate,
	})
	if err != nil {
		return false, fmt.Errorf("failed to init sentry: %w", err)
	}
	return true, nil
}

// CaptureRecovered reports a recovered panic value.
func CaptureRecovered(recovered interface{}) {
	sentry.CurrentHub().Recover(recovered)
}

// Flush drains buffered events, typically on shutdown.
func Flush() {
	sentry.Flush(2 * time.Second)
}
