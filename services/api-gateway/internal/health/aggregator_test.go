package health_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskhive/task-platform/services/api-gateway/internal/health"
	"github.com/taskhive/task-platform/shared/contracts"
	apperrors "github.com/taskhive/task-platform/shared/errors"
)

// fakeCaller replies with a canned health reply, an error, or blocks
// until the call timeout fires.
type fakeCaller struct {
	reply contracts.HealthCheckReply
	err   error
	hang  bool
}

func (f *fakeCaller) CallTimeout(ctx context.Context, _ string, _, out interface{}, timeout time.Duration) error {
	if f.hang {
		select {
		case <-time.After(timeout):
			return apperrors.Timeout("health-check")
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if f.err != nil {
		return f.err
	}
	raw, _ := json.Marshal(f.reply)
	return json.Unmarshal(raw, out)
}

func okReply() contracts.HealthCheckReply {
	return contracts.HealthCheckReply{
		Status: "ok",
		Details: map[string]contracts.CheckDetail{
			contracts.DatabaseCheck: {Status: "up"},
			contracts.RabbitMQCheck: {Status: "up"},
		},
	}
}

func TestCheckAllHealthy(t *testing.T) {
	agg := health.NewAggregator([]health.Dependency{
		{Name: "auth-service", Caller: &fakeCaller{reply: okReply()}},
		{Name: "task-service", Caller: &fakeCaller{reply: okReply()}},
	}, 50*time.Millisecond, func() bool { return true })

	report := agg.Check(context.Background())

	assert.Equal(t, contracts.HealthOk, report.Status)
	require.Len(t, report.Services, 3)
	assert.Equal(t, "api-gateway", report.Services[0].Name)
	assert.Equal(t, contracts.HealthOk, report.Services[1].Status)
	assert.Equal(t, contracts.HealthOk, report.Services[2].Status)
}

func TestCheckOneTimedOutDependencyDegradesOnlyItsEntry(t *testing.T) {
	agg := health.NewAggregator([]health.Dependency{
		{Name: "auth-service", Caller: &fakeCaller{reply: okReply()}},
		{Name: "task-service", Caller: &fakeCaller{hang: true}},
		{Name: "notification-service", Caller: &fakeCaller{reply: okReply()}},
	}, 50*time.Millisecond, func() bool { return true })

	start := time.Now()
	report := agg.Check(context.Background())

	// The probe runs in parallel: the hung dependency costs one timeout,
	// not one per dependency.
	assert.Less(t, time.Since(start), 150*time.Millisecond)

	assert.Equal(t, contracts.HealthError, report.Status)
	require.Len(t, report.Services, 4)

	assert.Equal(t, contracts.HealthOk, report.Services[1].Status)
	assert.Equal(t, contracts.HealthError, report.Services[2].Status)
	assert.Equal(t, contracts.HealthUndefined, report.Services[2].Database)
	assert.Equal(t, contracts.HealthUndefined, report.Services[2].RabbitMQClient)
	assert.Equal(t, contracts.HealthOk, report.Services[3].Status)
}

func TestCheckPreservesConfiguredOrder(t *testing.T) {
	agg := health.NewAggregator([]health.Dependency{
		{Name: "auth-service", Caller: &fakeCaller{hang: true}},
		{Name: "task-service", Caller: &fakeCaller{reply: okReply()}},
		{Name: "notification-service", Caller: &fakeCaller{reply: okReply()}},
	}, 20*time.Millisecond, func() bool { return true })

	report := agg.Check(context.Background())

	names := make([]string, 0, len(report.Services))
	for _, svc := range report.Services {
		names = append(names, svc.Name)
	}
	assert.Equal(t, []string{"api-gateway", "auth-service", "task-service", "notification-service"}, names)
}

func TestCheckMapsOkStatusToHealthyEntry(t *testing.T) {
	agg := health.NewAggregator([]health.Dependency{
		{Name: "auth-service", Caller: &fakeCaller{reply: okReply()}},
	}, 50*time.Millisecond, func() bool { return true })

	report := agg.Check(context.Background())

	entry := report.Services[1]
	assert.Equal(t, contracts.HealthOk, entry.Status)
	assert.Equal(t, contracts.HealthOk, entry.Database)
	assert.Equal(t, contracts.HealthOk, entry.RabbitMQClient)
	assert.Equal(t, contracts.HealthOk, report.Status)
}

func TestCheckNormalizesUnknownStatuses(t *testing.T) {
	// Overall status is binary: anything but "ok" is an error. Only
	// subchecks can come back undefined.
	weird := contracts.HealthCheckReply{
		Status: "degraded",
		Details: map[string]contracts.CheckDetail{
			contracts.DatabaseCheck: {Status: "down"},
		},
	}
	agg := health.NewAggregator([]health.Dependency{
		{Name: "task-service", Caller: &fakeCaller{reply: weird}},
	}, 50*time.Millisecond, func() bool { return true })

	report := agg.Check(context.Background())

	entry := report.Services[1]
	assert.Equal(t, contracts.HealthError, entry.Status)
	assert.Equal(t, contracts.HealthError, entry.Database)
	assert.Equal(t, contracts.HealthUndefined, entry.RabbitMQClient)
	assert.Equal(t, contracts.HealthError, report.Status)
}

func TestCheckReportsBrokerOutageOnOwnEntry(t *testing.T) {
	agg := health.NewAggregator(nil, 50*time.Millisecond, func() bool { return false })

	report := agg.Check(context.Background())

	require.Len(t, report.Services, 1)
	assert.Equal(t, contracts.HealthError, report.Services[0].RabbitMQClient)
	assert.Equal(t, contracts.HealthError, report.Status)
}
