// Package health fans the health-check pattern out to every dependency
// service and aggregates the replies into one report.
package health

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/taskhive/task-platform/services/api-gateway/internal/middleware"
	"github.com/taskhive/task-platform/shared/contracts"
)

// Dependency names one downstream service to probe.
type Dependency struct {
	Name   string
	Caller Caller
}

// Caller is the per-call-timeout surface of a messaging client.
type Caller interface {
	CallTimeout(ctx context.Context, pattern string, payload, out interface{}, timeout time.Duration) error
}

// Report is the aggregated health response. Services keeps the
// configured dependency order, with the gateway's own entry first.
type Report struct {
	Status   contracts.ServiceHealthStatus `json:"status"`
	Services []contracts.ServiceHealth     `json:"services"`
}

// Aggregator probes all dependencies in parallel. One slow or dead
// dependency degrades only its own entry, never the whole report.
type Aggregator struct {
	deps    []Dependency
	timeout time.Duration
	mqAlive func() bool
}

func NewAggregator(deps []Dependency, timeout time.Duration, mqAlive func() bool) *Aggregator {
	return &Aggregator{deps: deps, timeout: timeout, mqAlive: mqAlive}
}

// Check returns the gateway entry followed by one entry per dependency
// in configured order, regardless of reply arrival order.
func (a *Aggregator) Check(ctx context.Context) Report {
	results := make([]contracts.ServiceHealth, len(a.deps))

	var wg sync.WaitGroup
	for i, dep := range a.deps {
		wg.Add(1)
		go func(i int, dep Dependency) {
			defer wg.Done()
			results[i] = a.probe(ctx, dep)
		}(i, dep)
	}
	wg.Wait()

	report := Report{Status: contracts.HealthOk}
	report.Services = append(report.Services, a.selfEntry())
	report.Services = append(report.Services, results...)

	for _, svc := range report.Services {
		if svc.Status != contracts.HealthOk {
			report.Status = contracts.HealthError
			break
		}
	}
	return report
}

func (a *Aggregator) probe(ctx context.Context, dep Dependency) contracts.ServiceHealth {
	var reply contracts.HealthCheckReply
	err := dep.Caller.CallTimeout(ctx, contracts.HealthCheckPattern, struct{}{}, &reply, a.timeout)
	if err != nil {
		// Timed out or unreachable: the entry degrades, the report survives.
		return contracts.ServiceHealth{
			Name:           dep.Name,
			Status:         contracts.HealthError,
			Database:       contracts.HealthUndefined,
			RabbitMQClient: contracts.HealthUndefined,
		}
	}

	return contracts.ServiceHealth{
		Name:           dep.Name,
		Status:         normalizeOverall(reply.Status),
		Database:       normalizeDetail(reply, contracts.DatabaseCheck),
		RabbitMQClient: normalizeDetail(reply, contracts.RabbitMQCheck),
	}
}

// selfEntry reports the gateway itself: no database, broker status from
// the live connection.
func (a *Aggregator) selfEntry() contracts.ServiceHealth {
	mq := contracts.HealthOk
	status := contracts.HealthOk
	if a.mqAlive != nil && !a.mqAlive() {
		mq = contracts.HealthError
		status = contracts.HealthError
	}
	return contracts.ServiceHealth{
		Name:           "api-gateway",
		Status:         status,
		Database:       contracts.HealthUndefined,
		RabbitMQClient: mq,
	}
}

// normalizeOverall maps the remote's top-level status: "ok" means
// healthy, anything else is an error. Overall status is binary; only
// subchecks can be undefined.
func normalizeOverall(status string) contracts.ServiceHealthStatus {
	if status == "ok" {
		return contracts.HealthOk
	}
	return contracts.HealthError
}

// normalizeDetail maps a subcheck: "up" -> OK, "down" -> ERROR, missing
// or unrecognized -> UNDEFINED.
func normalizeDetail(reply contracts.HealthCheckReply, check string) contracts.ServiceHealthStatus {
	detail, ok := reply.Details[check]
	if !ok {
		return contracts.HealthUndefined
	}
	switch detail.Status {
	case "up":
		return contracts.HealthOk
	case "down":
		return contracts.HealthError
	default:
		return contracts.HealthUndefined
	}
}

// Handler serves the aggregated report. A degraded report is still a
// 200: the body carries the per-service statuses.
func (a *Aggregator) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, a.Check(r.Context()))
	}
}
