package rpc

import (
	"context"
	"database/sql"

	"github.com/taskhive/task-platform/services/task-service/internal/domain"
	"github.com/taskhive/task-platform/shared/contracts"
	"github.com/taskhive/task-platform/shared/messaging"
)

// Pinger is the probe surface a health subcheck needs.
type Pinger interface {
	HealthCheck(ctx context.Context) error
}

// Register binds every task pattern onto the dispatcher. The payload of
// find-one-task and find-all-comments is a bare JSON number.
func Register(dispatcher *messaging.Dispatcher, svc domain.TaskService, db *sql.DB, cache Pinger, transport messaging.Transport) {
	dispatcher.Register(contracts.CreateTaskPattern, messaging.Handle(func(ctx context.Context, payload contracts.CreateTask) (interface{}, error) {
		return svc.Create(ctx, payload)
	}))

	dispatcher.Register(contracts.UpdateTaskPattern, messaging.Handle(func(ctx context.Context, payload contracts.UpdateTask) (interface{}, error) {
		return svc.Update(ctx, payload)
	}))

	dispatcher.Register(contracts.FindAllTasksPattern, messaging.Handle(func(ctx context.Context, filters contracts.FindAllFilters) (interface{}, error) {
		return svc.FindAll(ctx, filters)
	}))

	dispatcher.Register(contracts.FindOneTaskPattern, messaging.Handle(func(ctx context.Context, id int64) (interface{}, error) {
		return svc.FindOne(ctx, id)
	}))

	dispatcher.Register(contracts.AddTaskLogPattern, messaging.Handle(func(ctx context.Context, payload contracts.AddLog) (interface{}, error) {
		return svc.AddLog(ctx, payload)
	}))

	dispatcher.Register(contracts.CreateCommentPattern, messaging.Handle(func(ctx context.Context, payload contracts.CreateComment) (interface{}, error) {
		return svc.CreateComment(ctx, payload)
	}))

	dispatcher.Register(contracts.FindAllCommentsPattern, messaging.Handle(func(ctx context.Context, taskID int64) (interface{}, error) {
		return svc.FindAllComments(ctx, taskID)
	}))

	dispatcher.Register(contracts.HealthCheckPattern, func(ctx context.Context, _ []byte) (interface{}, error) {
		return healthCheck(ctx, db, cache, transport), nil
	})
}

func healthCheck(ctx context.Context, db *sql.DB, cache Pinger, transport messaging.Transport) contracts.HealthCheckReply {
	reply := contracts.HealthCheckReply{
		Status:  "ok",
		Details: map[string]contracts.CheckDetail{},
	}

	dbStatus := "up"
	if err := db.PingContext(ctx); err != nil {
		dbStatus = "down"
		reply.Status = "error"
	}
	reply.Details[contracts.DatabaseCheck] = contracts.CheckDetail{Status: dbStatus}

	mqStatus := "up"
	if conn, ok := transport.(interface{ IsConnected() bool }); ok && !conn.IsConnected() {
		mqStatus = "down"
		reply.Status = "error"
	}
	reply.Details[contracts.RabbitMQCheck] = contracts.CheckDetail{Status: mqStatus}

	// Cache outage degrades the detail, not the service; reads fall
	// through to the database.
	if cache != nil {
		cacheStatus := "up"
		if err := cache.HealthCheck(ctx); err != nil {
			cacheStatus = "down"
		}
		reply.Details[contracts.RedisCheck] = contracts.CheckDetail{Status: cacheStatus}
	}

	return reply
}
