package rpc

import (
	"context"
	"database/sql"

	"github.com/taskhive/task-platform/services/auth-service/internal/domain"
	"github.com/taskhive/task-platform/shared/contracts"
	"github.com/taskhive/task-platform/shared/messaging"
)

// Register binds every auth pattern onto the dispatcher.
func Register(dispatcher *messaging.Dispatcher, svc domain.AuthService, db *sql.DB, transport messaging.Transport) {
	dispatcher.Register(contracts.LoginUserPattern, messaging.Handle(func(ctx context.Context, payload contracts.LoginUser) (interface{}, error) {
		return svc.Login(ctx, payload)
	}))

	dispatcher.Register(contracts.RegisterUserPattern, messaging.Handle(func(ctx context.Context, payload contracts.RegisterUser) (interface{}, error) {
		return svc.Register(ctx, payload)
	}))

	dispatcher.Register(contracts.RefreshTokenPattern, messaging.Handle(func(ctx context.Context, payload contracts.RefreshToken) (interface{}, error) {
		return svc.Refresh(ctx, payload)
	}))

	dispatcher.Register(contracts.UpdateUserPattern, messaging.Handle(func(ctx context.Context, payload contracts.UpdateUser) (interface{}, error) {
		return svc.Update(ctx, payload)
	}))

	dispatcher.Register(contracts.FindAllUsersPattern, func(ctx context.Context, _ []byte) (interface{}, error) {
		return svc.FindAll(ctx)
	})

	dispatcher.Register(contracts.HealthCheckPattern, func(ctx context.Context, _ []byte) (interface{}, error) {
		return healthCheck(ctx, db, transport), nil
	})
}

// healthCheck never fails the call; degraded dependencies are reported
// in the reply body instead.
func healthCheck(ctx context.Context, db *sql.DB, transport messaging.Transport) contracts.HealthCheckReply {
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

	return reply
}
