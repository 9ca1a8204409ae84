package relay

import (
	"context"

	"github.com/taskhive/task-platform/shared/contracts"
	apperrors "github.com/taskhive/task-platform/shared/errors"
	"github.com/taskhive/task-platform/shared/messaging"
)

// RegisterHandlers binds the notification patterns onto the dispatcher.
func RegisterHandlers(dispatcher *messaging.Dispatcher, r *Relay, transport messaging.Transport) {
	dispatcher.Register(contracts.HandleNotificationPattern, messaging.Handle(func(ctx context.Context, msg contracts.NotificationMessage) (interface{}, error) {
		if msg.UserID <= 0 {
			return nil, apperrors.Validation("userId", "must be a positive user id")
		}
		r.Push(ctx, msg)
		return contracts.MessageResponse{Message: "notification accepted"}, nil
	}))

	dispatcher.Register(contracts.HealthCheckPattern, func(ctx context.Context, _ []byte) (interface{}, error) {
		reply := contracts.HealthCheckReply{
			Status:  "ok",
			Details: map[string]contracts.CheckDetail{},
		}
		mqStatus := "up"
		if conn, ok := transport.(interface{ IsConnected() bool }); ok && !conn.IsConnected() {
			mqStatus = "down"
			reply.Status = "error"
		}
		reply.Details[contracts.RabbitMQCheck] = contracts.CheckDetail{Status: mqStatus}
		return reply, nil
	})
}
