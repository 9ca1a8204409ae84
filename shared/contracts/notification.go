package contracts

import "encoding/json"

// NotificationType labels a NotificationMessage for the client UI.
type NotificationType string

const (
	NotificationInfo    NotificationType = "info"
	NotificationWarning NotificationType = "warning"
	NotificationError   NotificationType = "error"
)

// NotificationMessage is the payload of the handle-notification pattern
// and of the websocket "notification" event. Delivery is fire-and-forget:
// if the target user has no live session the message is dropped.
type NotificationMessage struct {
	Message string           `json:"message"`
	Title   string           `json:"title"`
	Type    NotificationType `json:"type"`
	UserID  int64            `json:"userId"`
	Data    json.RawMessage  `json:"data,omitempty"`
}

// NotificationEvent is the websocket event name the relay emits.
const NotificationEvent = "notification"

// WSEvent is the framing for messages pushed over the notifications socket.
type WSEvent struct {
	Event string              `json:"event"`
	Data  NotificationMessage `json:"data"`
}
