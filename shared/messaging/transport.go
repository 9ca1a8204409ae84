package messaging

import (
	"context"
	"encoding/json"

	"github.com/taskhive/task-platform/shared/errors"
)

// Delivery is one message moving through a queue: a request envelope when
// Pattern is set, a reply when only CorrelationID is set. ReplyTo names the
// queue the caller is listening on; an empty ReplyTo marks a
// fire-and-forget event that must not be answered.
type Delivery struct {
	Pattern       string
	CorrelationID string
	ReplyTo       string
	Body          []byte
}

// Reply is the wire body of a reply delivery. Exactly one of Result and
// Error is populated.
type Reply struct {
	Result json.RawMessage   `json:"result,omitempty"`
	Error  *errors.WireError `json:"error,omitempty"`
}

// Transport moves deliveries between named queues. Implementations:
// RabbitMQ for deployments, ChannelTransport for in-process tests.
type Transport interface {
	// Publish sends a delivery to the named queue.
	Publish(ctx context.Context, queue string, d Delivery) error

	// Consume returns a channel of deliveries for the named queue. The
	// channel is closed when ctx is cancelled or the transport closes.
	Consume(ctx context.Context, queue string) (<-chan Delivery, error)

	// Close releases the underlying connection.
	Close() error
}
