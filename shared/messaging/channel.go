package messaging

import (
	"context"
	"fmt"
	"sync"
)

// channelBuffer bounds in-flight deliveries per in-memory queue.
const channelBuffer = 1024

// ChannelTransport is an in-memory Transport backed by Go channels. It is
// used in tests and local development where no broker is running. Queues
// are created on first use; multiple consumers on one queue compete for
// deliveries, matching broker semantics.
type ChannelTransport struct {
	mu     sync.Mutex
	queues map[string]chan Delivery
	closed bool
}

// NewChannelTransport creates an empty in-memory transport.
func NewChannelTransport() *ChannelTransport {
	return &ChannelTransport{
		queues: make(map[string]chan Delivery),
	}
}

func (t *ChannelTransport) queue(name string) (chan Delivery, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, fmt.Errorf("transport is closed")
	}
	q, ok := t.queues[name]
	if !ok {
		q = make(chan Delivery, channelBuffer)
		t.queues[name] = q
	}
	return q, nil
}

// Publish sends a delivery to the named in-memory queue.
func (t *ChannelTransport) Publish(ctx context.Context, queue string, d Delivery) error {
	q, err := t.queue(queue)
	if err != nil {
		return err
	}
	select {
	case q <- d:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Consume returns the delivery channel for the named queue. Cancellation
// of ctx stops the forwarding goroutine; the queue itself stays usable by
// other consumers.
func (t *ChannelTransport) Consume(ctx context.Context, queue string) (<-chan Delivery, error) {
	q, err := t.queue(queue)
	if err != nil {
		return nil, err
	}

	out := make(chan Delivery)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-q:
				if !ok {
					return
				}
				select {
				case out <- d:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// Close marks the transport closed. Consumers drain and stop.
func (t *ChannelTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	for _, q := range t.queues {
		close(q)
	}
	return nil
}
