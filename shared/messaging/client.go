package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/taskhive/task-platform/shared/errors"
	"github.com/taskhive/task-platform/shared/logging"
	"github.com/taskhive/task-platform/shared/metrics"
)

// DefaultCallTimeout bounds a Call when neither the config nor the caller
// supplies one. Every outbound call carries a timeout; there is no
// unbounded wait.
const DefaultCallTimeout = 10 * time.Second

// ClientConfig configures a request/reply client for one destination
// service queue.
type ClientConfig struct {
	// Queue is the destination service queue.
	Queue string

	// ReplyQueue is the queue this client listens on for replies.
	// Defaults to a unique per-client name.
	ReplyQueue string

	// DefaultTimeout applies to every Call unless overridden per call.
	DefaultTimeout time.Duration
}

// Client is the request/reply side of the messaging convention: it sends
// a pattern + payload to a service queue and awaits exactly one correlated
// reply. Concurrent calls on one client never cross-deliver; the
// correlation id is the sole disambiguator. The client holds no business
// state.
type Client struct {
	transport Transport
	config    ClientConfig
	logger    *logging.Logger
	metrics   *metrics.Metrics

	// pending maps correlation id -> chan Reply (buffered, capacity 1).
	pending sync.Map

	started atomic.Bool
}

// NewClient creates a client for the given destination queue. Start must
// be called before Call.
func NewClient(transport Transport, config ClientConfig, logger *logging.Logger, m *metrics.Metrics) *Client {
	if config.ReplyQueue == "" {
		config.ReplyQueue = fmt.Sprintf("%s%s.%s", ReplyQueuePrefix, config.Queue, uuid.NewString()[:8])
	}
	if config.DefaultTimeout <= 0 {
		config.DefaultTimeout = DefaultCallTimeout
	}
	return &Client{
		transport: transport,
		config:    config,
		logger:    logger,
		metrics:   m,
	}
}

// Start begins consuming the reply queue. It must be called once before
// the first Call; ctx cancellation stops the reply loop.
func (c *Client) Start(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return nil
	}

	replies, err := c.transport.Consume(ctx, c.config.ReplyQueue)
	if err != nil {
		c.started.Store(false)
		return fmt.Errorf("failed to consume reply queue %s: %w", c.config.ReplyQueue, err)
	}

	go func() {
		for d := range replies {
			c.deliver(d)
		}
	}()

	return nil
}

// deliver routes a reply to its waiter. Replies whose waiter is gone
// (timed out or cancelled) are dropped; they must never reach another
// caller.
func (c *Client) deliver(d Delivery) {
	waiter, ok := c.pending.LoadAndDelete(d.CorrelationID)
	if !ok {
		if c.logger != nil {
			c.logger.WithField("correlation_id", d.CorrelationID).
				Debug("dropping stale reply")
		}
		return
	}

	var reply Reply
	if err := json.Unmarshal(d.Body, &reply); err != nil {
		reply = Reply{Error: errors.ToWire(errors.Internal("malformed reply"))}
	}

	// Buffered channel; the waiter may already be gone, in which case the
	// send still completes and the reply is garbage collected.
	waiter.(chan Reply) <- reply
}

// Call sends pattern + payload to the destination queue and blocks until
// the correlated reply arrives or the timeout elapses. out, when non-nil,
// receives the decoded result.
func (c *Client) Call(ctx context.Context, pattern string, payload, out interface{}) error {
	return c.CallTimeout(ctx, pattern, payload, out, c.config.DefaultTimeout)
}

// CallTimeout is Call with an explicit per-call timeout.
func (c *Client) CallTimeout(ctx context.Context, pattern string, payload, out interface{}, timeout time.Duration) error {
	if !c.started.Load() {
		return errors.Internal("messaging client not started")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return errors.Validation("payload", "not serializable").WithCause(err)
	}

	correlationID := uuid.NewString()
	waiter := make(chan Reply, 1)
	c.pending.Store(correlationID, waiter)
	defer c.pending.Delete(correlationID)

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	err = c.transport.Publish(ctx, c.config.Queue, Delivery{
		Pattern:       pattern,
		CorrelationID: correlationID,
		ReplyTo:       c.config.ReplyQueue,
		Body:          body,
	})
	if err != nil {
		c.observe(pattern, "unavailable", start)
		return errors.Unavailable("message broker").WithCause(err)
	}

	select {
	case reply := <-waiter:
		if reply.Error != nil {
			c.observe(pattern, "remote_error", start)
			return errors.FromWire(reply.Error)
		}
		if out != nil && len(reply.Result) > 0 {
			if err := json.Unmarshal(reply.Result, out); err != nil {
				c.observe(pattern, "decode_error", start)
				return errors.Internal("failed to decode reply").WithCause(err)
			}
		}
		c.observe(pattern, "ok", start)
		return nil
	case <-ctx.Done():
		c.observe(pattern, "timeout", start)
		if ctx.Err() == context.DeadlineExceeded {
			return errors.Timeout(pattern)
		}
		return ctx.Err()
	}
}

// Emit publishes pattern + payload without awaiting a reply: at-most-once,
// no delivery confirmation, no retry.
func (c *Client) Emit(ctx context.Context, pattern string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return errors.Validation("payload", "not serializable").WithCause(err)
	}

	err = c.transport.Publish(ctx, c.config.Queue, Delivery{
		Pattern:       pattern,
		CorrelationID: uuid.NewString(),
		Body:          body,
	})
	if err != nil {
		return errors.Unavailable("message broker").WithCause(err)
	}
	return nil
}

// ReplyQueue exposes the queue this client consumes, mainly for logging.
func (c *Client) ReplyQueue() string {
	return c.config.ReplyQueue
}

func (c *Client) observe(pattern, outcome string, start time.Time) {
	if c.metrics == nil {
		return
	}
	c.metrics.RPCCallsTotal.WithLabelValues(pattern, outcome).Inc()
	c.metrics.RPCCallDuration.WithLabelValues(pattern).Observe(time.Since(start).Seconds())
}
