package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/taskhive/task-platform/shared/errors"
	"github.com/taskhive/task-platform/shared/logging"
	"github.com/taskhive/task-platform/shared/metrics"
)

// HandlerFunc processes one decoded envelope and returns the reply value
// or a typed error. Returned *errors.Error values cross the wire intact;
// anything else is reduced to a generic internal error.
type HandlerFunc func(ctx context.Context, payload []byte) (interface{}, error)

// Dispatcher is the server side of the messaging convention: it consumes
// a service queue, routes each envelope to the handler registered for its
// pattern and publishes the reply to the caller's reply queue. Handler
// failures are isolated per envelope.
type Dispatcher struct {
	transport Transport
	queue     string
	logger    *logging.Logger
	metrics   *metrics.Metrics

	mu       sync.RWMutex
	handlers map[string]HandlerFunc
}

// NewDispatcher creates a dispatcher for the given service queue.
func NewDispatcher(transport Transport, queue string, logger *logging.Logger, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{
		transport: transport,
		queue:     queue,
		logger:    logger,
		metrics:   m,
		handlers:  make(map[string]HandlerFunc),
	}
}

// Register binds a handler to a pattern. Registering the same pattern
// twice panics; dispatch tables are assembled once at startup.
func (d *Dispatcher) Register(pattern string, handler HandlerFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.handlers[pattern]; exists {
		panic(fmt.Sprintf("messaging: pattern %q registered twice", pattern))
	}
	d.handlers[pattern] = handler
}

// Run consumes the service queue until ctx is cancelled. Each envelope is
// dispatched on its own goroutine so one slow or failing handler never
// blocks the rest.
func (d *Dispatcher) Run(ctx context.Context) error {
	deliveries, err := d.transport.Consume(ctx, d.queue)
	if err != nil {
		return fmt.Errorf("failed to consume queue %s: %w", d.queue, err)
	}

	if d.logger != nil {
		d.logger.WithField("queue", d.queue).Info("dispatcher started")
	}

	for delivery := range deliveries {
		go d.dispatch(ctx, delivery)
	}

	return ctx.Err()
}

func (d *Dispatcher) dispatch(ctx context.Context, delivery Delivery) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			if d.logger != nil {
				d.logger.WithFields(map[string]interface{}{
					"pattern": delivery.Pattern,
					"panic":   fmt.Sprintf("%v", r),
					"stack":   string(debug.Stack()),
				}).Error("handler panicked")
			}
			if d.metrics != nil {
				d.metrics.PanicsRecovered.Inc()
			}
			d.reply(ctx, delivery, nil, errors.Internal("internal error"))
		}
	}()

	ctx = logging.WithCorrelationID(ctx, delivery.CorrelationID)

	d.mu.RLock()
	handler, ok := d.handlers[delivery.Pattern]
	d.mu.RUnlock()

	if !ok {
		if d.logger != nil {
			d.logger.WithField("pattern", delivery.Pattern).Warn("unknown pattern")
		}
		d.observe(delivery.Pattern, "unknown_pattern", start)
		d.reply(ctx, delivery, nil, errors.UnknownPattern(delivery.Pattern))
		return
	}

	result, err := handler(ctx, delivery.Body)
	if err != nil {
		if d.logger != nil {
			d.logger.WithContext(ctx).WithError(err).
				WithField("pattern", delivery.Pattern).
				Warn("handler returned error")
		}
		if d.metrics != nil {
			d.metrics.ErrorsTotal.WithLabelValues(string(errors.GetType(err))).Inc()
		}
		d.observe(delivery.Pattern, "error", start)
		d.reply(ctx, delivery, nil, err)
		return
	}

	d.observe(delivery.Pattern, "ok", start)
	d.reply(ctx, delivery, result, nil)
}

// reply publishes the outcome to the caller's reply queue. Fire-and-forget
// envelopes carry no reply queue and get no reply.
func (d *Dispatcher) reply(ctx context.Context, delivery Delivery, result interface{}, handlerErr error) {
	if delivery.ReplyTo == "" {
		return
	}

	reply := Reply{}
	if handlerErr != nil {
		reply.Error = errors.ToWire(handlerErr)
	} else if result != nil {
		encoded, err := json.Marshal(result)
		if err != nil {
			if d.logger != nil {
				d.logger.WithError(err).WithField("pattern", delivery.Pattern).
					Error("failed to encode reply")
			}
			reply.Error = errors.ToWire(errors.Internal("internal error"))
		} else {
			reply.Result = encoded
		}
	}

	body, err := json.Marshal(reply)
	if err != nil {
		if d.logger != nil {
			d.logger.WithError(err).Error("failed to marshal reply envelope")
		}
		return
	}

	err = d.transport.Publish(ctx, delivery.ReplyTo, Delivery{
		CorrelationID: delivery.CorrelationID,
		Body:          body,
	})
	if err != nil && d.logger != nil {
		d.logger.WithError(err).WithField("pattern", delivery.Pattern).
			Error("failed to publish reply")
	}
}

func (d *Dispatcher) observe(pattern, outcome string, start time.Time) {
	if d.metrics == nil {
		return
	}
	d.metrics.RPCHandledTotal.WithLabelValues(pattern, outcome).Inc()
	d.metrics.RPCHandleDuration.WithLabelValues(pattern).Observe(time.Since(start).Seconds())
}

// Handle adapts a typed handler to HandlerFunc, decoding the JSON payload
// into T. Malformed payloads become validation errors.
func Handle[T any](fn func(ctx context.Context, payload T) (interface{}, error)) HandlerFunc {
	return func(ctx context.Context, body []byte) (interface{}, error) {
		var payload T
		if len(body) > 0 {
			if err := json.Unmarshal(body, &payload); err != nil {
				return nil, errors.Validation("payload", "malformed JSON").WithCause(err)
			}
		}
		return fn(ctx, payload)
	}
}
