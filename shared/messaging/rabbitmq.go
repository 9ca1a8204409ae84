package messaging

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/taskhive/task-platform/shared/logging"
)

// ReplyQueuePrefix marks per-client reply queues. Queues with this prefix
// are declared exclusive and auto-deleting so they disappear with their
// owning connection.
const ReplyQueuePrefix = "reply."

// RabbitMQConfig holds the configuration for RabbitMQ
type RabbitMQConfig struct {
	RabbitMQHost     string
	RabbitMQPort     int
	RabbitMQUser     string
	RabbitMQPassword string
	RabbitMQVHost    string
	PrefetchCount    int
}

// RabbitMQ wraps an AMQP connection and implements Transport over the
// default exchange: deliveries are routed by queue name, with the pattern,
// correlation id and reply queue carried in message properties.
type RabbitMQ struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	config  RabbitMQConfig
	logger  *logging.Logger

	mu       sync.Mutex
	closed   bool
	declared map[string]struct{}
}

// NewRabbitMQ connects to the broker and opens a channel.
func NewRabbitMQ(config RabbitMQConfig, logger *logging.Logger) (*RabbitMQ, error) {
	if config.PrefetchCount <= 0 {
		config.PrefetchCount = 10
	}

	rmq := &RabbitMQ{
		config:   config,
		logger:   logger,
		declared: make(map[string]struct{}),
	}

	if err := rmq.connect(); err != nil {
		return nil, err
	}

	return rmq, nil
}

func (r *RabbitMQ) buildURL() string {
	vhost := r.config.RabbitMQVHost
	if vhost == "" {
		vhost = "/"
	}
	return fmt.Sprintf("amqp://%s:%s@%s:%d%s",
		r.config.RabbitMQUser,
		r.config.RabbitMQPassword,
		r.config.RabbitMQHost,
		r.config.RabbitMQPort,
		vhost,
	)
}

func (r *RabbitMQ) connect() error {
	conn, err := amqp.DialConfig(r.buildURL(), amqp.Config{
		Heartbeat: 10 * time.Second,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to create channel: %w", err)
	}

	if err := ch.Qos(r.config.PrefetchCount, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	r.conn = conn
	r.channel = ch
	r.closed = false

	return nil
}

// declareQueue declares the queue with the durability matching its role.
// Service queues survive restarts; reply queues live and die with their
// owning client.
func (r *RabbitMQ) declareQueue(name string) error {
	if strings.HasPrefix(name, ReplyQueuePrefix) {
		_, err := r.channel.QueueDeclare(name, false, true, true, false, nil)
		return err
	}
	_, err := r.channel.QueueDeclare(name, true, false, false, false, nil)
	return err
}

// ensureQueue declares a durable service queue once per transport so a
// publish made before the consuming service starts is queued, not
// dropped by the default exchange. Reply queues are exclusive to their
// consumer's connection; only the owner declares them, in Consume.
func (r *RabbitMQ) ensureQueue(name string) error {
	if strings.HasPrefix(name, ReplyQueuePrefix) {
		return nil
	}

	r.mu.Lock()
	_, ok := r.declared[name]
	r.mu.Unlock()
	if ok {
		return nil
	}

	if err := r.declareQueue(name); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", name, err)
	}

	r.mu.Lock()
	r.declared[name] = struct{}{}
	r.mu.Unlock()
	return nil
}

// Publish sends a delivery to the named queue through the default exchange.
func (r *RabbitMQ) Publish(ctx context.Context, queue string, d Delivery) error {
	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return fmt.Errorf("connection is closed")
	}

	if err := r.ensureQueue(queue); err != nil {
		return err
	}

	return r.channel.PublishWithContext(
		ctx,
		"", // default exchange
		queue,
		false,
		false,
		amqp.Publishing{
			ContentType:   "application/json",
			Type:          d.Pattern,
			CorrelationId: d.CorrelationID,
			ReplyTo:       d.ReplyTo,
			Timestamp:     time.Now(),
			Body:          d.Body,
		},
	)
}

// Consume declares the queue and starts draining it into a Delivery
// channel. Messages are acknowledged once handed off; redelivery on
// handler failure is not part of the contract.
func (r *RabbitMQ) Consume(ctx context.Context, queue string) (<-chan Delivery, error) {
	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return nil, fmt.Errorf("connection is closed")
	}

	if err := r.declareQueue(queue); err != nil {
		return nil, fmt.Errorf("failed to declare queue %s: %w", queue, err)
	}
	if !strings.HasPrefix(queue, ReplyQueuePrefix) {
		r.mu.Lock()
		r.declared[queue] = struct{}{}
		r.mu.Unlock()
	}

	msgs, err := r.channel.Consume(
		queue,
		"",    // consumer tag
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register consumer for %s: %w", queue, err)
	}

	out := make(chan Delivery)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				d := Delivery{
					Pattern:       msg.Type,
					CorrelationID: msg.CorrelationId,
					ReplyTo:       msg.ReplyTo,
					Body:          msg.Body,
				}
				select {
				case out <- d:
					if err := msg.Ack(false); err != nil && r.logger != nil {
						r.logger.WithError(err).Warn("failed to ack delivery")
					}
				case <-ctx.Done():
					_ = msg.Nack(false, true)
					return
				}
			}
		}
	}()

	return out, nil
}

// IsConnected checks if the connection is alive
func (r *RabbitMQ) IsConnected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.closed && r.conn != nil && !r.conn.IsClosed()
}

// Close closes the channel and connection.
func (r *RabbitMQ) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	if r.channel != nil {
		if err := r.channel.Close(); err != nil && r.logger != nil {
			r.logger.WithError(err).Warn("error closing channel")
		}
	}

	if r.conn != nil {
		if err := r.conn.Close(); err != nil {
			return err
		}
	}

	return nil
}
