package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/felixgeelhaar/learnlens/internal/domain"
)

// EventHandler processes a decoded progress event
type EventHandler func(ctx context.Context, event domain.ProgressEvent) error

// EventStore is satisfied by the SQL event stores
type EventStore interface {
	PublishEvent(ctx context.Context, event domain.ProgressEvent) error
}

// StoreHandler persists every consumed event into store
func StoreHandler(store EventStore) EventHandler {
	return store.PublishEvent
}

var errMalformed = errors.New("malformed progress event")

// Consumer consumes progress events from the queue
type Consumer struct {
	conn       *Connection
	handler    EventHandler
	workers    int
	prefetch   int
	timeout    time.Duration
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// ConsumerConfig holds consumer configuration
type ConsumerConfig struct {
	Workers        int
	Prefetch       int
	HandlerTimeout time.Duration
}

// DefaultConsumerConfig returns sensible defaults
func DefaultConsumerConfig() ConsumerConfig {
	return ConsumerConfig{
		Workers:        3,
		Prefetch:       1,
		HandlerTimeout: 30 * time.Second,
	}
}

func (cfg ConsumerConfig) withDefaults() ConsumerConfig {
	def := DefaultConsumerConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = def.Prefetch
	}
	if cfg.HandlerTimeout <= 0 {
		cfg.HandlerTimeout = def.HandlerTimeout
	}
	return cfg
}

// NewConsumer creates a new queue consumer
func NewConsumer(conn *Connection, handler EventHandler, cfg ConsumerConfig) *Consumer {
	cfg = cfg.withDefaults()
	return &Consumer{
		conn:     conn,
		handler:  handler,
		workers:  cfg.Workers,
		prefetch: cfg.Prefetch,
		timeout:  cfg.HandlerTimeout,
	}
}

// Start begins consuming messages
func (c *Consumer) Start(ctx context.Context) error {
	ctx, c.cancelFunc = context.WithCancel(ctx)

	ch := c.conn.Channel()

	if err := ch.Qos(c.prefetch*c.workers, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := ch.Consume(
		ProgressQueueName,
		"",    // consumer tag (auto-generated)
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	slog.Info("starting progress event consumer", "workers", c.workers, "prefetch", c.prefetch)

	for i := 0; i < c.workers; i++ {
		c.wg.Add(1)
		go c.worker(ctx, i, msgs)
	}

	return nil
}

func (c *Consumer) worker(ctx context.Context, id int, msgs <-chan amqp.Delivery) {
	defer c.wg.Done()

	for {
		select {
		case <-ctx.Done():
			slog.Debug("worker stopping", "worker_id", id)
			return

		case msg, ok := <-msgs:
			if !ok {
				slog.Info("message channel closed", "worker_id", id)
				return
			}

			c.processMessage(ctx, id, msg)
		}
	}
}

// processMessage acks handled events, rejects malformed ones, and requeues
// a failed event once before dropping it.
func (c *Consumer) processMessage(ctx context.Context, workerID int, msg amqp.Delivery) {
	event, err := decodeEvent(msg.Body)
	if err != nil {
		slog.Error("dropping progress event",
			"worker_id", workerID,
			"message_id", msg.MessageId,
			"error", err,
		)
		_ = msg.Reject(false)
		return
	}

	handlerCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	if err := c.handler(handlerCtx, event); err != nil {
		requeue := !msg.Redelivered
		slog.Error("progress event handler failed",
			"worker_id", workerID,
			"event_id", event.ID,
			"type", event.Type,
			"requeue", requeue,
			"error", err,
		)
		_ = msg.Nack(false, requeue)
		return
	}

	if err := msg.Ack(false); err != nil {
		slog.Error("failed to ack message",
			"worker_id", workerID,
			"event_id", event.ID,
			"error", err,
		)
		return
	}

	slog.Debug("progress event handled",
		"worker_id", workerID,
		"event_id", event.ID,
		"type", event.Type,
		"duration", time.Since(start),
	)
}

func decodeEvent(body []byte) (domain.ProgressEvent, error) {
	var event domain.ProgressEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return event, fmt.Errorf("%w: %v", errMalformed, err)
	}
	if event.Type == "" || event.UserID == "" || event.CourseID == "" {
		return event, fmt.Errorf("%w: type, user and course are required", errMalformed)
	}
	return event, nil
}

// Stop cancels the workers and waits for in-flight messages
func (c *Consumer) Stop() {
	if c.cancelFunc != nil {
		c.cancelFunc()
	}
	c.wg.Wait()
	slog.Info("consumer stopped")
}
