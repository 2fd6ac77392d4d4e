package broker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Handler processes one message body. Returning an error marks the message
// as a failure for logging, but the message is acknowledged either way: a
// payload the handler cannot process now will not become processable through
// re-delivery, and leaving it unacked would block the queue head.
type Handler func(ctx context.Context, body []byte) error

// Consumer subscribes to a queue with prefetch 1 and feeds deliveries to its
// handler serially.
type Consumer struct {
	cfg     Config
	s       *session
	handler Handler
	tag     string

	mu      sync.Mutex
	closing bool
	done    chan struct{}
	closed  chan *amqp.Error
}

// NewConsumer connects, declares the topology and sets the per-consumer
// prefetch to one so a slow handler does not hoard deliveries.
func NewConsumer(cfg Config, handler Handler) (*Consumer, error) {
	if handler == nil {
		return nil, fmt.Errorf("consumer requires a handler")
	}
	s, err := connect(cfg)
	if err != nil {
		return nil, err
	}
	if err := s.ch.Qos(1, 0, false); err != nil {
		s.close()
		return nil, fmt.Errorf("set prefetch: %w", err)
	}

	c := &Consumer{
		cfg:     cfg,
		s:       s,
		handler: handler,
		tag:     cfg.ConnectionName + "." + cfg.Queue,
		done:    make(chan struct{}),
		closed:  make(chan *amqp.Error, 1),
	}
	s.conn.NotifyClose(c.closed)
	return c, nil
}

// Start begins consuming. Deliveries are handled one at a time on a single
// goroutine; Start itself returns once the subscription is established.
func (c *Consumer) Start(ctx context.Context) error {
	deliveries, err := c.s.ch.Consume(c.cfg.Queue, c.tag, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume from %q: %w", c.cfg.Queue, err)
	}

	go func() {
		defer close(c.done)
		for delivery := range deliveries {
			if err := c.handler(ctx, delivery.Body); err != nil {
				slog.Error("message handler failed", "queue", c.cfg.Queue, "error", err)
			}
			if err := delivery.Ack(false); err != nil {
				slog.Error("failed to ack delivery", "queue", c.cfg.Queue, "error", err)
			}
		}
	}()
	return nil
}

// Closed reports unexpected connection loss. Receiving from it after Stop
// yields nil.
func (c *Consumer) Closed() <-chan *amqp.Error {
	return c.closed
}

// Stop cancels the subscription, waits for in-flight handling to finish and
// closes the channel and connection.
func (c *Consumer) Stop() error {
	c.mu.Lock()
	if c.closing {
		c.mu.Unlock()
		return nil
	}
	c.closing = true
	c.mu.Unlock()

	if err := c.s.ch.Cancel(c.tag, false); err != nil {
		return fmt.Errorf("cancel consumer %q: %w", c.tag, err)
	}
	<-c.done
	return c.s.close()
}
