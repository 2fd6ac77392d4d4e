package broker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher enqueues messages on a topic exchange with persistent delivery
// and tracks publisher confirms. Negative confirms are tallied but never
// retried here; the caller decides whether a nacked payload is worth
// re-publishing.
type Publisher struct {
	cfg Config
	s   *session

	mu         sync.Mutex
	closing    bool
	deliveries map[uint64]bool
	published  uint64
	acked      uint64
	nacked     uint64
}

// NewPublisher connects, declares the topology and enables publisher
// confirms.
func NewPublisher(cfg Config) (*Publisher, error) {
	s, err := connect(cfg)
	if err != nil {
		return nil, err
	}
	if err := s.ch.Confirm(false); err != nil {
		s.close()
		return nil, fmt.Errorf("enable publisher confirms: %w", err)
	}

	p := &Publisher{
		cfg:        cfg,
		s:          s,
		deliveries: make(map[uint64]bool),
	}
	confirms := s.ch.NotifyPublish(make(chan amqp.Confirmation, 64))
	go p.trackConfirms(confirms)
	return p, nil
}

// Publish enqueues one message with persistent delivery and records its
// sequence number for confirmation tracking.
func (p *Publisher) Publish(ctx context.Context, payload []byte, contentType string) error {
	p.mu.Lock()
	if p.closing {
		p.mu.Unlock()
		return fmt.Errorf("publisher is closed")
	}
	p.mu.Unlock()

	err := p.s.ch.PublishWithContext(ctx, p.cfg.Exchange, p.cfg.routingKey(), false, false, amqp.Publishing{
		ContentType:  contentType,
		DeliveryMode: amqp.Persistent,
		Body:         payload,
	})
	if err != nil {
		return fmt.Errorf("publish to %q: %w", p.cfg.Exchange, err)
	}

	p.mu.Lock()
	p.published++
	p.deliveries[p.published] = true
	p.mu.Unlock()
	return nil
}

// trackConfirms drains broker confirmations serially until the channel
// closes.
func (p *Publisher) trackConfirms(confirms <-chan amqp.Confirmation) {
	for confirm := range confirms {
		p.mu.Lock()
		if confirm.Ack {
			p.acked++
		} else {
			p.nacked++
			slog.Warn("broker rejected publish", "deliveryTag", confirm.DeliveryTag)
		}
		delete(p.deliveries, confirm.DeliveryTag)
		p.mu.Unlock()
	}
}

// Stats reports publish and confirmation counters: messages published,
// confirmed, rejected and still awaiting confirmation.
func (p *Publisher) Stats() (published, acked, nacked, outstanding uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.published, p.acked, p.nacked, uint64(len(p.deliveries))
}

// Close shuts the channel and connection down. Outstanding confirms are
// abandoned.
func (p *Publisher) Close() error {
	p.mu.Lock()
	if p.closing {
		p.mu.Unlock()
		return nil
	}
	p.closing = true
	p.mu.Unlock()
	return p.s.close()
}
