// Package broker wraps the AMQP plumbing shared by the job publisher and the
// verdict consumer: connection setup, the exchange/queue/bind handshake and
// lifecycle teardown. Reconnection is deliberately out of scope - on channel
// or connection loss both sides surface the error and leave the retry policy
// to their caller.
package broker

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Config identifies one broker endpoint. RoutingKey defaults to the queue
// name, which matches the direct use of a topic exchange as a work queue.
type Config struct {
	URL            string
	Exchange       string
	Queue          string
	RoutingKey     string
	ConnectionName string
}

func (c Config) routingKey() string {
	if c.RoutingKey != "" {
		return c.RoutingKey
	}
	return c.Queue
}

// session is an open connection plus channel with the topology declared.
type session struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

// connect dials the broker and performs the shared handshake: open channel,
// declare the topic exchange, declare the durable queue and bind it.
func connect(cfg Config) (*session, error) {
	conn, err := amqp.DialConfig(cfg.URL, amqp.Config{
		Properties: amqp.Table{"connection_name": cfg.ConnectionName},
	})
	if err != nil {
		return nil, fmt.Errorf("dial broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(cfg.Exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare exchange %q: %w", cfg.Exchange, err)
	}
	if _, err := ch.QueueDeclare(cfg.Queue, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare queue %q: %w", cfg.Queue, err)
	}
	if err := ch.QueueBind(cfg.Queue, cfg.routingKey(), cfg.Exchange, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("bind queue %q: %w", cfg.Queue, err)
	}

	return &session{conn: conn, ch: ch}, nil
}

func (s *session) close() error {
	if err := s.ch.Close(); err != nil && !s.conn.IsClosed() {
		s.conn.Close()
		return fmt.Errorf("close channel: %w", err)
	}
	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("close connection: %w", err)
	}
	return nil
}
