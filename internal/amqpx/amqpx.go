// Package amqpx wraps the RabbitMQ client: a supervisor that dials with
// fixed-delay retries forever, declares the broker topology after every
// (re)connect, and exposes consume/publish on the recovered channel.
package amqpx

import (
	"context"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

// Topology is declared idempotently on every connection. All exchanges and
// queues are durable; names are injected by the caller.
type Topology struct {
	IntakeExchange string // direct
	IntakeQueue    string
	IntakeKey      string
	NotifyExchange string // fanout
	ReportExchange string // fanout
	ReportQueue    string
	AlertQueue     string
	AlertKey       string
}

type Supervisor struct {
	URL        string
	RetryDelay time.Duration
	Topology   Topology

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewSupervisor(url string, retryDelay time.Duration, t Topology) *Supervisor {
	return &Supervisor{URL: url, RetryDelay: retryDelay, Topology: t}
}

// Connect blocks until the broker is reachable, retrying forever with the
// configured delay. Broker unavailability is never surfaced as a fatal
// error; the only way out with an error is context cancellation.
func (s *Supervisor) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.conn != nil && !s.conn.IsClosed() {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	for {
		log.Info().Str("url", s.URL).Msg("connecting to rabbitmq")
		conn, err := amqp.Dial(s.URL)
		if err == nil {
			var ch *amqp.Channel
			if ch, err = conn.Channel(); err == nil {
				if err = s.declare(ch); err == nil {
					s.mu.Lock()
					s.conn, s.ch = conn, ch
					s.mu.Unlock()
					log.Info().Msg("connected to rabbitmq")
					return nil
				}
			}
			_ = conn.Close()
		}
		log.Error().Err(err).Dur("retry_in", s.RetryDelay).Msg("rabbitmq connection failed")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.RetryDelay):
		}
	}
}

func (s *Supervisor) declare(ch *amqp.Channel) error {
	t := s.Topology

	if err := ch.ExchangeDeclare(t.IntakeExchange, "direct", true, false, false, false, nil); err != nil {
		return err
	}
	if _, err := ch.QueueDeclare(t.IntakeQueue, true, false, false, false, nil); err != nil {
		return err
	}
	if err := ch.QueueBind(t.IntakeQueue, t.IntakeKey, t.IntakeExchange, false, nil); err != nil {
		return err
	}

	if err := ch.ExchangeDeclare(t.NotifyExchange, "fanout", true, false, false, false, nil); err != nil {
		return err
	}

	if err := ch.ExchangeDeclare(t.ReportExchange, "fanout", true, false, false, false, nil); err != nil {
		return err
	}
	if _, err := ch.QueueDeclare(t.ReportQueue, true, false, false, false, nil); err != nil {
		return err
	}
	if err := ch.QueueBind(t.ReportQueue, "", t.ReportExchange, false, nil); err != nil {
		return err
	}

	if _, err := ch.QueueDeclare(t.AlertQueue, true, false, false, false, nil); err != nil {
		return err
	}
	return ch.QueueBind(t.AlertQueue, t.AlertKey, t.IntakeExchange, false, nil)
}

// Close shuts the connection down; in-flight unacked deliveries are
// redelivered by the broker.
func (s *Supervisor) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil && !s.conn.IsClosed() {
		_ = s.conn.Close()
	}
	s.conn, s.ch = nil, nil
}

func (s *Supervisor) channel() (*amqp.Connection, *amqp.Channel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn, s.ch
}
