package amqpx

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

// Disposition is the acknowledgment decision for one delivery.
type Disposition int

const (
	// Ack removes the message from the queue.
	Ack Disposition = iota
	// RejectDrop discards the message permanently (no requeue).
	RejectDrop
	// RejectRequeue returns the message to the queue for redelivery.
	RejectRequeue
)

// Handler processes one delivery body and decides its disposition.
type Handler func(ctx context.Context, body []byte) Disposition

// Consume runs the intake loop until ctx is canceled. Deliveries are
// processed one at a time with manual acknowledgment; when the connection
// drops the loop reconnects (retrying forever) and resumes consuming.
func (s *Supervisor) Consume(ctx context.Context, queue string, h Handler) error {
	for {
		if err := s.Connect(ctx); err != nil {
			return nil // canceled during reconnect
		}
		conn, ch := s.channel()

		deliveries, err := ch.Consume(queue, "", false, false, false, false, nil)
		if err != nil {
			log.Error().Err(err).Str("queue", queue).Msg("consume register failed")
			s.Close()
			continue
		}
		log.Info().Str("queue", queue).Msg("waiting for messages")

		closed := conn.NotifyClose(make(chan *amqp.Error, 1))

	deliver:
		for {
			select {
			case <-ctx.Done():
				s.Close()
				return nil
			case err := <-closed:
				log.Warn().Err(err).Msg("rabbitmq connection lost, reconnecting")
				s.Close()
				break deliver
			case d, ok := <-deliveries:
				if !ok {
					s.Close()
					break deliver
				}
				switch h(ctx, d.Body) {
				case Ack:
					if err := d.Ack(false); err != nil {
						log.Error().Err(err).Msg("ack failed")
					}
				case RejectRequeue:
					if err := d.Nack(false, true); err != nil {
						log.Error().Err(err).Msg("nack failed")
					}
				default:
					if err := d.Reject(false); err != nil {
						log.Error().Err(err).Msg("reject failed")
					}
				}
			}
		}
	}
}
