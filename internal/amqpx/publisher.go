package amqpx

import (
	"context"
	"errors"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

var errNotConnected = errors.New("amqpx: not connected")

// Publish sends one persistent JSON message to an exchange. It does not
// block on reconnection: when the broker is down the error is returned and
// the caller decides whether the failure matters (fan-out publishes are
// best-effort and only log it).
func (s *Supervisor) Publish(ctx context.Context, exchange, key string, body []byte) error {
	conn, ch := s.channel()
	if conn == nil || conn.IsClosed() || ch == nil {
		return errNotConnected
	}
	return ch.PublishWithContext(ctx, exchange, key, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Body:         body,
	})
}
