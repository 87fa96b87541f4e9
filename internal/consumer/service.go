// Package consumer implements the order-intake pipeline: decode, validate,
// persist, and map the outcome to a message disposition.
package consumer

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/microtienda/facturacion/internal/amqpx"
	"github.com/microtienda/facturacion/internal/orders"
)

type Store interface {
	CreateOrder(ctx context.Context, o *orders.Order) error
}

type Publisher interface {
	Publish(ctx context.Context, exchange, key string, body []byte) error
}

type Service struct {
	Store     Store
	Publisher Publisher

	// AlertThreshold triggers a high-value alert event after commit.
	AlertThreshold decimal.Decimal

	// RequeueOnDBError switches database failures from reject-no-requeue
	// (the default policy) to requeue-for-redelivery.
	RequeueOnDBError bool
}

// HandleDelivery processes one intake message.
//
// Malformed or invalid payloads can never succeed on redelivery and are
// dropped. A duplicate order code means the message was already processed
// and is acknowledged. Database failures follow the configured policy.
func (s *Service) HandleDelivery(ctx context.Context, body []byte) amqpx.Disposition {
	log.Info().Str("payload", string(body)).Msg("message received")

	var o orders.Order
	if err := json.Unmarshal(body, &o); err != nil {
		log.Error().Err(err).Msg("malformed order message, dropping")
		return amqpx.RejectDrop
	}

	if err := o.Validate(); err != nil {
		log.Error().Err(err).Str("codigo", o.Code).Msg("order failed validation, dropping")
		return amqpx.RejectDrop
	}
	o.Normalize()

	err := s.Store.CreateOrder(ctx, &o)
	switch {
	case err == nil:
	case errors.Is(err, orders.ErrDuplicateOrder):
		log.Warn().Str("codigo", o.Code).Msg("order already persisted, acknowledging redelivery")
		return amqpx.Ack
	case errors.Is(err, orders.ErrUserNotFound):
		log.Error().Str("codigo", o.Code).Str("codigo_usuario", o.UserCode).Msg("unknown user, dropping")
		return amqpx.RejectDrop
	default:
		log.Error().Err(err).Str("codigo", o.Code).Msg("database error persisting order")
		if s.RequeueOnDBError {
			return amqpx.RejectRequeue
		}
		return amqpx.RejectDrop
	}

	log.Info().
		Str("codigo", o.Code).
		Str("estado", string(o.Status)).
		Str("precio_total", o.Total.String()).
		Int("productos", len(o.Products)).
		Msg("order persisted")

	s.maybeAlert(ctx, &o)
	return amqpx.Ack
}

// maybeAlert publishes a high-value alert when the total crosses the
// threshold. Best-effort: a publish failure is logged, never propagated.
func (s *Service) maybeAlert(ctx context.Context, o *orders.Order) {
	if s.Publisher == nil || !o.Total.GreaterThan(s.AlertThreshold) {
		return
	}
	body, err := json.Marshal(orders.Alert{
		Kind:      orders.AlertHighValue,
		Code:      o.Code,
		Total:     o.Total,
		UserName:  o.UserName,
		OrderDate: o.OrderDate,
	})
	if err != nil {
		log.Error().Err(err).Msg("marshal alert")
		return
	}
	if err := s.Publisher.Publish(ctx, orders.ExchangeIntake, orders.KeyAlerts, body); err != nil {
		log.Error().Err(err).Str("codigo", o.Code).Msg("alert publish failed")
		return
	}
	log.Info().Str("codigo", o.Code).Msg("high-value alert published")
}
