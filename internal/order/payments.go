package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"event-ticketing/internal/apperrors"
	"event-ticketing/internal/kafka"
	"event-ticketing/internal/models"

	kafkago "github.com/segmentio/kafka-go"
)

// ApplyPaymentSettled confirms the order a settlement refers to. Redelivery of
// a settlement for an order that is already confirmed is a no-op. A settlement
// for an order that is still pending is parked on the order and applied when
// the organizer approves it.
func (s *OrderService) ApplyPaymentSettled(ctx context.Context, msg models.PaymentSettledMessage) error {
	if msg.Status != models.PaymentMessageSucceeded {
		s.Logger.Info("PAYMENT", fmt.Sprintf("Ignoring %s settlement for order %s", msg.Status, msg.OrderID))
		return nil
	}

	_, err := s.Confirm(ctx, models.SystemActor("payment"), msg.OrderID, msg.Reference)
	var transitionErr *apperrors.TransitionError
	if !errors.As(err, &transitionErr) {
		return err
	}
	switch models.OrderStatus(transitionErr.Current) {
	case models.OrderConfirmed:
		s.Logger.Debug("PAYMENT", fmt.Sprintf("Order %s already confirmed", msg.OrderID))
		return nil
	case models.OrderPending:
		parked, err := s.DB.RecordPaymentReference(ctx, msg.OrderID, msg.Reference, s.Now())
		if err != nil {
			return err
		}
		if !parked {
			// moved on since the read; a redelivery sees the new status
			return fmt.Errorf("order %s left pending while parking settlement %s", msg.OrderID, msg.Reference)
		}
		s.Logger.Warn("PAYMENT", fmt.Sprintf("Settlement %s parked on pending order %s until approval", msg.Reference, msg.OrderID))
		return nil
	default:
		s.Logger.Error("PAYMENT", fmt.Sprintf("Settlement %s arrived for %s order %s and needs a refund", msg.Reference, transitionErr.Current, msg.OrderID))
		return err
	}
}

// PaymentSettledHandler adapts ApplyPaymentSettled to the Kafka consumer.
// Settlements that can never apply are not retried.
func (s *OrderService) PaymentSettledHandler() kafka.HandlerFunc {
	return func(ctx context.Context, m kafkago.Message) error {
		var msg models.PaymentSettledMessage
		if err := json.Unmarshal(m.Value, &msg); err != nil {
			return kafka.Permanent(fmt.Errorf("decode payment settlement: %w", err))
		}
		if msg.OrderID == "" {
			return kafka.Permanent(errors.New("payment settlement missing order_id"))
		}

		err := s.ApplyPaymentSettled(ctx, msg)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, apperrors.ErrNotFound), errors.Is(err, apperrors.ErrStaleState):
			s.Logger.Warn("PAYMENT", fmt.Sprintf("Settlement %s for order %s not applied: %v", msg.Reference, msg.OrderID, err))
			return kafka.Permanent(err)
		default:
			return err
		}
	}
}
