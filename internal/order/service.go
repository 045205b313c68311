package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"event-ticketing/internal/apperrors"
	"event-ticketing/internal/config"
	"event-ticketing/internal/logger"
	"event-ticketing/internal/metrics"
	"event-ticketing/internal/models"
	"event-ticketing/internal/utils"
)

type DBLayer interface {
	Reserve(ctx context.Context, order *models.Order, now time.Time) (*models.Order, error)
	GetOrderByID(ctx context.Context, id string) (*models.Order, error)
	TransitionStatus(ctx context.Context, p models.TransitionParams) (*models.Order, error)
	ListByBuyer(ctx context.Context, buyerID string) ([]models.Order, error)
	ListByEvent(ctx context.Context, eventID string, status models.OrderStatus) ([]models.Order, error)
	ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
	RecordPaymentReference(ctx context.Context, orderID, reference string, at time.Time) (bool, error)
}

// ClassLock is the optional cross-instance lock taken around a reservation.
type ClassLock interface {
	Acquire(ctx context.Context, classID string) (func(), error)
}

type EventDirectory interface {
	Get(ctx context.Context, eventID string) (*models.Event, error)
}

// EventPublisher receives every committed order change. Publish must not block.
type EventPublisher interface {
	Publish(event models.OrderEvent)
}

type OrderService struct {
	DB        DBLayer
	Lock      ClassLock
	Events    EventDirectory
	Publisher EventPublisher
	Retry     config.ReservationConfig
	Logger    *logger.Logger
	Now       func() time.Time
}

func NewOrderService(db DBLayer, lock ClassLock, events EventDirectory, publisher EventPublisher, retry config.ReservationConfig, log *logger.Logger) *OrderService {
	return &OrderService{
		DB:        db,
		Lock:      lock,
		Events:    events,
		Publisher: publisher,
		Retry:     retry,
		Logger:    log,
		Now:       func() time.Time { return time.Now().UTC() },
	}
}

// ---------------- RESERVATIONS ----------------

func validateOrderRequest(buyerID string, req models.OrderRequest) error {
	v := apperrors.NewValidationError()
	if buyerID == "" {
		v.Add("buyer_id", "required")
	}
	if strings.TrimSpace(req.TicketClassID) == "" {
		v.Add("ticket_class_id", "required")
	}
	if req.Quantity < 1 {
		v.Add("quantity", "must be at least 1")
	}
	return v.OrNil()
}

// Reserve places a pending order for req.Quantity units. It either claims all
// of them or none. Lock and serialization conflicts are retried with backoff;
// when retries run out the caller gets a RetryableError.
func (s *OrderService) Reserve(ctx context.Context, buyerID string, req models.OrderRequest) (*models.Order, error) {
	if err := validateOrderRequest(buyerID, req); err != nil {
		return nil, err
	}

	started := time.Now()
	var order *models.Order
	err := s.withRetry(ctx, "reserve", func(ctx context.Context) error {
		if s.Lock != nil {
			release, err := s.Lock.Acquire(ctx, req.TicketClassID)
			if err != nil {
				return err
			}
			defer release()
		}

		code, err := utils.GenerateTicketCode()
		if err != nil {
			return err
		}
		now := s.Now()
		created, err := s.DB.Reserve(ctx, &models.Order{
			OrderID:       utils.GenerateID(),
			TicketClassID: req.TicketClassID,
			BuyerID:       buyerID,
			Quantity:      req.Quantity,
			BuyerName:     strings.TrimSpace(req.Name),
			BuyerPhone:    strings.TrimSpace(req.Phone),
			BuyerEmail:    strings.TrimSpace(req.Email),
			TicketCode:    code,
			Status:        models.OrderPending,
			PaymentStatus: models.PaymentUnpaid,
			CreatedAt:     now,
			UpdatedAt:     now,
		}, now)
		if err != nil {
			return err
		}
		order = created
		return nil
	})

	outcome := reservationOutcome(err)
	metrics.ObserveReservation(outcome, started)
	if err != nil {
		s.Logger.LogReservation(req.TicketClassID, outcome, fmt.Sprintf("buyer=%s quantity=%d: %v", buyerID, req.Quantity, err))
		return nil, err
	}

	s.Logger.LogReservation(req.TicketClassID, outcome, fmt.Sprintf("order=%s buyer=%s quantity=%d", order.OrderID, buyerID, order.Quantity))
	s.publish(models.OrderCreatedEvent, order, "", models.Actor{UserID: buyerID, Role: models.ActorBuyer})
	return order, nil
}

func reservationOutcome(err error) string {
	switch {
	case err == nil:
		return "reserved"
	case errors.Is(err, apperrors.ErrInsufficientInventory):
		return "insufficient"
	case errors.Is(err, apperrors.ErrNotOnSale):
		return "not_on_sale"
	case errors.Is(err, apperrors.ErrNotFound):
		return "not_found"
	case errors.Is(err, apperrors.ErrRetryable):
		return "retry_exhausted"
	default:
		return "error"
	}
}

// ---------------- LIFECYCLE ----------------

// ChangeStatus is the HTTP entry point for status moves. The caller's role is
// derived from the order: the event organizer may approve, reject or confirm;
// the buyer may cancel.
func (s *OrderService) ChangeStatus(ctx context.Context, userID, orderID string, req models.StatusChangeRequest) (*models.Order, error) {
	switch req.Status {
	case models.OrderApproved:
		return s.Approve(ctx, userID, orderID)
	case models.OrderRejected:
		return s.Reject(ctx, userID, orderID, req.Reason)
	case models.OrderConfirmed:
		return s.Confirm(ctx, models.Actor{UserID: userID, Role: models.ActorOrganizer}, orderID, req.PaymentReference)
	case models.OrderCancelled:
		return s.Cancel(ctx, models.Actor{UserID: userID, Role: models.ActorBuyer}, orderID, req.Reason)
	default:
		return nil, apperrors.Invalid("status", fmt.Sprintf("unsupported target %q", req.Status))
	}
}

// Approve moves a pending order to approved. When a settlement already arrived
// for the order, it is confirmed straight away with that reference.
func (s *OrderService) Approve(ctx context.Context, organizerID, orderID string) (*models.Order, error) {
	approved, err := s.transition(ctx, models.Actor{UserID: organizerID, Role: models.ActorOrganizer}, orderID, models.OrderApproved, "", "")
	if err != nil || approved.PaymentReference == "" {
		return approved, err
	}
	confirmed, err := s.transitionFrom(ctx, models.SystemActor("payment"), orderID, models.OrderApproved, models.OrderConfirmed, "", approved.PaymentReference)
	if err != nil {
		s.Logger.Error("PAYMENT", fmt.Sprintf("Order %s approved but parked settlement %s not applied: %v", orderID, approved.PaymentReference, err))
		return approved, nil
	}
	return confirmed, nil
}

// Reject requires a reason; it is recorded on the order and sent to the buyer.
func (s *OrderService) Reject(ctx context.Context, organizerID, orderID, reason string) (*models.Order, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, apperrors.Invalid("reason", "required when rejecting")
	}
	return s.transition(ctx, models.Actor{UserID: organizerID, Role: models.ActorOrganizer}, orderID, models.OrderRejected, strings.TrimSpace(reason), "")
}

// Confirm marks an approved order paid. The organizer may confirm manually;
// the payment consumer confirms as a system actor with the settlement reference.
func (s *OrderService) Confirm(ctx context.Context, actor models.Actor, orderID, paymentReference string) (*models.Order, error) {
	if actor.Role == models.ActorBuyer {
		return nil, fmt.Errorf("buyers cannot confirm orders: %w", apperrors.ErrForbidden)
	}
	return s.transition(ctx, actor, orderID, models.OrderConfirmed, "", paymentReference)
}

func (s *OrderService) Cancel(ctx context.Context, actor models.Actor, orderID, reason string) (*models.Order, error) {
	return s.transition(ctx, actor, orderID, models.OrderCancelled, strings.TrimSpace(reason), "")
}

// transition authorizes the actor, checks the lifecycle table and performs a
// compare-and-set move from the status the order had when read. A concurrent
// writer that got there first surfaces as a TransitionError.
func (s *OrderService) transition(ctx context.Context, actor models.Actor, orderID string, target models.OrderStatus, reason, paymentRef string) (*models.Order, error) {
	return s.transitionFrom(ctx, actor, orderID, "", target, reason, paymentRef)
}

// transitionFrom is transition with an optional required starting status.
func (s *OrderService) transitionFrom(ctx context.Context, actor models.Actor, orderID string, from, target models.OrderStatus, reason, paymentRef string) (*models.Order, error) {
	current, err := s.DB.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if from != "" && current.Status != from {
		return nil, &apperrors.TransitionError{OrderID: orderID, Current: string(current.Status), Target: string(target)}
	}
	event, err := s.authorize(ctx, actor, current, target)
	if err != nil {
		metrics.ObserveTransition(string(target), "forbidden")
		return nil, err
	}
	if !current.Status.CanTransitionTo(target) || (current.CheckedIn && target.Releases()) {
		metrics.ObserveTransition(string(target), "refused")
		return nil, &apperrors.TransitionError{OrderID: orderID, Current: string(current.Status), Target: string(target), CheckedIn: current.CheckedIn}
	}

	var updated *models.Order
	err = s.withRetry(ctx, "transition", func(ctx context.Context) error {
		o, err := s.DB.TransitionStatus(ctx, models.TransitionParams{
			OrderID:          orderID,
			From:             current.Status,
			To:               target,
			Reason:           reason,
			PaymentReference: paymentRef,
			At:               s.Now(),
		})
		if err != nil {
			return err
		}
		updated = o
		return nil
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrStaleState) {
			metrics.ObserveTransition(string(target), "stale")
		} else {
			metrics.ObserveTransition(string(target), "error")
		}
		return nil, err
	}

	metrics.ObserveTransition(string(target), "ok")
	s.Logger.LogOrder(strings.ToUpper(string(target)), orderID, fmt.Sprintf("%s -> %s by %s %s", current.Status, target, actor.Role, actor.UserID))

	organizerID := ""
	if event != nil {
		organizerID = event.OrganizerID
	}
	s.publishWithOrganizer(models.EventTypeFor(target), updated, current.Status, actor, organizerID)
	return updated, nil
}

// authorize returns the owning event when it is known locally. System actors
// are trusted and proceed even if the replica has not seen the event yet.
func (s *OrderService) authorize(ctx context.Context, actor models.Actor, o *models.Order, target models.OrderStatus) (*models.Event, error) {
	event, err := s.Events.Get(ctx, o.EventID)
	if err != nil && !(actor.Role == models.ActorSystem && errors.Is(err, apperrors.ErrNotFound)) {
		return nil, err
	}

	switch actor.Role {
	case models.ActorSystem:
		return event, nil
	case models.ActorOrganizer:
		if target != models.OrderCancelled && event.OwnedBy(actor.UserID) {
			return event, nil
		}
	case models.ActorBuyer:
		if target == models.OrderCancelled && o.BuyerID == actor.UserID {
			return event, nil
		}
	}
	s.Logger.LogSecurity("FORBIDDEN", fmt.Sprintf("%s %s may not move order %s to %s", actor.Role, actor.UserID, o.OrderID, target))
	return nil, fmt.Errorf("order %s: %w", o.OrderID, apperrors.ErrForbidden)
}

// ---------------- QUERIES ----------------

// GetOrder returns an order to its buyer or to the event organizer.
func (s *OrderService) GetOrder(ctx context.Context, userID, orderID string) (*models.Order, error) {
	o, err := s.DB.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.BuyerID == userID {
		return o, nil
	}
	event, err := s.Events.Get(ctx, o.EventID)
	if err == nil && event.OwnedBy(userID) {
		return o, nil
	}
	return nil, fmt.Errorf("order %s: %w", orderID, apperrors.ErrForbidden)
}

func (s *OrderService) ListForBuyer(ctx context.Context, buyerID string) ([]models.Order, error) {
	return s.DB.ListByBuyer(ctx, buyerID)
}

// ListForEvent is the organizer's approval queue; status may be empty.
func (s *OrderService) ListForEvent(ctx context.Context, organizerID, eventID string, status models.OrderStatus) ([]models.Order, error) {
	if status != "" && !status.Valid() {
		return nil, apperrors.Invalid("status", fmt.Sprintf("unknown status %q", status))
	}
	if err := s.AuthorizeEvent(ctx, organizerID, eventID); err != nil {
		return nil, err
	}
	return s.DB.ListByEvent(ctx, eventID, status)
}

// AuthorizeEvent fails with ErrForbidden unless organizerID owns eventID.
func (s *OrderService) AuthorizeEvent(ctx context.Context, organizerID, eventID string) error {
	event, err := s.Events.Get(ctx, eventID)
	if err != nil {
		return err
	}
	if !event.OwnedBy(organizerID) {
		return fmt.Errorf("event %s: %w", eventID, apperrors.ErrForbidden)
	}
	return nil
}

// ---------------- HOLD EXPIRY ----------------

// StalePending lists pending orders older than holdTimeout.
func (s *OrderService) StalePending(ctx context.Context, holdTimeout time.Duration, limit int) ([]models.Order, error) {
	return s.DB.ListStalePending(ctx, s.Now().Add(-holdTimeout), limit)
}

// ExpirePending cancels a pending order whose hold has lapsed. Orders that
// left pending in the meantime are skipped, not reported as errors.
func (s *OrderService) ExpirePending(ctx context.Context, orderID string) (bool, error) {
	_, err := s.transitionFrom(ctx, models.SystemActor("hold-expiry"), orderID, models.OrderPending, models.OrderCancelled, "hold expired", "")
	if errors.Is(err, apperrors.ErrStaleState) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ---------------- EVENTS ----------------

func (s *OrderService) publish(t models.OrderEventType, o *models.Order, previous models.OrderStatus, actor models.Actor) {
	if s.Publisher == nil {
		return
	}
	organizerID := ""
	if event, err := s.Events.Get(context.Background(), o.EventID); err == nil {
		organizerID = event.OrganizerID
	}
	s.publishWithOrganizer(t, o, previous, actor, organizerID)
}

func (s *OrderService) publishWithOrganizer(t models.OrderEventType, o *models.Order, previous models.OrderStatus, actor models.Actor, organizerID string) {
	if s.Publisher == nil {
		return
	}
	event := models.NewOrderEvent(t, o, previous, actor, s.Now())
	event.OrganizerID = organizerID
	s.Publisher.Publish(event)
}
