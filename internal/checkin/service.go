package checkin

import (
	"context"
	"fmt"
	"time"

	"event-ticketing/internal/apperrors"
	"event-ticketing/internal/checkin/qr"
	"event-ticketing/internal/logger"
	"event-ticketing/internal/metrics"
	"event-ticketing/internal/models"
	"event-ticketing/internal/utils"
)

type OrderStore interface {
	GetOrderByTicketCode(ctx context.Context, code string) (*models.Order, error)
	MarkCheckedIn(ctx context.Context, code string, at time.Time) (bool, error)
}

type SummaryReader interface {
	Summary(ctx context.Context, ticketCode string) (*models.OrderSummary, error)
}

type EventDirectory interface {
	Get(ctx context.Context, eventID string) (*models.Event, error)
}

type EventPublisher interface {
	Publish(event models.OrderEvent)
}

type Service struct {
	Orders    OrderStore
	Summaries SummaryReader
	Events    EventDirectory
	Publisher EventPublisher
	QR        *qr.Generator
	Logger    *logger.Logger
	Now       func() time.Time
}

func NewService(orders OrderStore, summaries SummaryReader, events EventDirectory, publisher EventPublisher, log *logger.Logger) *Service {
	return &Service{
		Orders:    orders,
		Summaries: summaries,
		Events:    events,
		Publisher: publisher,
		QR:        qr.NewGenerator(qr.DefaultSize),
		Logger:    log,
		Now:       func() time.Time { return time.Now().UTC() },
	}
}

func normalize(code string) (string, error) {
	code = utils.NormalizeTicketCode(code)
	if code == "" {
		return "", apperrors.Invalid("ticket_code", "required")
	}
	return code, nil
}

// Lookup is the public verification view. It never exposes internal ids.
func (s *Service) Lookup(ctx context.Context, ticketCode string) (*models.OrderSummary, error) {
	code, err := normalize(ticketCode)
	if err != nil {
		return nil, err
	}
	return s.Summaries.Summary(ctx, code)
}

// QRCode renders the ticket code as a PNG for existing tickets only.
func (s *Service) QRCode(ctx context.Context, ticketCode string) ([]byte, error) {
	code, err := normalize(ticketCode)
	if err != nil {
		return nil, err
	}
	if _, err := s.Orders.GetOrderByTicketCode(ctx, code); err != nil {
		return nil, err
	}
	return s.QR.TicketPNG(code)
}

// CheckIn admits a ticket exactly once. A repeat attempt returns the original
// admission time together with an AlreadyCheckedInError.
func (s *Service) CheckIn(ctx context.Context, ticketCode, organizerID string) (*models.CheckInResult, error) {
	code, err := normalize(ticketCode)
	if err != nil {
		return nil, err
	}
	o, err := s.Orders.GetOrderByTicketCode(ctx, code)
	if err != nil {
		metrics.ObserveCheckIn("not_found")
		return nil, err
	}

	event, err := s.Events.Get(ctx, o.EventID)
	if err != nil {
		return nil, err
	}
	if !event.OwnedBy(organizerID) {
		s.Logger.LogSecurity("FORBIDDEN", fmt.Sprintf("user %s tried to check in %s for event %s", organizerID, code, o.EventID))
		metrics.ObserveCheckIn("forbidden")
		return nil, fmt.Errorf("event %s: %w", o.EventID, apperrors.ErrForbidden)
	}

	if result, err := s.refuse(o); err != nil {
		return result, err
	}

	now := s.Now()
	admitted, err := s.Orders.MarkCheckedIn(ctx, code, now)
	if err != nil {
		return nil, err
	}
	if !admitted {
		// lost to a concurrent scan or a status change; report what won
		current, err := s.Orders.GetOrderByTicketCode(ctx, code)
		if err != nil {
			return nil, err
		}
		result, err := s.refuse(current)
		if err != nil {
			return result, err
		}
		return nil, fmt.Errorf("check in %s: not applied", code)
	}

	metrics.ObserveCheckIn("admitted")
	s.Logger.LogCheckIn(code, "ADMITTED")

	o.CheckedIn = true
	o.CheckedInAt = &now
	if s.Publisher != nil {
		evt := models.NewOrderEvent(models.OrderCheckedInEvent, o, o.Status, models.Actor{UserID: organizerID, Role: models.ActorOrganizer}, now)
		evt.OrganizerID = event.OrganizerID
		s.Publisher.Publish(evt)
	}

	return &models.CheckInResult{
		TicketCode:  code,
		CheckedInAt: now,
		Quantity:    o.Quantity,
		BuyerName:   o.BuyerName,
	}, nil
}

// refuse reports why o cannot be admitted, or nil when it can.
func (s *Service) refuse(o *models.Order) (*models.CheckInResult, error) {
	if !o.Status.CheckInAllowed() {
		metrics.ObserveCheckIn("invalid_status")
		s.Logger.LogCheckIn(o.TicketCode, "REFUSED_"+string(o.Status))
		return nil, &apperrors.InvalidStatusError{TicketCode: o.TicketCode, Status: string(o.Status)}
	}
	if o.CheckedIn {
		var at time.Time
		if o.CheckedInAt != nil {
			at = *o.CheckedInAt
		}
		metrics.ObserveCheckIn("already_checked_in")
		s.Logger.LogCheckIn(o.TicketCode, "ALREADY_CHECKED_IN")
		return &models.CheckInResult{
			TicketCode:       o.TicketCode,
			CheckedInAt:      at,
			AlreadyCheckedIn: true,
			Quantity:         o.Quantity,
			BuyerName:        o.BuyerName,
		}, &apperrors.AlreadyCheckedInError{TicketCode: o.TicketCode, CheckedInAt: at}
	}
	return nil, nil
}
