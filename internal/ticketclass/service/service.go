package ticketclass

import (
	"context"
	"fmt"
	"strings"
	"time"

	"event-ticketing/internal/apperrors"
	"event-ticketing/internal/logger"
	"event-ticketing/internal/models"
	"event-ticketing/internal/utils"

	"github.com/shopspring/decimal"
)

type ClassDBLayer interface {
	CreateClass(ctx context.Context, class *models.TicketClass) (bool, error)
	GetClass(ctx context.Context, classID string) (*models.TicketClass, error)
	UpdateClass(ctx context.Context, classID string, mutate func(class *models.TicketClass, netSold int) error) (*models.TicketClass, error)
	DeleteClass(ctx context.Context, classID, reason string, at time.Time) ([]models.Order, error)
	ListByEvent(ctx context.Context, eventID string, includeDrafts bool) ([]models.TicketClass, error)
}

type EventDirectory interface {
	Get(ctx context.Context, eventID string) (*models.Event, error)
}

// EventPublisher receives order changes caused by catalog edits. Publish must not block.
type EventPublisher interface {
	Publish(event models.OrderEvent)
}

type InventoryReader interface {
	FiguresByEvent(ctx context.Context, eventID string) (map[string]models.ClassFigures, error)
}

type TicketClassService struct {
	DB        ClassDBLayer
	Events    EventDirectory
	Inventory InventoryReader
	Publisher EventPublisher
	Logger    *logger.Logger
	Now       func() time.Time
}

func NewTicketClassService(db ClassDBLayer, events EventDirectory, inventory InventoryReader, publisher EventPublisher, log *logger.Logger) *TicketClassService {
	return &TicketClassService{
		DB:        db,
		Events:    events,
		Inventory: inventory,
		Publisher: publisher,
		Logger:    log,
		Now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *TicketClassService) authorizeEvent(ctx context.Context, organizerID, eventID string) (*models.Event, error) {
	event, err := s.Events.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !event.OwnedBy(organizerID) {
		s.Logger.LogSecurity("FORBIDDEN", fmt.Sprintf("user %s is not the organizer of event %s", organizerID, eventID))
		return nil, fmt.Errorf("event %s: %w", eventID, apperrors.ErrForbidden)
	}
	return event, nil
}

func (s *TicketClassService) Create(ctx context.Context, organizerID, eventID string, req models.CreateTicketClassRequest) (*models.TicketClass, error) {
	status := models.ClassOnSale
	if req.Status != nil {
		status = *req.Status
	}
	if err := validateClass(req.Name, req.UnitPrice, req.Capacity, req.SaleStart, req.SaleEnd, status); err != nil {
		return nil, err
	}
	if _, err := s.authorizeEvent(ctx, organizerID, eventID); err != nil {
		return nil, err
	}

	now := s.Now()
	class := &models.TicketClass{
		ID:           utils.GenerateID(),
		EventID:      eventID,
		Name:         strings.TrimSpace(req.Name),
		Description:  req.Description,
		UnitPrice:    req.UnitPrice,
		Capacity:     req.Capacity,
		DisplayOrder: req.DisplayOrder,
		SaleStart:    req.SaleStart,
		SaleEnd:      req.SaleEnd,
		Status:       status,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	first, err := s.DB.CreateClass(ctx, class)
	if err != nil {
		return nil, err
	}
	if first {
		s.Logger.Info("CATALOG", fmt.Sprintf("Event %s now sells tickets", eventID))
	}
	s.Logger.Info("CATALOG", fmt.Sprintf("Created ticket class %s (%s) capacity=%d", class.ID, class.Name, class.Capacity))
	return class, nil
}

// Update applies a partial change. Capacity may drop to the units already
// sold but not below.
func (s *TicketClassService) Update(ctx context.Context, organizerID, classID string, req models.UpdateTicketClassRequest) (*models.TicketClass, error) {
	current, err := s.DB.GetClass(ctx, classID)
	if err != nil {
		return nil, err
	}
	if _, err := s.authorizeEvent(ctx, organizerID, current.EventID); err != nil {
		return nil, err
	}

	now := s.Now()
	updated, err := s.DB.UpdateClass(ctx, classID, func(class *models.TicketClass, netSold int) error {
		applyUpdate(class, req)
		if err := validateClass(class.Name, class.UnitPrice, class.Capacity, class.SaleStart, class.SaleEnd, class.Status); err != nil {
			return err
		}
		if class.Capacity < netSold {
			return &apperrors.CapacityFloorError{Requested: class.Capacity, NetSold: netSold}
		}
		class.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Logger.Info("CATALOG", fmt.Sprintf("Updated ticket class %s capacity=%d status=%s", classID, updated.Capacity, updated.Status))
	return updated, nil
}

func (s *TicketClassService) Delete(ctx context.Context, organizerID, classID string) error {
	class, err := s.DB.GetClass(ctx, classID)
	if err != nil {
		return err
	}
	event, err := s.authorizeEvent(ctx, organizerID, class.EventID)
	if err != nil {
		return err
	}
	now := s.Now()
	dropped, err := s.DB.DeleteClass(ctx, classID, "ticket class withdrawn", now)
	if err != nil {
		return err
	}
	s.Logger.Info("CATALOG", fmt.Sprintf("Deleted ticket class %s, %d pending orders cancelled", classID, len(dropped)))

	if s.Publisher == nil {
		return nil
	}
	actor := models.Actor{UserID: organizerID, Role: models.ActorOrganizer}
	for i := range dropped {
		evt := models.NewOrderEvent(models.OrderCancelledEvent, &dropped[i], models.OrderPending, actor, now)
		evt.OrganizerID = event.OrganizerID
		s.Publisher.Publish(evt)
	}
	return nil
}

func (s *TicketClassService) Get(ctx context.Context, classID string) (*models.TicketClass, error) {
	return s.DB.GetClass(ctx, classID)
}

// ListPublic is the buyer-facing listing: drafts hidden, "sold" counts every
// unit currently held.
func (s *TicketClassService) ListPublic(ctx context.Context, eventID string) ([]models.PublicClassListing, error) {
	if _, err := s.Events.Get(ctx, eventID); err != nil {
		return nil, err
	}
	classes, figures, err := s.load(ctx, eventID, false)
	if err != nil {
		return nil, err
	}
	now := s.Now()
	out := make([]models.PublicClassListing, 0, len(classes))
	for _, class := range classes {
		out = append(out, publicListing(class, figures[class.ID], now))
	}
	return out, nil
}

// ListForOrganizer shows every class with the organizer-confirmed figure.
func (s *TicketClassService) ListForOrganizer(ctx context.Context, organizerID, eventID string) ([]models.OrganizerClassListing, error) {
	if _, err := s.authorizeEvent(ctx, organizerID, eventID); err != nil {
		return nil, err
	}
	classes, figures, err := s.load(ctx, eventID, true)
	if err != nil {
		return nil, err
	}
	now := s.Now()
	out := make([]models.OrganizerClassListing, 0, len(classes))
	for _, class := range classes {
		f := figures[class.ID]
		out = append(out, models.OrganizerClassListing{
			PublicClassListing: publicListing(class, f, now),
			GrossHeld:          f.GrossHeld,
			NetSold:            f.NetSold,
		})
	}
	return out, nil
}

func (s *TicketClassService) load(ctx context.Context, eventID string, includeDrafts bool) ([]models.TicketClass, map[string]models.ClassFigures, error) {
	classes, err := s.DB.ListByEvent(ctx, eventID, includeDrafts)
	if err != nil {
		return nil, nil, err
	}
	figures, err := s.Inventory.FiguresByEvent(ctx, eventID)
	if err != nil {
		return nil, nil, err
	}
	return classes, figures, nil
}

func publicListing(class models.TicketClass, f models.ClassFigures, now time.Time) models.PublicClassListing {
	inv := models.NewClassInventory(class, f)
	return models.PublicClassListing{
		ID:           class.ID,
		Name:         class.Name,
		Description:  class.Description,
		UnitPrice:    class.UnitPrice,
		Capacity:     class.Capacity,
		Status:       string(class.Status),
		OnSale:       class.OnSaleAt(now) && inv.Available > 0,
		Sold:         inv.GrossHeld,
		Available:    inv.Available,
		DisplayOrder: class.DisplayOrder,
	}
}

func applyUpdate(class *models.TicketClass, req models.UpdateTicketClassRequest) {
	if req.Name != nil {
		class.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		class.Description = *req.Description
	}
	if req.UnitPrice != nil {
		class.UnitPrice = *req.UnitPrice
	}
	if req.Capacity != nil {
		class.Capacity = *req.Capacity
	}
	if req.DisplayOrder != nil {
		class.DisplayOrder = *req.DisplayOrder
	}
	if req.SaleStart != nil {
		class.SaleStart = req.SaleStart
	}
	if req.SaleEnd != nil {
		class.SaleEnd = req.SaleEnd
	}
	if req.ClearSaleStart {
		class.SaleStart = nil
	}
	if req.ClearSaleEnd {
		class.SaleEnd = nil
	}
	if req.Status != nil {
		class.Status = *req.Status
	}
}

func validateClass(name string, price decimal.Decimal, capacity int, start, end *time.Time, status models.TicketClassStatus) error {
	v := apperrors.NewValidationError()
	if strings.TrimSpace(name) == "" {
		v.Add("name", "is required")
	}
	if price.IsNegative() {
		v.Add("unit_price", "must not be negative")
	}
	if capacity < 0 {
		v.Add("capacity", "must not be negative")
	}
	if start != nil && end != nil && !start.Before(*end) {
		v.Add("sale_end", "must be after sale_start")
	}
	if !status.Valid() {
		v.Add("status", "must be one of draft, on_sale, paused, closed")
	}
	return v.OrNil()
}
