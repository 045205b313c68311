package analytics

import (
	"context"
	"fmt"

	"event-ticketing/internal/apperrors"
	"event-ticketing/internal/models"

	"github.com/shopspring/decimal"
)

type FiguresReader interface {
	FiguresByEvent(ctx context.Context, eventID string) (map[string]models.ClassFigures, error)
	FiguresForClass(ctx context.Context, classID string) (models.ClassFigures, error)
}

type ClassReader interface {
	GetClass(ctx context.Context, classID string) (*models.TicketClass, error)
	ListByEvent(ctx context.Context, eventID string, includeDrafts bool) ([]models.TicketClass, error)
}

type EventDirectory interface {
	Get(ctx context.Context, eventID string) (*models.Event, error)
}

// Service is the read-only inventory view. Nothing here is cached; every
// figure is recomputed from the order ledger per request.
type Service struct {
	Figures FiguresReader
	Classes ClassReader
	Events  EventDirectory
}

func NewService(figures FiguresReader, classes ClassReader, events EventDirectory) *Service {
	return &Service{Figures: figures, Classes: classes, Events: events}
}

func (s *Service) FiguresByEvent(ctx context.Context, eventID string) (map[string]models.ClassFigures, error) {
	return s.Figures.FiguresByEvent(ctx, eventID)
}

func (s *Service) ClassInventory(ctx context.Context, class models.TicketClass) (models.ClassInventory, error) {
	figures, err := s.Figures.FiguresForClass(ctx, class.ID)
	if err != nil {
		return models.ClassInventory{}, err
	}
	return models.NewClassInventory(class, figures), nil
}

// ClassInventoryFor is the single-class organizer view.
func (s *Service) ClassInventoryFor(ctx context.Context, organizerID, classID string) (models.ClassInventory, error) {
	class, err := s.Classes.GetClass(ctx, classID)
	if err != nil {
		return models.ClassInventory{}, err
	}
	if err := s.authorize(ctx, organizerID, class.EventID); err != nil {
		return models.ClassInventory{}, err
	}
	return s.ClassInventory(ctx, *class)
}

func (s *Service) authorize(ctx context.Context, organizerID, eventID string) error {
	event, err := s.Events.Get(ctx, eventID)
	if err != nil {
		return err
	}
	if !event.OwnedBy(organizerID) {
		return fmt.Errorf("inventory of event %s: %w", eventID, apperrors.ErrForbidden)
	}
	return nil
}

// EventInventory is the organizer dashboard: every class including drafts,
// plus event totals.
func (s *Service) EventInventory(ctx context.Context, organizerID, eventID string) (*models.EventInventory, error) {
	if err := s.authorize(ctx, organizerID, eventID); err != nil {
		return nil, err
	}

	classes, err := s.Classes.ListByEvent(ctx, eventID, true)
	if err != nil {
		return nil, err
	}
	figures, err := s.Figures.FiguresByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return Summarize(eventID, classes, figures), nil
}

// Summarize folds per-class figures into event totals.
func Summarize(eventID string, classes []models.TicketClass, figures map[string]models.ClassFigures) *models.EventInventory {
	inv := &models.EventInventory{
		EventID:    eventID,
		Classes:    make([]models.ClassInventory, 0, len(classes)),
		NetRevenue: decimal.Zero,
	}
	for _, class := range classes {
		ci := models.NewClassInventory(class, figures[class.ID])
		inv.Classes = append(inv.Classes, ci)
		inv.TotalCapacity += class.Capacity
		inv.GrossHeld += ci.GrossHeld
		inv.NetSold += ci.NetSold
		inv.Available += ci.Available
		inv.NetRevenue = inv.NetRevenue.Add(ci.NetRevenue)
	}
	return inv
}
