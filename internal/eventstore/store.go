// Package eventstore keeps the local replica of event metadata owned by the
// event service. Ownership checks and the "event sells tickets" flag live here.
package eventstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"event-ticketing/internal/apperrors"
	"event-ticketing/internal/kafka"
	"event-ticketing/internal/logger"
	"event-ticketing/internal/models"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/uptrace/bun"
)

type Store struct {
	Bun bun.IDB
}

func New(db bun.IDB) *Store {
	return &Store{Bun: db}
}

func (s *Store) Get(ctx context.Context, eventID string) (*models.Event, error) {
	event := new(models.Event)
	err := s.Bun.NewSelect().Model(event).Where("id = ?", eventID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("event %s: %w", eventID, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load event %s: %w", eventID, err)
	}
	return event, nil
}

// Upsert applies metadata from the event service. The ticketing-owned flags
// (sells_tickets, is_public) are never overwritten.
func (s *Store) Upsert(ctx context.Context, event *models.Event) error {
	if event.UpdatedAt.IsZero() {
		event.UpdatedAt = time.Now().UTC()
	}
	_, err := s.Bun.NewInsert().
		Model(event).
		On("CONFLICT (id) DO UPDATE").
		Set("organizer_id = EXCLUDED.organizer_id").
		Set("name = EXCLUDED.name").
		Set("starts_at = EXCLUDED.starts_at").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert event %s: %w", event.ID, err)
	}
	return nil
}

// MarkSelling flags the event as selling and publicly listed. It runs inside
// the class-creation transaction.
func MarkSelling(ctx context.Context, tx bun.IDB, eventID string, at time.Time) error {
	_, err := tx.NewUpdate().
		Model((*models.Event)(nil)).
		Set("sells_tickets = ?", true).
		Set("is_public = ?", true).
		Set("updated_at = ?", at).
		Where("id = ?", eventID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("mark event %s selling: %w", eventID, err)
	}
	return nil
}

// UpsertHandler consumes event-service upserts into the replica.
func (s *Store) UpsertHandler(log *logger.Logger) kafka.HandlerFunc {
	return func(ctx context.Context, msg kafkago.Message) error {
		var in models.EventUpsertedMessage
		if err := json.Unmarshal(msg.Value, &in); err != nil {
			return kafka.Permanent(fmt.Errorf("decode event upsert: %w", err))
		}
		if in.EventID == "" || in.OrganizerID == "" {
			return kafka.Permanent(errors.New("event upsert missing event_id or organizer_id"))
		}
		err := s.Upsert(ctx, &models.Event{
			ID:          in.EventID,
			OrganizerID: in.OrganizerID,
			Name:        in.Name,
			StartsAt:    in.StartsAt,
			UpdatedAt:   time.Now().UTC(),
		})
		if err != nil {
			return err
		}
		log.LogDatabase("UPSERT", "events", in.EventID)
		return nil
	}
}
