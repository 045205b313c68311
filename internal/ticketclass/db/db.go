package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"event-ticketing/internal/apperrors"
	"event-ticketing/internal/database"
	"event-ticketing/internal/eventstore"
	"event-ticketing/internal/models"

	"github.com/uptrace/bun"
)

type DB struct {
	Bun *bun.DB
}

// CreateClass inserts class and, when it is the event's first, flips the
// event's selling flags in the same transaction.
func (d *DB) CreateClass(ctx context.Context, class *models.TicketClass) (bool, error) {
	first := false
	err := d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		existing, err := tx.NewSelect().
			Model((*models.TicketClass)(nil)).
			Where("event_id = ?", class.EventID).
			Count(ctx)
		if err != nil {
			return fmt.Errorf("count classes for event %s: %w", class.EventID, err)
		}

		if _, err := tx.NewInsert().Model(class).Exec(ctx); err != nil {
			return fmt.Errorf("insert ticket class: %w", err)
		}

		if existing == 0 {
			first = true
			return eventstore.MarkSelling(ctx, tx, class.EventID, class.CreatedAt)
		}
		return nil
	})
	return first, err
}

func (d *DB) GetClass(ctx context.Context, classID string) (*models.TicketClass, error) {
	class := new(models.TicketClass)
	err := d.Bun.NewSelect().Model(class).Where("id = ?", classID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("ticket class %s: %w", classID, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return class, nil
}

// UpdateClass locks the class row, computes net sold and lets mutate change
// the class before it is written back. Returning an error from mutate aborts
// the transaction.
func (d *DB) UpdateClass(ctx context.Context, classID string, mutate func(class *models.TicketClass, netSold int) error) (*models.TicketClass, error) {
	var updated *models.TicketClass
	err := d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		class, err := database.LockClass(ctx, tx, classID)
		if err != nil {
			return err
		}
		netSold, err := database.SumQuantity(ctx, tx, classID, models.SoldStatuses())
		if err != nil {
			return err
		}
		if err := mutate(class, netSold); err != nil {
			return err
		}
		_, err = tx.NewUpdate().
			Model(class).
			Column("name", "description", "unit_price", "capacity", "display_order", "sale_start", "sale_end", "status", "updated_at").
			WherePK().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("update ticket class %s: %w", classID, err)
		}
		updated = class
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteClass removes a class that never sold a unit, together with its
// pending, rejected and cancelled orders. The pending ones are returned as
// cancelled so their buyers can be told the hold is gone.
func (d *DB) DeleteClass(ctx context.Context, classID, reason string, at time.Time) ([]models.Order, error) {
	var dropped []models.Order
	err := d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := database.LockClass(ctx, tx, classID); err != nil {
			return err
		}
		netSold, err := database.SumQuantity(ctx, tx, classID, models.SoldStatuses())
		if err != nil {
			return err
		}
		if netSold > 0 {
			return &apperrors.ClassInUseError{ClassID: classID, NetSold: netSold}
		}

		if err := tx.NewSelect().
			Model(&dropped).
			Where("ticket_class_id = ?", classID).
			Where("status = ?", models.OrderPending).
			Scan(ctx); err != nil {
			return fmt.Errorf("list pending orders of class %s: %w", classID, err)
		}
		if _, err := tx.NewDelete().
			Model((*models.Order)(nil)).
			Where("ticket_class_id = ?", classID).
			Exec(ctx); err != nil {
			return fmt.Errorf("delete orders of class %s: %w", classID, err)
		}
		if _, err := tx.NewDelete().
			Model((*models.TicketClass)(nil)).
			Where("id = ?", classID).
			Exec(ctx); err != nil {
			return fmt.Errorf("delete ticket class %s: %w", classID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for i := range dropped {
		dropped[i].Status = models.OrderCancelled
		dropped[i].StatusReason = reason
		dropped[i].UpdatedAt = at
	}
	return dropped, nil
}

// ListByEvent returns classes in display order. Drafts are left out unless
// includeDrafts is set.
func (d *DB) ListByEvent(ctx context.Context, eventID string, includeDrafts bool) ([]models.TicketClass, error) {
	var classes []models.TicketClass
	q := d.Bun.NewSelect().
		Model(&classes).
		Where("event_id = ?", eventID).
		Order("display_order ASC", "created_at ASC")
	if !includeDrafts {
		q = q.Where("status != ?", models.ClassDraft)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("list classes for event %s: %w", eventID, err)
	}
	return classes, nil
}
