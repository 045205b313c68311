package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"event-ticketing/internal/apperrors"
	"event-ticketing/internal/models"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

// LockClass loads a ticket class inside tx and holds its row lock until the
// transaction ends. SQLite has no row locks; there the single writer
// connection gives the same exclusion.
func LockClass(ctx context.Context, tx bun.Tx, classID string) (*models.TicketClass, error) {
	class := new(models.TicketClass)
	q := tx.NewSelect().Model(class).Where("id = ?", classID)
	if tx.Dialect().Name() == dialect.PG {
		q = q.For("UPDATE")
	}
	err := q.Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("ticket class %s: %w", classID, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("lock ticket class %s: %w", classID, err)
	}
	return class, nil
}

// SumQuantity adds up order quantities for one class over the given statuses.
// Counters are never stored; every figure is derived here.
func SumQuantity(ctx context.Context, db bun.IDB, classID string, statuses []string) (int, error) {
	var total int
	err := db.NewSelect().
		Model((*models.Order)(nil)).
		ColumnExpr("COALESCE(SUM(quantity), 0)").
		Where("ticket_class_id = ?", classID).
		Where("status IN (?)", bun.In(statuses)).
		Scan(ctx, &total)
	if err != nil {
		return 0, fmt.Errorf("sum quantity for class %s: %w", classID, err)
	}
	return total, nil
}
