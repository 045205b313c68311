package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"event-ticketing/internal/apperrors"
	"event-ticketing/internal/models"

	"github.com/uptrace/bun"
)

type DB struct {
	Bun *bun.DB
}

// Summary joins an order with its class and event for the gate screen.
// The event replica may lag, so it is a LEFT JOIN.
func (d *DB) Summary(ctx context.Context, ticketCode string) (*models.OrderSummary, error) {
	summary := new(models.OrderSummary)
	err := d.Bun.NewSelect().
		TableExpr("orders AS o").
		ColumnExpr("o.ticket_code, o.buyer_name, o.quantity, o.status, o.checked_in, o.checked_in_at").
		ColumnExpr("c.name AS class_name").
		ColumnExpr("e.name AS event_name, e.starts_at AS event_start").
		Join("JOIN ticket_classes AS c ON c.id = o.ticket_class_id").
		Join("LEFT JOIN events AS e ON e.id = o.event_id").
		Where("o.ticket_code = ?", ticketCode).
		Limit(1).
		Scan(ctx, summary)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("ticket %s: %w", ticketCode, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load ticket %s: %w", ticketCode, err)
	}
	return summary, nil
}
