package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"event-ticketing/internal/apperrors"
	"event-ticketing/internal/database"
	"event-ticketing/internal/models"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type DB struct {
	Bun *bun.DB
}

// ---------------- RESERVATIONS ----------------

// Reserve claims order.Quantity units of order.TicketClassID and inserts the
// order as pending. Lock, recount, compare and insert happen in one
// transaction, so two claims on one class can never both see the same
// remaining units. Price and event are copied from the locked class row.
func (d *DB) Reserve(ctx context.Context, order *models.Order, now time.Time) (*models.Order, error) {
	err := d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		class, err := database.LockClass(ctx, tx, order.TicketClassID)
		if err != nil {
			return err
		}
		if !class.OnSaleAt(now) {
			return fmt.Errorf("ticket class %s is %s: %w", class.ID, class.Status, apperrors.ErrNotOnSale)
		}

		held, err := database.SumQuantity(ctx, tx, class.ID, models.ActiveStatuses())
		if err != nil {
			return err
		}
		if held+order.Quantity > class.Capacity {
			available := class.Capacity - held
			if available < 0 {
				available = 0
			}
			return &apperrors.InsufficientInventoryError{ClassID: class.ID, Requested: order.Quantity, Available: available}
		}

		order.EventID = class.EventID
		order.UnitPrice = class.UnitPrice
		order.TotalAmount = class.UnitPrice.Mul(decimal.NewFromInt(int64(order.Quantity)))
		if _, err := tx.NewInsert().Model(order).Exec(ctx); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// ---------------- ORDERS ----------------

func (d *DB) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	return getOrder(ctx, d.Bun, "order_id = ?", id)
}

func (d *DB) GetOrderByTicketCode(ctx context.Context, code string) (*models.Order, error) {
	return getOrder(ctx, d.Bun, "ticket_code = ?", code)
}

func getOrder(ctx context.Context, db bun.IDB, where string, arg string) (*models.Order, error) {
	order := new(models.Order)
	err := db.NewSelect().Model(order).Where(where, arg).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("order %s: %w", arg, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load order %s: %w", arg, err)
	}
	return order, nil
}

func (d *DB) ListByBuyer(ctx context.Context, buyerID string) ([]models.Order, error) {
	var orders []models.Order
	err := d.Bun.NewSelect().
		Model(&orders).
		Where("buyer_id = ?", buyerID).
		Order("created_at DESC").
		Scan(ctx)
	return orders, err
}

// ListByEvent returns an event's orders, optionally narrowed to one status.
func (d *DB) ListByEvent(ctx context.Context, eventID string, status models.OrderStatus) ([]models.Order, error) {
	var orders []models.Order
	q := d.Bun.NewSelect().
		Model(&orders).
		Where("event_id = ?", eventID).
		Order("created_at ASC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := q.Scan(ctx)
	return orders, err
}

// ListStalePending returns the oldest pending orders created before cutoff.
func (d *DB) ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error) {
	var orders []models.Order
	err := d.Bun.NewSelect().
		Model(&orders).
		Where("status = ?", models.OrderPending).
		Where("created_at < ?", cutoff).
		Order("created_at ASC").
		Limit(limit).
		Scan(ctx)
	return orders, err
}

// ---------------- TRANSITIONS ----------------

// TransitionStatus moves an order from p.From to p.To with a single
// compare-and-set UPDATE. When the order is no longer in p.From the caller
// gets a TransitionError naming the status it actually has. Releasing moves
// also lock the class row so they are ordered against concurrent claims, and
// never apply to an order that has been checked in.
func (d *DB) TransitionStatus(ctx context.Context, p models.TransitionParams) (*models.Order, error) {
	var updated *models.Order
	err := d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if p.To.Releases() {
			current, err := getOrder(ctx, tx, "order_id = ?", p.OrderID)
			if err != nil {
				return err
			}
			if _, err := database.LockClass(ctx, tx, current.TicketClassID); err != nil {
				return err
			}
		}

		q := tx.NewUpdate().
			Model((*models.Order)(nil)).
			Set("status = ?", p.To).
			Set("updated_at = ?", p.At).
			Where("order_id = ?", p.OrderID).
			Where("status = ?", p.From)
		if p.To.Releases() {
			q = q.Where("checked_in = ?", false)
		}
		if p.Reason != "" {
			q = q.Set("status_reason = ?", p.Reason)
		}
		if p.To == models.OrderConfirmed {
			q = q.Set("payment_status = ?", models.PaymentSettled).
				Set("payment_reference = ?", p.PaymentReference)
		}
		res, err := q.Exec(ctx)
		if err != nil {
			return fmt.Errorf("update order %s to %s: %w", p.OrderID, p.To, err)
		}

		current, err := getOrder(ctx, tx, "order_id = ?", p.OrderID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return &apperrors.TransitionError{OrderID: p.OrderID, Current: string(current.Status), Target: string(p.To), CheckedIn: current.CheckedIn}
		}
		updated = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// RecordPaymentReference parks a settlement reference on an order that is
// still pending. It reports false when the order has left pending.
func (d *DB) RecordPaymentReference(ctx context.Context, orderID, reference string, at time.Time) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Order)(nil)).
		Set("payment_reference = ?", reference).
		Set("updated_at = ?", at).
		Where("order_id = ?", orderID).
		Where("status = ?", models.OrderPending).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("record payment reference for %s: %w", orderID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ---------------- CHECK-IN ----------------

// MarkCheckedIn flips checked_in exactly once. It reports false when the
// order was already admitted or is not in an admissible status; the caller
// reloads the order to tell which.
func (d *DB) MarkCheckedIn(ctx context.Context, ticketCode string, at time.Time) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Order)(nil)).
		Set("checked_in = ?", true).
		Set("checked_in_at = ?", at).
		Set("updated_at = ?", at).
		Where("ticket_code = ?", ticketCode).
		Where("checked_in = ?", false).
		Where("status IN (?)", bun.In(models.SoldStatuses())).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("check in %s: %w", ticketCode, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
