package analytics

import (
	"context"
	"testing"
	"time"

	"event-ticketing/internal/apperrors"
	"event-ticketing/internal/database/dbtest"
	"event-ticketing/internal/eventstore"
	"event-ticketing/internal/models"
	classdb "event-ticketing/internal/ticketclass/db"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func insertOrder(t *testing.T, db *bun.DB, class *models.TicketClass, qty int, status models.OrderStatus) {
	t.Helper()
	now := time.Now().UTC()
	_, err := db.NewInsert().Model(&models.Order{
		OrderID:       uuid.NewString(),
		TicketClassID: class.ID,
		EventID:       class.EventID,
		BuyerID:       "buyer-1",
		Quantity:      qty,
		UnitPrice:     class.UnitPrice,
		TotalAmount:   class.UnitPrice.Mul(decimal.NewFromInt(int64(qty))),
		TicketCode:    uuid.NewString(),
		Status:        status,
		PaymentStatus: models.PaymentUnpaid,
		CreatedAt:     now,
		UpdatedAt:     now,
	}).Exec(context.Background())
	require.NoError(t, err)
}

func setup(t *testing.T) (*Service, *bun.DB) {
	db := dbtest.NewSQLite(t)
	dbtest.SeedEvent(t, db, "ev-1", "org-1")
	return NewService(NewDB(db), &classdb.DB{Bun: db}, eventstore.New(db)), db
}

func TestEventInventory_GrossVersusNet(t *testing.T) {
	svc, db := setup(t)
	ga := dbtest.SeedClass(t, db, "ev-1", "ga", 10, "10.00")
	vip := dbtest.SeedClass(t, db, "ev-1", "vip", 4, "50.00")
	dbtest.SeedClass(t, db, "ev-1", "empty", 3, "5.00")

	for i := 0; i < 3; i++ {
		insertOrder(t, db, ga, 1, models.OrderPending)
	}
	insertOrder(t, db, ga, 1, models.OrderApproved)
	insertOrder(t, db, ga, 1, models.OrderConfirmed)
	insertOrder(t, db, ga, 4, models.OrderCancelled)
	insertOrder(t, db, ga, 2, models.OrderRejected)
	insertOrder(t, db, vip, 2, models.OrderConfirmed)

	inv, err := svc.EventInventory(context.Background(), "org-1", "ev-1")
	require.NoError(t, err)
	require.Len(t, inv.Classes, 3)

	byID := map[string]models.ClassInventory{}
	for _, c := range inv.Classes {
		byID[c.ID] = c
	}
	assert.Equal(t, 5, byID["ga"].GrossHeld)
	assert.Equal(t, 2, byID["ga"].NetSold)
	assert.Equal(t, 5, byID["ga"].Available)
	assert.True(t, decimal.NewFromInt(20).Equal(byID["ga"].NetRevenue))

	assert.Equal(t, 2, byID["vip"].Available)
	assert.Equal(t, 3, byID["empty"].Available)
	assert.Equal(t, 0, byID["empty"].GrossHeld)

	assert.Equal(t, 17, inv.TotalCapacity)
	assert.Equal(t, 7, inv.GrossHeld)
	assert.Equal(t, 4, inv.NetSold)
	assert.Equal(t, 10, inv.Available)
	assert.True(t, decimal.NewFromInt(120).Equal(inv.NetRevenue))
}

func TestEventInventory_Forbidden(t *testing.T) {
	svc, _ := setup(t)

	_, err := svc.EventInventory(context.Background(), "org-2", "ev-1")
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = svc.EventInventory(context.Background(), "org-1", "ev-404")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestClassInventoryFor(t *testing.T) {
	svc, db := setup(t)
	ga := dbtest.SeedClass(t, db, "ev-1", "ga", 2, "10.00")
	insertOrder(t, db, ga, 3, models.OrderPending)

	inv, err := svc.ClassInventoryFor(context.Background(), "org-1", "ga")
	require.NoError(t, err)
	assert.Equal(t, 3, inv.GrossHeld)
	assert.Equal(t, 0, inv.Available, "available never goes negative")

	_, err = svc.ClassInventoryFor(context.Background(), "org-2", "ga")
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestSummarize_NoClasses(t *testing.T) {
	inv := Summarize("ev-1", nil, nil)
	assert.Empty(t, inv.Classes)
	assert.True(t, inv.NetRevenue.IsZero())
}
