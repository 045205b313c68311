// Package dbtest builds throwaway SQLite databases carrying the production
// schema, for package tests that exercise real bun queries.
package dbtest

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"event-ticketing/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// NewSQLite opens an in-memory database with one connection, so concurrent
// transactions queue on the pool the way they would queue on a row lock.
func NewSQLite(t testing.TB) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { bunDB.Close() })

	ctx := context.Background()
	for _, model := range []interface{}{
		(*models.Event)(nil),
		(*models.TicketClass)(nil),
		(*models.Order)(nil),
	} {
		_, err := bunDB.NewCreateTable().Model(model).IfNotExists().Exec(ctx)
		require.NoError(t, err)
	}
	return bunDB
}

// SeedEvent inserts an event replica row owned by organizerID.
func SeedEvent(t testing.TB, db bun.IDB, eventID, organizerID string) *models.Event {
	t.Helper()
	event := &models.Event{
		ID:          eventID,
		OrganizerID: organizerID,
		Name:        "Event " + eventID,
	}
	_, err := db.NewInsert().Model(event).Exec(context.Background())
	require.NoError(t, err)
	return event
}

// SeedClass inserts an on-sale ticket class with no sale window.
func SeedClass(t testing.TB, db bun.IDB, eventID, classID string, capacity int, price string) *models.TicketClass {
	t.Helper()
	now := time.Now().UTC()
	class := &models.TicketClass{
		ID:        classID,
		EventID:   eventID,
		Name:      "Class " + classID,
		UnitPrice: decimal.RequireFromString(price),
		Capacity:  capacity,
		Status:    models.ClassOnSale,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := db.NewInsert().Model(class).Exec(context.Background())
	require.NoError(t, err)
	return class
}
