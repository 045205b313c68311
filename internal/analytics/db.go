package analytics

import (
	"context"
	"fmt"

	"event-ticketing/internal/models"

	"github.com/uptrace/bun"
)

// DB runs the aggregate queries behind every inventory figure.
type DB struct {
	bun bun.IDB
}

func NewDB(db bun.IDB) *DB {
	return &DB{bun: db}
}

func (db *DB) figuresQuery() *bun.SelectQuery {
	return db.bun.NewSelect().
		Model((*models.Order)(nil)).
		Column("ticket_class_id").
		ColumnExpr("COALESCE(SUM(CASE WHEN status IN (?) THEN quantity ELSE 0 END), 0) AS gross_held", bun.In(models.ActiveStatuses())).
		ColumnExpr("COALESCE(SUM(CASE WHEN status IN (?) THEN quantity ELSE 0 END), 0) AS net_sold", bun.In(models.SoldStatuses())).
		ColumnExpr("COALESCE(SUM(CASE WHEN status IN (?) THEN total_amount ELSE 0 END), 0) AS net_revenue", bun.In(models.SoldStatuses())).
		Group("ticket_class_id")
}

// FiguresByEvent returns gross held and net sold per class of one event.
// Classes without orders are absent from the map.
func (db *DB) FiguresByEvent(ctx context.Context, eventID string) (map[string]models.ClassFigures, error) {
	var rows []models.ClassFigures
	if err := db.figuresQuery().Where("event_id = ?", eventID).Scan(ctx, &rows); err != nil {
		return nil, fmt.Errorf("aggregate orders for event %s: %w", eventID, err)
	}
	out := make(map[string]models.ClassFigures, len(rows))
	for _, row := range rows {
		out[row.TicketClassID] = row
	}
	return out, nil
}

func (db *DB) FiguresForClass(ctx context.Context, classID string) (models.ClassFigures, error) {
	var rows []models.ClassFigures
	if err := db.figuresQuery().Where("ticket_class_id = ?", classID).Scan(ctx, &rows); err != nil {
		return models.ClassFigures{}, fmt.Errorf("aggregate orders for class %s: %w", classID, err)
	}
	if len(rows) == 0 {
		return models.ClassFigures{TicketClassID: classID}, nil
	}
	return rows[0], nil
}
