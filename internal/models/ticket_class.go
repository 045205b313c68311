package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type TicketClassStatus string

const (
	ClassDraft  TicketClassStatus = "draft"
	ClassOnSale TicketClassStatus = "on_sale"
	ClassPaused TicketClassStatus = "paused"
	ClassClosed TicketClassStatus = "closed"
)

func (s TicketClassStatus) Valid() bool {
	switch s {
	case ClassDraft, ClassOnSale, ClassPaused, ClassClosed:
		return true
	}
	return false
}

type TicketClass struct {
	bun.BaseModel `bun:"table:ticket_classes"`

	ID           string            `bun:"id,pk" json:"id"`
	EventID      string            `bun:"event_id,notnull" json:"event_id"`
	Name         string            `bun:"name,notnull" json:"name"`
	Description  string            `bun:"description" json:"description"`
	UnitPrice    decimal.Decimal   `bun:"unit_price,type:numeric(12,2),notnull" json:"unit_price"`
	Capacity     int               `bun:"capacity,notnull" json:"capacity"`
	DisplayOrder int               `bun:"display_order,notnull" json:"display_order"`
	SaleStart    *time.Time        `bun:"sale_start,nullzero" json:"sale_start,omitempty"`
	SaleEnd      *time.Time        `bun:"sale_end,nullzero" json:"sale_end,omitempty"`
	Status       TicketClassStatus `bun:"status,notnull" json:"status"`
	CreatedAt    time.Time         `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt    time.Time         `bun:"updated_at,notnull" json:"updated_at"`
}

// OnSaleAt reports whether the class accepts reservations at now: it must be
// on_sale and now must fall inside [SaleStart, SaleEnd).
func (c *TicketClass) OnSaleAt(now time.Time) bool {
	if c.Status != ClassOnSale {
		return false
	}
	if c.SaleStart != nil && now.Before(*c.SaleStart) {
		return false
	}
	if c.SaleEnd != nil && !now.Before(*c.SaleEnd) {
		return false
	}
	return true
}

type CreateTicketClassRequest struct {
	Name         string             `json:"name"`
	Description  string             `json:"description"`
	UnitPrice    decimal.Decimal    `json:"unit_price"`
	Capacity     int                `json:"capacity"`
	DisplayOrder int                `json:"display_order"`
	SaleStart    *time.Time         `json:"sale_start,omitempty"`
	SaleEnd      *time.Time         `json:"sale_end,omitempty"`
	Status       *TicketClassStatus `json:"status,omitempty"`
}

// UpdateTicketClassRequest carries a partial update; nil fields are left alone.
// ClearSaleStart and ClearSaleEnd remove a bound and win over a value sent
// alongside them.
type UpdateTicketClassRequest struct {
	Name         *string            `json:"name,omitempty"`
	Description  *string            `json:"description,omitempty"`
	UnitPrice    *decimal.Decimal   `json:"unit_price,omitempty"`
	Capacity     *int               `json:"capacity,omitempty"`
	DisplayOrder *int               `json:"display_order,omitempty"`
	SaleStart    *time.Time         `json:"sale_start,omitempty"`
	SaleEnd      *time.Time         `json:"sale_end,omitempty"`
	Status       *TicketClassStatus `json:"status,omitempty"`

	ClearSaleStart bool `json:"clear_sale_start,omitempty"`
	ClearSaleEnd   bool `json:"clear_sale_end,omitempty"`
}
