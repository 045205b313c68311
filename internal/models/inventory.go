package models

import "github.com/shopspring/decimal"

// ClassFigures are the ledger sums for one ticket class.
type ClassFigures struct {
	TicketClassID string          `bun:"ticket_class_id"`
	GrossHeld     int             `bun:"gross_held"`
	NetSold       int             `bun:"net_sold"`
	NetRevenue    decimal.Decimal `bun:"net_revenue"`
}

type ClassInventory struct {
	TicketClass
	GrossHeld  int             `json:"gross_held"`
	NetSold    int             `json:"net_sold"`
	Available  int             `json:"available"`
	NetRevenue decimal.Decimal `json:"net_revenue"`
}

func NewClassInventory(class TicketClass, figures ClassFigures) ClassInventory {
	available := class.Capacity - figures.GrossHeld
	if available < 0 {
		available = 0
	}
	return ClassInventory{
		TicketClass: class,
		GrossHeld:   figures.GrossHeld,
		NetSold:     figures.NetSold,
		Available:   available,
		NetRevenue:  figures.NetRevenue,
	}
}

type EventInventory struct {
	EventID       string           `json:"event_id"`
	Classes       []ClassInventory `json:"classes"`
	TotalCapacity int              `json:"total_capacity"`
	GrossHeld     int              `json:"gross_held"`
	NetSold       int              `json:"net_sold"`
	Available     int              `json:"available"`
	NetRevenue    decimal.Decimal  `json:"net_revenue"`
}

// PublicClassListing is what anonymous buyers see.
type PublicClassListing struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Capacity     int             `json:"capacity"`
	Status       string          `json:"status"`
	OnSale       bool            `json:"on_sale"`
	Sold         int             `json:"sold"`
	Available    int             `json:"available"`
	DisplayOrder int             `json:"display_order"`
}

// OrganizerClassListing adds the organizer-confirmed figure.
type OrganizerClassListing struct {
	PublicClassListing
	GrossHeld int `json:"gross_held"`
	NetSold   int `json:"net_sold"`
}
