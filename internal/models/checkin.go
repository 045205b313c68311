package models

import "time"

// OrderSummary is the public gate-screen view of an order.
type OrderSummary struct {
	TicketCode  string      `json:"ticket_code"`
	EventName   string      `json:"event_name"`
	EventStart  time.Time   `json:"event_start,omitempty"`
	ClassName   string      `json:"ticket_class"`
	BuyerName   string      `json:"buyer_name"`
	Quantity    int         `json:"quantity"`
	Status      OrderStatus `json:"status"`
	CheckedIn   bool        `json:"checked_in"`
	CheckedInAt *time.Time  `json:"checked_in_at,omitempty"`
}

type CheckInResult struct {
	TicketCode       string    `json:"ticket_code"`
	CheckedInAt      time.Time `json:"checked_in_at"`
	AlreadyCheckedIn bool      `json:"already_checked_in"`
	Quantity         int       `json:"quantity"`
	BuyerName        string    `json:"buyer_name"`
}
