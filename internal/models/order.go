package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderApproved  OrderStatus = "approved"
	OrderRejected  OrderStatus = "rejected"
	OrderConfirmed OrderStatus = "confirmed"
	OrderCancelled OrderStatus = "cancelled"
)

// orderTransitions lists every legal (current -> requested) status move.
// Anything absent from the table is refused.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:  {OrderApproved, OrderRejected, OrderCancelled},
	OrderApproved: {OrderConfirmed, OrderCancelled},
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderApproved, OrderRejected, OrderConfirmed, OrderCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether the lifecycle allows moving from s to next.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Active orders still hold units against their ticket class capacity.
func (s OrderStatus) Active() bool {
	return s == OrderPending || s == OrderApproved || s == OrderConfirmed
}

// Sold orders are the ones an organizer counts as actually sold.
func (s OrderStatus) Sold() bool {
	return s == OrderApproved || s == OrderConfirmed
}

// Releases reports whether entering s frees the order's units.
func (s OrderStatus) Releases() bool {
	return s == OrderRejected || s == OrderCancelled
}

// CheckInAllowed reports whether an order in status s may be admitted at the gate.
func (s OrderStatus) CheckInAllowed() bool {
	return s == OrderApproved || s == OrderConfirmed
}

// ActiveStatuses is the gross-held status set.
func ActiveStatuses() []string {
	return []string{string(OrderPending), string(OrderApproved), string(OrderConfirmed)}
}

// SoldStatuses is the net-sold status set.
func SoldStatuses() []string {
	return []string{string(OrderApproved), string(OrderConfirmed)}
}

const (
	PaymentUnpaid  = "unpaid"
	PaymentSettled = "settled"
)

type Order struct {
	bun.BaseModel `bun:"table:orders"`

	OrderID          string          `bun:"order_id,pk" json:"order_id"`
	TicketClassID    string          `bun:"ticket_class_id,notnull" json:"ticket_class_id"`
	EventID          string          `bun:"event_id,notnull" json:"event_id"`
	BuyerID          string          `bun:"buyer_id,notnull" json:"buyer_id"`
	Quantity         int             `bun:"quantity,notnull" json:"quantity"`
	UnitPrice        decimal.Decimal `bun:"unit_price,type:numeric(12,2),notnull" json:"unit_price"`
	TotalAmount      decimal.Decimal `bun:"total_amount,type:numeric(12,2),notnull" json:"total_amount"`
	BuyerName        string          `bun:"buyer_name" json:"buyer_name"`
	BuyerPhone       string          `bun:"buyer_phone" json:"buyer_phone"`
	BuyerEmail       string          `bun:"buyer_email" json:"buyer_email"`
	TicketCode       string          `bun:"ticket_code,notnull,unique" json:"ticket_code"`
	Status           OrderStatus     `bun:"status,notnull" json:"status"`
	StatusReason     string          `bun:"status_reason" json:"status_reason,omitempty"`
	PaymentStatus    string          `bun:"payment_status,notnull" json:"payment_status"`
	PaymentReference string          `bun:"payment_reference" json:"payment_reference,omitempty"`
	CheckedIn        bool            `bun:"checked_in,notnull" json:"checked_in"`
	CheckedInAt      *time.Time      `bun:"checked_in_at,nullzero" json:"checked_in_at,omitempty"`
	CreatedAt        time.Time       `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt        time.Time       `bun:"updated_at,notnull" json:"updated_at"`
}

// BuyerContact is the contact snapshot frozen onto an order at purchase time.
type BuyerContact struct {
	Name  string `json:"buyer_name"`
	Phone string `json:"buyer_phone"`
	Email string `json:"buyer_email"`
}

type OrderRequest struct {
	TicketClassID string `json:"ticket_class_id"`
	Quantity      int    `json:"quantity"`
	BuyerContact
}

// OrderResponse is what a buyer gets back after placing an order.
type OrderResponse struct {
	OrderID     string          `json:"order_id"`
	TicketCode  string          `json:"ticket_code"`
	Status      OrderStatus     `json:"status"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

func NewOrderResponse(o *Order) OrderResponse {
	return OrderResponse{
		OrderID:     o.OrderID,
		TicketCode:  o.TicketCode,
		Status:      o.Status,
		Quantity:    o.Quantity,
		UnitPrice:   o.UnitPrice,
		TotalAmount: o.TotalAmount,
	}
}

// StatusChangeRequest is the body of PUT orders/{id}/status.
type StatusChangeRequest struct {
	Status           OrderStatus `json:"status"`
	Reason           string      `json:"reason,omitempty"`
	PaymentReference string      `json:"payment_reference,omitempty"`
}

// TransitionParams describes one guarded status move at the store.
type TransitionParams struct {
	OrderID          string
	From             OrderStatus
	To               OrderStatus
	Reason           string
	PaymentReference string
	At               time.Time
}

type ActorRole string

const (
	ActorBuyer     ActorRole = "buyer"
	ActorOrganizer ActorRole = "organizer"
	ActorSystem    ActorRole = "system"
)

// Actor identifies who requested a lifecycle action.
type Actor struct {
	UserID string
	Role   ActorRole
}

func SystemActor(name string) Actor {
	return Actor{UserID: name, Role: ActorSystem}
}
