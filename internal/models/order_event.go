package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderEventType string

const (
	OrderCreatedEvent   OrderEventType = "order.created"
	OrderApprovedEvent  OrderEventType = "order.approved"
	OrderRejectedEvent  OrderEventType = "order.rejected"
	OrderConfirmedEvent OrderEventType = "order.confirmed"
	OrderCancelledEvent OrderEventType = "order.cancelled"
	OrderCheckedInEvent OrderEventType = "order.checked_in"
)

// EventTypeFor maps the status an order just entered to its domain event.
func EventTypeFor(status OrderStatus) OrderEventType {
	switch status {
	case OrderApproved:
		return OrderApprovedEvent
	case OrderRejected:
		return OrderRejectedEvent
	case OrderConfirmed:
		return OrderConfirmedEvent
	case OrderCancelled:
		return OrderCancelledEvent
	default:
		return OrderCreatedEvent
	}
}

// OrderEvent is published after every committed order change.
type OrderEvent struct {
	Type          OrderEventType  `json:"type"`
	OrderID       string          `json:"order_id"`
	TicketClassID string          `json:"ticket_class_id"`
	EventID       string          `json:"event_id"`
	BuyerID       string          `json:"buyer_id"`
	BuyerEmail    string          `json:"buyer_email,omitempty"`
	BuyerPhone    string          `json:"buyer_phone,omitempty"`
	OrganizerID   string          `json:"organizer_id,omitempty"`
	ActorID       string          `json:"actor_id,omitempty"`
	TicketCode    string          `json:"ticket_code"`
	Quantity      int             `json:"quantity"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	PreviousState OrderStatus     `json:"previous_status,omitempty"`
	Status        OrderStatus     `json:"status"`
	Reason        string          `json:"reason,omitempty"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

func NewOrderEvent(t OrderEventType, o *Order, previous OrderStatus, actor Actor, at time.Time) OrderEvent {
	return OrderEvent{
		Type:          t,
		OrderID:       o.OrderID,
		TicketClassID: o.TicketClassID,
		EventID:       o.EventID,
		BuyerID:       o.BuyerID,
		BuyerEmail:    o.BuyerEmail,
		BuyerPhone:    o.BuyerPhone,
		ActorID:       actor.UserID,
		TicketCode:    o.TicketCode,
		Quantity:      o.Quantity,
		TotalAmount:   o.TotalAmount,
		PreviousState: previous,
		Status:        o.Status,
		Reason:        o.StatusReason,
		OccurredAt:    at,
	}
}

// PaymentSettledMessage is the payment collaborator's settlement signal.
type PaymentSettledMessage struct {
	OrderID   string    `json:"order_id"`
	Reference string    `json:"reference"`
	Status    string    `json:"status"`
	SettledAt time.Time `json:"settled_at"`
}

const PaymentMessageSucceeded = "succeeded"

// Notification is one message handed to the outbound notification collaborator.
type Notification struct {
	Channel   string         `json:"channel"`
	Recipient string         `json:"recipient"`
	Kind      OrderEventType `json:"kind"`
	OrderID   string         `json:"order_id"`
	EventID   string         `json:"event_id"`
	Subject   string         `json:"subject"`
	Body      string         `json:"body"`
	CreatedAt time.Time      `json:"created_at"`
}

const (
	ChannelBuyer          = "buyer"
	ChannelOrganizerAudit = "organizer_audit"
)
