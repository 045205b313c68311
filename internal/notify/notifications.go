package notify

import (
	"fmt"

	"event-ticketing/internal/models"
)

// NotificationsFor derives the outbound messages for one order event:
// a buyer notification for approve, reject and confirm, and an organizer
// audit entry for approve and reject. Other events produce nothing.
func NotificationsFor(event models.OrderEvent) []models.Notification {
	var out []models.Notification

	switch event.Type {
	case models.OrderApprovedEvent, models.OrderRejectedEvent, models.OrderConfirmedEvent:
		subject, body := buyerMessage(event)
		out = append(out, models.Notification{
			Channel:   models.ChannelBuyer,
			Recipient: buyerRecipient(event),
			Kind:      event.Type,
			OrderID:   event.OrderID,
			EventID:   event.EventID,
			Subject:   subject,
			Body:      body,
			CreatedAt: event.OccurredAt,
		})
	}

	switch event.Type {
	case models.OrderApprovedEvent, models.OrderRejectedEvent:
		out = append(out, models.Notification{
			Channel:   models.ChannelOrganizerAudit,
			Recipient: event.OrganizerID,
			Kind:      event.Type,
			OrderID:   event.OrderID,
			EventID:   event.EventID,
			Subject:   fmt.Sprintf("Order %s %s", event.OrderID, event.Status),
			Body:      fmt.Sprintf("%s moved order %s from %s to %s (%d tickets).", event.ActorID, event.OrderID, event.PreviousState, event.Status, event.Quantity),
			CreatedAt: event.OccurredAt,
		})
	}
	return out
}

// buyerRecipient prefers email, then phone, then the account id.
func buyerRecipient(event models.OrderEvent) string {
	switch {
	case event.BuyerEmail != "":
		return event.BuyerEmail
	case event.BuyerPhone != "":
		return event.BuyerPhone
	default:
		return event.BuyerID
	}
}

func buyerMessage(event models.OrderEvent) (string, string) {
	switch event.Type {
	case models.OrderApprovedEvent:
		return "Your order was approved",
			fmt.Sprintf("Order %s for %d tickets was approved. Total due: %s.", event.OrderID, event.Quantity, event.TotalAmount.StringFixed(2))
	case models.OrderRejectedEvent:
		return "Your order was rejected",
			fmt.Sprintf("Order %s was rejected: %s", event.OrderID, event.Reason)
	default:
		return "Your tickets are confirmed",
			fmt.Sprintf("Payment received for order %s. Ticket code: %s.", event.OrderID, event.TicketCode)
	}
}
