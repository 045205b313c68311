package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Event is the local replica of the event service's metadata. Only the fields
// the inventory engine needs are kept.
type Event struct {
	bun.BaseModel `bun:"table:events"`

	ID           string    `bun:"id,pk" json:"id"`
	OrganizerID  string    `bun:"organizer_id,notnull" json:"organizer_id"`
	Name         string    `bun:"name,notnull" json:"name"`
	StartsAt     time.Time `bun:"starts_at,nullzero" json:"starts_at"`
	SellsTickets bool      `bun:"sells_tickets,notnull" json:"sells_tickets"`
	IsPublic     bool      `bun:"is_public,notnull" json:"is_public"`
	UpdatedAt    time.Time `bun:"updated_at,notnull" json:"updated_at"`
}

func (e *Event) OwnedBy(userID string) bool {
	return userID != "" && e.OrganizerID == userID
}

// EventUpsertedMessage is published by the event service whenever event
// metadata changes.
type EventUpsertedMessage struct {
	EventID     string    `json:"event_id"`
	OrganizerID string    `json:"organizer_id"`
	Name        string    `json:"name"`
	StartsAt    time.Time `json:"starts_at"`
}
