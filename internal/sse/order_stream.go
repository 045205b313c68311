package sse

import (
	"context"
	"sync"

	"event-ticketing/internal/models"
)

const clientBuffer = 16

// Broker fans committed order events out to live organizer dashboards,
// keyed by event id. It is a notify sink, so it never blocks the
// dispatcher: a client whose buffer is full misses the event.
type Broker struct {
	mu      sync.RWMutex
	clients map[string][]chan models.OrderEvent
}

func NewBroker() *Broker {
	return &Broker{clients: make(map[string][]chan models.OrderEvent)}
}

// Subscribe registers a client for eventID. The channel is closed once ctx
// is done.
func (b *Broker) Subscribe(ctx context.Context, eventID string) <-chan models.OrderEvent {
	ch := make(chan models.OrderEvent, clientBuffer)

	b.mu.Lock()
	b.clients[eventID] = append(b.clients[eventID], ch)
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.remove(eventID, ch)
	}()
	return ch
}

func (b *Broker) Name() string { return "sse" }

func (b *Broker) Send(_ context.Context, event models.OrderEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.clients[event.EventID] {
		select {
		case ch <- event:
		default:
		}
	}
	return nil
}

func (b *Broker) remove(eventID string, ch chan models.OrderEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	clients := b.clients[eventID]
	for i, c := range clients {
		if c == ch {
			b.clients[eventID] = append(clients[:i], clients[i+1:]...)
			close(ch)
			break
		}
	}
	if len(b.clients[eventID]) == 0 {
		delete(b.clients, eventID)
	}
}

// ClientCount returns the number of live subscribers for eventID.
func (b *Broker) ClientCount(eventID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients[eventID])
}
