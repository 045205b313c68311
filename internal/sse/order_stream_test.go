package sse

import (
	"context"
	"testing"
	"time"

	"event-ticketing/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroker_RoutesByEvent(t *testing.T) {
	b := NewBroker()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ev1 := b.Subscribe(ctx, "ev-1")
	ev2 := b.Subscribe(ctx, "ev-2")

	require.NoError(t, b.Send(ctx, models.OrderEvent{OrderID: "o-1", EventID: "ev-1"}))

	select {
	case got := <-ev1:
		assert.Equal(t, "o-1", got.OrderID)
	case <-time.After(time.Second):
		t.Fatal("ev-1 subscriber got nothing")
	}
	assert.Empty(t, ev2)
}

func TestBroker_SlowClientDoesNotBlock(t *testing.T) {
	b := NewBroker()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := b.Subscribe(ctx, "ev-1")

	for i := 0; i < clientBuffer*3; i++ {
		require.NoError(t, b.Send(ctx, models.OrderEvent{EventID: "ev-1"}))
	}
	assert.Len(t, ch, clientBuffer)
}

func TestBroker_UnsubscribesOnCancel(t *testing.T) {
	b := NewBroker()
	ctx, cancel := context.WithCancel(context.Background())
	ch := b.Subscribe(ctx, "ev-1")
	assert.Equal(t, 1, b.ClientCount("ev-1"))

	cancel()
	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}
	assert.Equal(t, 0, b.ClientCount("ev-1"))
}
