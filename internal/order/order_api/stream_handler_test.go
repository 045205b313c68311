package order_api

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"event-ticketing/internal/auth"
	"event-ticketing/internal/config"
	"event-ticketing/internal/database/dbtest"
	"event-ticketing/internal/eventstore"
	"event-ticketing/internal/logger"
	"event-ticketing/internal/models"
	"event-ticketing/internal/order"
	orderdb "event-ticketing/internal/order/db"
	"event-ticketing/internal/sse"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStream(t *testing.T) (*httptest.Server, *sse.Broker) {
	db := dbtest.NewSQLite(t)
	dbtest.SeedEvent(t, db, "ev-1", "org-1")

	svc := order.NewOrderService(&orderdb.DB{Bun: db}, nil, eventstore.New(db), nil,
		config.ReservationConfig{MaxAttempts: 1}, logger.Discard())
	broker := sse.NewBroker()
	h := NewStreamHandler(svc, broker, logger.Discard())

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(auth.WithUserID(r.Context(), r.Header.Get(userHeader))))
		})
	})
	r.Route("/api", h.RegisterRoutes)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, broker
}

func openStream(t *testing.T, srv *httptest.Server, user string) (*http.Response, context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/organizer/events/ev-1/orders/stream", nil)
	require.NoError(t, err)
	req.Header.Set(userHeader, user)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	return resp, cancel
}

func TestStreamEventOrders_ForbiddenForOtherOrganizer(t *testing.T) {
	srv, broker := setupStream(t)

	resp, cancel := openStream(t, srv, "org-2")
	defer cancel()
	defer resp.Body.Close()

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, 0, broker.ClientCount("ev-1"))
}

func TestStreamEventOrders_DeliversEventsForTheEvent(t *testing.T) {
	srv, broker := setupStream(t)

	resp, cancel := openStream(t, srv, "org-1")
	defer cancel()
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	reader := bufio.NewReader(resp.Body)
	readFrame := func() []string {
		var lines []string
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			line = strings.TrimRight(line, "\n")
			if line == "" {
				return lines
			}
			lines = append(lines, line)
		}
	}

	connected := readFrame()
	require.Len(t, connected, 2)
	assert.Equal(t, "event: connected", connected[0])
	assert.Equal(t, 1, broker.ClientCount("ev-1"))

	require.NoError(t, broker.Send(context.Background(), models.OrderEvent{Type: models.OrderCreatedEvent, OrderID: "other", EventID: "ev-2"}))
	require.NoError(t, broker.Send(context.Background(), models.OrderEvent{Type: models.OrderApprovedEvent, OrderID: "o-1", EventID: "ev-1"}))

	frame := readFrame()
	require.Len(t, frame, 2)
	assert.Equal(t, "event: order.approved", frame[0])
	assert.Contains(t, frame[1], `"order_id":"o-1"`)
}
