package checkin_api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"event-ticketing/internal/auth"
	"event-ticketing/internal/checkin"
	checkindb "event-ticketing/internal/checkin/db"
	"event-ticketing/internal/config"
	"event-ticketing/internal/database/dbtest"
	"event-ticketing/internal/eventstore"
	"event-ticketing/internal/logger"
	"event-ticketing/internal/models"
	"event-ticketing/internal/order"
	orderdb "event-ticketing/internal/order/db"
	"event-ticketing/internal/utils"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (http.Handler, string) {
	db := dbtest.NewSQLite(t)
	dbtest.SeedEvent(t, db, "ev-1", "org-1")
	dbtest.SeedClass(t, db, "ev-1", "ga", 10, "20.00")

	events := eventstore.New(db)
	store := &orderdb.DB{Bun: db}
	orders := order.NewOrderService(store, nil, events, nil, config.ReservationConfig{MaxAttempts: 1}, logger.Discard())

	ctx := context.Background()
	o, err := orders.Reserve(ctx, "buyer-1", models.OrderRequest{TicketClassID: "ga", Quantity: 1})
	require.NoError(t, err)
	_, err = orders.Approve(ctx, "org-1", o.OrderID)
	require.NoError(t, err)

	h := NewHandler(checkin.NewService(store, &checkindb.DB{Bun: db}, events, nil, logger.Discard()), logger.Discard())
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		h.RegisterPublicRoutes(r)
		r.Group(func(r chi.Router) {
			r.Use(func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					next.ServeHTTP(w, r.WithContext(auth.WithUserID(r.Context(), r.Header.Get("X-Test-User"))))
				})
			})
			h.RegisterRoutes(r)
		})
	})
	return r, o.TicketCode
}

func do(h http.Handler, method, path, user string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("X-Test-User", user)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestVerifyAndQR(t *testing.T) {
	router, code := setup(t)

	rec := do(router, http.MethodGet, "/api/verify/"+code, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp utils.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "approved", data["status"])
	assert.NotContains(t, data, "order_id")

	rec = do(router, http.MethodGet, "/api/verify/"+code+"/qr", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))

	rec = do(router, http.MethodGet, "/api/verify/TCK-0000-0000-0000", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCheckInOverHTTP(t *testing.T) {
	router, code := setup(t)

	rec := do(router, http.MethodPut, "/api/verify/"+code+"/check-in", "org-2")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(router, http.MethodPut, "/api/verify/"+code+"/check-in", "org-1")
	require.Equal(t, http.StatusOK, rec.Code)
	var first utils.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))
	firstAt := first.Data.(map[string]interface{})["checked_in_at"]

	rec = do(router, http.MethodPut, "/api/verify/"+code+"/check-in", "org-1")
	require.Equal(t, http.StatusConflict, rec.Code)
	var repeat utils.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &repeat))
	assert.False(t, repeat.Success)
	data := repeat.Data.(map[string]interface{})
	assert.Equal(t, true, data["already_checked_in"])
	assert.NotEmpty(t, data["checked_in_at"])
	assert.NotNil(t, firstAt)
}
