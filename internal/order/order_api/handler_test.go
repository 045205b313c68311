package order_api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"event-ticketing/internal/auth"
	"event-ticketing/internal/config"
	"event-ticketing/internal/database/dbtest"
	"event-ticketing/internal/eventstore"
	"event-ticketing/internal/logger"
	"event-ticketing/internal/order"
	orderdb "event-ticketing/internal/order/db"
	"event-ticketing/internal/utils"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// userHeader stands in for the bearer token in these tests.
const userHeader = "X-Test-User"

func setupRouter(t *testing.T, capacity int) http.Handler {
	db := dbtest.NewSQLite(t)
	dbtest.SeedEvent(t, db, "ev-1", "org-1")
	dbtest.SeedClass(t, db, "ev-1", "ga", capacity, "15.00")

	svc := order.NewOrderService(&orderdb.DB{Bun: db}, nil, eventstore.New(db), nil,
		config.ReservationConfig{MaxAttempts: 1}, logger.Discard())
	h := NewHandler(svc, logger.Discard())

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(auth.WithUserID(r.Context(), r.Header.Get(userHeader))))
		})
	})
	r.Route("/api", h.RegisterRoutes)
	return r
}

func do(t *testing.T, h http.Handler, user, method, path, body string) (*httptest.ResponseRecorder, utils.APIResponse) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(userHeader, user)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var resp utils.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec, resp
}

func TestOrderLifecycleOverHTTP(t *testing.T) {
	router := setupRouter(t, 5)

	rec, resp := do(t, router, "buyer-1", http.MethodPost, "/api/orders",
		`{"ticket_class_id":"ga","quantity":2,"buyer_name":"Ada","buyer_email":"ada@example.com"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := resp.Data.(map[string]interface{})
	orderID := created["order_id"].(string)
	assert.Equal(t, "pending", created["status"])
	assert.Equal(t, "30", created["total_amount"])
	assert.NotEmpty(t, created["ticket_code"])
	assert.NotContains(t, created, "buyer_email", "contact details stay off the create response")
	assert.NotContains(t, created, "buyer_id")

	rec, _ = do(t, router, "buyer-1", http.MethodGet, "/api/orders/"+orderID, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = do(t, router, "stranger", http.MethodGet, "/api/orders/"+orderID, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, resp = do(t, router, "org-1", http.MethodGet, "/api/organizer/events/ev-1/orders?status=pending", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, resp.Data.([]interface{}), 1)

	rec, _ = do(t, router, "org-1", http.MethodPut, "/api/orders/"+orderID+"/status", `{"status":"approved"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	// approving twice is refused with the current status
	rec, resp = do(t, router, "org-1", http.MethodPut, "/api/orders/"+orderID+"/status", `{"status":"approved"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "approved", resp.Data.(map[string]interface{})["current_status"])

	rec, resp = do(t, router, "org-1", http.MethodPut, "/api/orders/"+orderID+"/status", `{"status":"confirmed","payment_reference":"cash-desk"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "settled", resp.Data.(map[string]interface{})["payment_status"])

	rec, resp = do(t, router, "buyer-1", http.MethodGet, "/api/orders", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, resp.Data.([]interface{}), 1)
}

func TestCreateOrder_ErrorMapping(t *testing.T) {
	router := setupRouter(t, 1)

	rec, _ := do(t, router, "buyer-1", http.MethodPost, "/api/orders", `{"ticket_class_id":"ga","quantity":0}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, router, "buyer-1", http.MethodPost, "/api/orders", `{"ticket_class_id":"nope","quantity":1}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, resp := do(t, router, "buyer-1", http.MethodPost, "/api/orders", `{"ticket_class_id":"ga","quantity":2}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.False(t, resp.Success)
	assert.EqualValues(t, 1, resp.Data.(map[string]interface{})["available"])
}

func TestRejectAndCancel(t *testing.T) {
	router := setupRouter(t, 5)

	_, resp := do(t, router, "buyer-1", http.MethodPost, "/api/orders", `{"ticket_class_id":"ga","quantity":1}`)
	first := resp.Data.(map[string]interface{})["order_id"].(string)
	_, resp = do(t, router, "buyer-1", http.MethodPost, "/api/orders", `{"ticket_class_id":"ga","quantity":1}`)
	second := resp.Data.(map[string]interface{})["order_id"].(string)

	rec, _ := do(t, router, "org-1", http.MethodPut, "/api/orders/"+first+"/status", `{"status":"rejected"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "reject needs a reason")

	rec, resp = do(t, router, "org-1", http.MethodPut, "/api/orders/"+first+"/status", `{"status":"rejected","reason":"duplicate purchase"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "duplicate purchase", resp.Data.(map[string]interface{})["status_reason"])

	rec, _ = do(t, router, "buyer-2", http.MethodPut, "/api/orders/"+second+"/status", `{"status":"cancelled"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = do(t, router, "buyer-1", http.MethodPut, "/api/orders/"+second+"/status", `{"status":"cancelled"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}
