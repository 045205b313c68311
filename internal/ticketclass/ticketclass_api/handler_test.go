package ticketclass_api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"event-ticketing/internal/analytics"
	"event-ticketing/internal/auth"
	"event-ticketing/internal/database/dbtest"
	"event-ticketing/internal/eventstore"
	"event-ticketing/internal/logger"
	classdb "event-ticketing/internal/ticketclass/db"
	ticketclass "event-ticketing/internal/ticketclass/service"
	"event-ticketing/internal/utils"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// asUser stands in for the auth middleware.
func asUser(userID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(auth.WithUserID(r.Context(), userID)))
		})
	}
}

func setupRouter(t *testing.T, userID string) http.Handler {
	db := dbtest.NewSQLite(t)
	dbtest.SeedEvent(t, db, "ev-1", "org-1")
	svc := ticketclass.NewTicketClassService(&classdb.DB{Bun: db}, eventstore.New(db), analytics.NewDB(db), nil, logger.Discard())
	h := NewHandler(svc, logger.Discard())

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		h.RegisterPublicRoutes(r)
		r.Group(func(r chi.Router) {
			r.Use(asUser(userID))
			h.RegisterRoutes(r)
		})
	})
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, utils.APIResponse) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body)).WithContext(context.Background())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var resp utils.APIResponse
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

func TestCreateAndListTicketClasses(t *testing.T) {
	router := setupRouter(t, "org-1")

	rec, resp := do(t, router, http.MethodPost, "/api/events/ev-1/ticket-classes",
		`{"name":"General","unit_price":"30.00","capacity":50}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, resp.Success)

	rec, resp = do(t, router, http.MethodGet, "/api/events/ev-1/ticket-classes", "")
	require.Equal(t, http.StatusOK, rec.Code)
	listing := resp.Data.([]interface{})
	require.Len(t, listing, 1)
	first := listing[0].(map[string]interface{})
	assert.Equal(t, "General", first["name"])
	assert.EqualValues(t, 50, first["available"])
	assert.NotContains(t, first, "net_sold")

	rec, resp = do(t, router, http.MethodGet, "/api/organizer/events/ev-1/ticket-classes", "")
	require.Equal(t, http.StatusOK, rec.Code)
	organizerListing := resp.Data.([]interface{})
	assert.Contains(t, organizerListing[0].(map[string]interface{}), "net_sold")
}

func TestCreate_ErrorMapping(t *testing.T) {
	router := setupRouter(t, "org-1")

	rec, _ := do(t, router, http.MethodPost, "/api/events/ev-1/ticket-classes", `{"name":"","capacity":-1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, router, http.MethodPost, "/api/events/ev-1/ticket-classes", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, router, http.MethodPost, "/api/events/ev-404/ticket-classes", `{"name":"VIP","capacity":1}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreate_ForbiddenForOtherOrganizer(t *testing.T) {
	router := setupRouter(t, "org-2")

	rec, resp := do(t, router, http.MethodPost, "/api/events/ev-1/ticket-classes", `{"name":"VIP","capacity":1}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, resp.Success)
}

func TestUpdateAndDelete(t *testing.T) {
	router := setupRouter(t, "org-1")

	_, resp := do(t, router, http.MethodPost, "/api/events/ev-1/ticket-classes", `{"name":"VIP","unit_price":"99.50","capacity":5}`)
	classID := resp.Data.(map[string]interface{})["id"].(string)

	rec, resp := do(t, router, http.MethodPut, "/api/ticket-classes/"+classID, `{"capacity":8}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 8, resp.Data.(map[string]interface{})["capacity"])

	rec, _ = do(t, router, http.MethodDelete, "/api/ticket-classes/"+classID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec, _ = do(t, router, http.MethodDelete, "/api/ticket-classes/"+classID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
