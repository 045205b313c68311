package analytics_api

import (
	"net/http"

	"event-ticketing/internal/analytics"
	"event-ticketing/internal/auth"
	"event-ticketing/internal/logger"
	"event-ticketing/internal/utils"

	"github.com/go-chi/chi/v5"
)

// Handler serves the organizer inventory dashboard.
type Handler struct {
	Service *analytics.Service
	Logger  *logger.Logger
}

func NewHandler(service *analytics.Service, log *logger.Logger) *Handler {
	return &Handler{Service: service, Logger: log}
}

// RegisterRoutes mounts the inventory routes; r must carry the auth middleware.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/organizer", func(r chi.Router) {
		r.Get("/events/{eventId}/inventory", h.GetEventInventory)
		r.Get("/ticket-classes/{classId}/inventory", h.GetClassInventory)
	})
}

func (h *Handler) GetEventInventory(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")
	inv, err := h.Service.EventInventory(r.Context(), auth.UserID(r.Context()), eventID)
	if err != nil {
		utils.WriteError(w, "Could not load inventory", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Event inventory", inv)
}

func (h *Handler) GetClassInventory(w http.ResponseWriter, r *http.Request) {
	classID := chi.URLParam(r, "classId")
	inv, err := h.Service.ClassInventoryFor(r.Context(), auth.UserID(r.Context()), classID)
	if err != nil {
		utils.WriteError(w, "Could not load inventory", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Class inventory", inv)
}
