package ticketclass_api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"event-ticketing/internal/auth"
	"event-ticketing/internal/logger"
	"event-ticketing/internal/models"
	ticketclass "event-ticketing/internal/ticketclass/service"
	"event-ticketing/internal/utils"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	Service *ticketclass.TicketClassService
	Logger  *logger.Logger
}

func NewHandler(service *ticketclass.TicketClassService, log *logger.Logger) *Handler {
	return &Handler{Service: service, Logger: log}
}

// RegisterPublicRoutes mounts the anonymous listing.
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/events/{eventId}/ticket-classes", h.ListPublic)
}

// RegisterRoutes mounts the organizer routes; r must carry the auth middleware.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/events/{eventId}/ticket-classes", h.Create)
	r.Put("/ticket-classes/{classId}", h.Update)
	r.Delete("/ticket-classes/{classId}", h.Delete)
	r.Get("/organizer/events/{eventId}/ticket-classes", h.ListForOrganizer)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")
	var req models.CreateTicketClassRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}

	class, err := h.Service.Create(r.Context(), auth.UserID(r.Context()), eventID, req)
	if err != nil {
		h.Logger.Warn("API", fmt.Sprintf("CreateTicketClass event=%s: %v", eventID, err))
		utils.WriteError(w, "Could not create ticket class", err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "Ticket class created", class)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	classID := chi.URLParam(r, "classId")
	var req models.UpdateTicketClassRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}

	class, err := h.Service.Update(r.Context(), auth.UserID(r.Context()), classID, req)
	if err != nil {
		h.Logger.Warn("API", fmt.Sprintf("UpdateTicketClass class=%s: %v", classID, err))
		utils.WriteError(w, "Could not update ticket class", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Ticket class updated", class)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	classID := chi.URLParam(r, "classId")
	if err := h.Service.Delete(r.Context(), auth.UserID(r.Context()), classID); err != nil {
		h.Logger.Warn("API", fmt.Sprintf("DeleteTicketClass class=%s: %v", classID, err))
		utils.WriteError(w, "Could not delete ticket class", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListPublic(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")
	classes, err := h.Service.ListPublic(r.Context(), eventID)
	if err != nil {
		utils.WriteError(w, "Could not list ticket classes", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Ticket classes", classes)
}

func (h *Handler) ListForOrganizer(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")
	classes, err := h.Service.ListForOrganizer(r.Context(), auth.UserID(r.Context()), eventID)
	if err != nil {
		utils.WriteError(w, "Could not list ticket classes", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Ticket classes", classes)
}
