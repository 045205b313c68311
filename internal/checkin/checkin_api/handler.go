package checkin_api

import (
	"errors"
	"fmt"
	"net/http"

	"event-ticketing/internal/auth"
	"event-ticketing/internal/checkin"
	"event-ticketing/internal/logger"
	"event-ticketing/internal/utils"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	Service *checkin.Service
	Logger  *logger.Logger
}

func NewHandler(service *checkin.Service, log *logger.Logger) *Handler {
	return &Handler{Service: service, Logger: log}
}

// RegisterPublicRoutes mounts the anonymous verification routes.
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/verify/{ticketCode}", h.Verify)
	r.Get("/verify/{ticketCode}/qr", h.QRCode)
}

// RegisterRoutes mounts the gate routes; r must carry the auth middleware.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Put("/verify/{ticketCode}/check-in", h.CheckIn)
}

func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Service.Lookup(r.Context(), chi.URLParam(r, "ticketCode"))
	if err != nil {
		utils.WriteError(w, "Ticket not verified", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Ticket found", summary)
}

func (h *Handler) QRCode(w http.ResponseWriter, r *http.Request) {
	png, err := h.Service.QRCode(r.Context(), chi.URLParam(r, "ticketCode"))
	if err != nil {
		utils.WriteError(w, "Could not render QR code", err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(png); err != nil {
		h.Logger.Warn("API", fmt.Sprintf("QRCode write: %v", err))
	}
}

func (h *Handler) CheckIn(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "ticketCode")
	result, err := h.Service.CheckIn(r.Context(), code, auth.UserID(r.Context()))
	if err != nil {
		if result != nil {
			utils.WriteErrorWithData(w, "Ticket already checked in", err, result)
			return
		}
		if !errors.Is(err, r.Context().Err()) {
			h.Logger.Warn("API", fmt.Sprintf("CheckIn %s: %v", code, err))
		}
		utils.WriteError(w, "Check-in refused", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Checked in", result)
}
