package order_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"event-ticketing/internal/apperrors"
	"event-ticketing/internal/auth"
	"event-ticketing/internal/logger"
	"event-ticketing/internal/models"
	"event-ticketing/internal/order"
	"event-ticketing/internal/utils"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	OrderService *order.OrderService
	Logger       *logger.Logger
}

func NewHandler(orderService *order.OrderService, log *logger.Logger) *Handler {
	return &Handler{OrderService: orderService, Logger: log}
}

// RegisterRoutes mounts the order routes; r must carry the auth middleware.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/orders", h.CreateOrder)
	r.Get("/orders", h.ListMyOrders)
	r.Get("/orders/{orderId}", h.GetOrder)
	r.Put("/orders/{orderId}/status", h.ChangeStatus)
	r.Get("/organizer/events/{eventId}/orders", h.ListEventOrders)
}

func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req models.OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}

	created, err := h.OrderService.Reserve(r.Context(), auth.UserID(r.Context()), req)
	if err != nil {
		var insufficient *apperrors.InsufficientInventoryError
		if errors.As(err, &insufficient) {
			utils.WriteErrorWithData(w, "Not enough tickets left", err, map[string]int{"available": insufficient.Available})
			return
		}
		h.Logger.Warn("API", fmt.Sprintf("CreateOrder class=%s: %v", req.TicketClassID, err))
		utils.WriteError(w, "Could not place order", err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "Order placed", models.NewOrderResponse(created))
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")
	o, err := h.OrderService.GetOrder(r.Context(), auth.UserID(r.Context()), orderID)
	if err != nil {
		utils.WriteError(w, "Could not load order", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Order", o)
}

func (h *Handler) ListMyOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.OrderService.ListForBuyer(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		utils.WriteError(w, "Could not list orders", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Orders", orders)
}

func (h *Handler) ListEventOrders(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")
	status := models.OrderStatus(r.URL.Query().Get("status"))
	orders, err := h.OrderService.ListForEvent(r.Context(), auth.UserID(r.Context()), eventID, status)
	if err != nil {
		utils.WriteError(w, "Could not list orders", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Orders", orders)
}

func (h *Handler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")
	var req models.StatusChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}

	updated, err := h.OrderService.ChangeStatus(r.Context(), auth.UserID(r.Context()), orderID, req)
	if err != nil {
		var transitionErr *apperrors.TransitionError
		if errors.As(err, &transitionErr) {
			utils.WriteErrorWithData(w, "Order status changed concurrently or move not allowed", err, map[string]string{"current_status": transitionErr.Current})
			return
		}
		h.Logger.Warn("API", fmt.Sprintf("ChangeStatus order=%s to=%s: %v", orderID, req.Status, err))
		utils.WriteError(w, "Could not change order status", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Order updated", updated)
}
