package order_api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"event-ticketing/internal/auth"
	"event-ticketing/internal/logger"
	"event-ticketing/internal/order"
	"event-ticketing/internal/sse"
	"event-ticketing/internal/utils"

	"github.com/go-chi/chi/v5"
)

// StreamHandler serves the organizer's live order feed over Server-Sent Events.
type StreamHandler struct {
	OrderService *order.OrderService
	Broker       *sse.Broker
	Logger       *logger.Logger
}

func NewStreamHandler(orderService *order.OrderService, broker *sse.Broker, log *logger.Logger) *StreamHandler {
	return &StreamHandler{OrderService: orderService, Broker: broker, Logger: log}
}

func (h *StreamHandler) RegisterRoutes(r chi.Router) {
	r.Get("/organizer/events/{eventId}/orders/stream", h.StreamEventOrders)
}

func (h *StreamHandler) StreamEventOrders(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")
	organizerID := auth.UserID(r.Context())
	if err := h.OrderService.AuthorizeEvent(r.Context(), organizerID, eventID); err != nil {
		h.Logger.LogSecurity("SSE_DENIED", fmt.Sprintf("user=%s event=%s: %v", organizerID, eventID, err))
		utils.WriteError(w, "Could not open order stream", err)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Streaming unsupported", "response writer cannot flush"))
		return
	}

	// Streams outlive the server's write timeout.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})
	setupSSEHeaders(w)
	ctx := r.Context()
	events := h.Broker.Subscribe(ctx, eventID)

	fmt.Fprintf(w, "event: connected\ndata: {\"event_id\":%q}\n\n", eventID)
	flusher.Flush()
	h.Logger.Info("SSE", fmt.Sprintf("Organizer %s connected to order stream for event %s", organizerID, eventID))

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				h.Logger.Error("SSE", fmt.Sprintf("Failed to encode order event: %v", err))
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data)
			flusher.Flush()
		case <-ctx.Done():
			h.Logger.Debug("SSE", fmt.Sprintf("Order stream closed for event %s", eventID))
			return
		}
	}
}

func setupSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream;charset=UTF-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, max-age=0, must-revalidate")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
}
