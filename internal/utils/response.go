package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"event-ticketing/internal/apperrors"
)

type APIResponse struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

func SuccessResponse(message string, data interface{}) APIResponse {
	return APIResponse{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now(),
	}
}

func ErrorResponse(message, error string) APIResponse {
	return APIResponse{
		Success:   false,
		Message:   message,
		Error:     error,
		Timestamp: time.Now(),
	}
}

// RetryAfterSeconds is sent with every 503 caused by lock or storage contention.
const RetryAfterSeconds = "1"

// StatusFor maps a domain error onto its HTTP status.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, apperrors.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperrors.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperrors.ErrNotOnSale):
		return http.StatusUnprocessableEntity
	case errors.Is(err, apperrors.ErrInsufficientInventory),
		errors.Is(err, apperrors.ErrStaleState),
		errors.Is(err, apperrors.ErrAlreadyCheckedIn),
		errors.Is(err, apperrors.ErrInvalidStatus),
		errors.Is(err, apperrors.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, apperrors.ErrRetryable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func WriteJSON(w http.ResponseWriter, status int, body interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(body)
}

func WriteSuccess(w http.ResponseWriter, status int, message string, data interface{}) error {
	return WriteJSON(w, status, SuccessResponse(message, data))
}

// WriteError renders err in the error envelope. Internal failures are reported
// with an opaque message so storage details never reach the client.
func WriteError(w http.ResponseWriter, message string, err error) error {
	status := StatusFor(err)
	detail := err.Error()
	if status == http.StatusInternalServerError {
		detail = "internal error"
	}
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", RetryAfterSeconds)
	}
	return WriteJSON(w, status, ErrorResponse(message, detail))
}

// WriteErrorWithData is WriteError for conflicts that still carry a payload,
// such as a repeated check-in reporting the original admission time.
func WriteErrorWithData(w http.ResponseWriter, message string, err error, data interface{}) error {
	resp := ErrorResponse(message, err.Error())
	resp.Data = data
	return WriteJSON(w, StatusFor(err), resp)
}
