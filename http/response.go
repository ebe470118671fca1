package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/jmalhotra/filedrive"
)

// ErrorResponse represents a JSON error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// FieldError is one entry in a structured validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationResponse carries per-field validation errors.
type ValidationResponse struct {
	Errors []FieldError `json:"errors"`
}

// WriteError writes a JSON error response
func WriteError(w http.ResponseWriter, code int, errCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(ErrorResponse{
		Error:   errCode,
		Message: message,
	}); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// WriteFieldErrors writes a 400 with the structured per-field error list.
func WriteFieldErrors(w http.ResponseWriter, fields []FieldError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	if err := json.NewEncoder(w).Encode(ValidationResponse{Errors: fields}); err != nil {
		slog.Error("failed to encode validation response", "error", err)
	}
}

// HandleError writes the response matching the domain error. Not-found and
// not-owned are already merged upstream; unexpected errors become a generic
// 500 with details logged, never echoed.
func HandleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, filedrive.ErrNotFound), errors.Is(err, filedrive.ErrNotFoundOnDisk):
		WriteError(w, http.StatusNotFound, "not_found", "Not found")
	case errors.Is(err, filedrive.ErrInvalidParent):
		WriteError(w, http.StatusBadRequest, "invalid_parent", "Parent folder does not exist")
	case errors.Is(err, filedrive.ErrInvalidInput):
		WriteError(w, http.StatusBadRequest, "invalid_input", "Invalid input")
	case errors.Is(err, filedrive.ErrConflict):
		WriteError(w, http.StatusConflict, "conflict", "Already exists")
	case errors.Is(err, filedrive.ErrUnauthorized):
		WriteError(w, http.StatusUnauthorized, "unauthorized", "Invalid credentials")
	case errors.Is(err, filedrive.ErrBackendUnavailable):
		slog.Error("storage backend unavailable", "error", err)
		WriteError(w, http.StatusBadGateway, "backend_unavailable", "Storage backend unavailable")
	default:
		slog.Error("request error", "error", err)
		WriteError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
	}
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, code int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(data)
}
