package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/issacompass/promptloop/internal/domain"
)

const maxRequestBody = 4 << 20 // 4 MiB

func respondJSON(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("json encode error", "error", err)
	}
}

func respondError(w http.ResponseWriter, message string, status int) {
	respondJSON(w, map[string]string{"error": message}, status)
}

// respondDomainError maps a domain error to a caller-safe message and HTTP
// status. Raw internals are logged, never returned.
func respondDomainError(w http.ResponseWriter, err error) {
	slog.Error("request failed", "error", err)
	respondError(w, domain.SafeMessage(err), statusForError(err))
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrEmptyContent):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrRunNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrQuotaExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrPromptEmpty), errors.Is(err, domain.ErrPromptTooLarge),
		errors.Is(err, domain.ErrInvalidStructured), errors.Is(err, domain.ErrEmptyResponse):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrProvider):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads a bounded request body into target. Unknown fields are
// rejected so typos fail loudly instead of silently taking defaults.
func decodeJSON(w http.ResponseWriter, r *http.Request, target any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		respondError(w, "Invalid JSON body.", http.StatusBadRequest)
		return false
	}
	return true
}

func parseIntQuery(r *http.Request, name string, defaultValue int) int {
	if v := r.URL.Query().Get(name); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}
