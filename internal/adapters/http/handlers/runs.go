package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/issacompass/promptloop/internal/domain/models"
	"github.com/issacompass/promptloop/internal/ports"
)

const maxRunListLimit = 200

// RunsHandler serves the persisted run history.
type RunsHandler struct {
	runs ports.RunRepository
}

func NewRunsHandler(runs ports.RunRepository) *RunsHandler {
	return &RunsHandler{runs: runs}
}

// List handles GET /api/v1/runs
func (h *RunsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := parseIntQuery(r, "limit", 50)
	offset := parseIntQuery(r, "offset", 0)
	if limit > maxRunListLimit {
		limit = maxRunListLimit
	}

	runs, err := h.runs.List(r.Context(), limit, offset)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if runs == nil {
		runs = []*models.Run{}
	}
	respondJSON(w, map[string]any{"runs": runs}, http.StatusOK)
}

// Get handles GET /api/v1/runs/{id}
func (h *RunsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, "Run ID is required.", http.StatusBadRequest)
		return
	}

	run, err := h.runs.Get(r.Context(), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, run, http.StatusOK)
}
