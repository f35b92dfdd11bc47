package handlers

import (
	"net/http"
	"time"

	"github.com/issacompass/promptloop/internal/application/services"
)

// PromptHandler serves the master prompt endpoints.
type PromptHandler struct {
	prompts *services.PromptService
}

func NewPromptHandler(prompts *services.PromptService) *PromptHandler {
	return &PromptHandler{prompts: prompts}
}

type promptStateResponse struct {
	Prompt    string `json:"prompt"`
	UpdatedAt string `json:"updatedAt"`
}

// Get handles GET /api/v1/prompt
func (h *PromptHandler) Get(w http.ResponseWriter, r *http.Request) {
	state, err := h.prompts.Get(r.Context())
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, promptStateResponse{
		Prompt:    state.Prompt,
		UpdatedAt: state.UpdatedAt.UTC().Format(time.RFC3339),
	}, http.StatusOK)
}

type putPromptRequest struct {
	Prompt string `json:"prompt"`
}

// Put handles PUT /api/v1/prompt: a direct overwrite, bypassing the editor.
func (h *PromptHandler) Put(w http.ResponseWriter, r *http.Request) {
	var req putPromptRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	state, err := h.prompts.Overwrite(r.Context(), req.Prompt)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, promptStateResponse{
		Prompt:    state.Prompt,
		UpdatedAt: state.UpdatedAt.UTC().Format(time.RFC3339),
	}, http.StatusOK)
}

type improvePromptRequest struct {
	Instructions string `json:"instructions"`
}

type improvePromptResponse struct {
	UpdatedPrompt string `json:"updatedPrompt"`
}

// Improve handles POST /api/v1/prompt/improve: manual instructions routed
// through the editor model.
func (h *PromptHandler) Improve(w http.ResponseWriter, r *http.Request) {
	var req improvePromptRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	updated, err := h.prompts.ImproveManually(r.Context(), req.Instructions)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, improvePromptResponse{UpdatedPrompt: updated}, http.StatusOK)
}
