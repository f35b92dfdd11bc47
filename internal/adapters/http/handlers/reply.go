package handlers

import (
	"net/http"
	"time"

	"github.com/issacompass/promptloop/internal/application/services"
)

// ReplyHandler serves one-off responder generations.
type ReplyHandler struct {
	prompts *services.PromptService
}

func NewReplyHandler(prompts *services.PromptService) *ReplyHandler {
	return &ReplyHandler{prompts: prompts}
}

type replyResponse struct {
	AIReply                string `json:"aiReply"`
	PromptVersionUpdatedAt string `json:"promptVersionUpdatedAt"`
}

// Generate handles POST /api/v1/reply
func (h *ReplyHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req services.ReplyInput
	if !decodeJSON(w, r, &req) {
		return
	}

	reply, promptUpdatedAt, err := h.prompts.GenerateReply(r.Context(), req)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, replyResponse{
		AIReply:                reply,
		PromptVersionUpdatedAt: promptUpdatedAt.UTC().Format(time.RFC3339),
	}, http.StatusOK)
}
