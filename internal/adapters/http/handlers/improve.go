package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/issacompass/promptloop/internal/application/services"
	"github.com/issacompass/promptloop/internal/ports"
)

const keepaliveInterval = 30 * time.Second

// ImproveHandler serves the optimization run endpoints, synchronous and
// streaming.
type ImproveHandler struct {
	optimizer *services.OptimizationService
	progress  ports.ProgressPublisher
}

func NewImproveHandler(optimizer *services.OptimizationService, progress ports.ProgressPublisher) *ImproveHandler {
	return &ImproveHandler{
		optimizer: optimizer,
		progress:  progress,
	}
}

// Run handles POST /api/v1/improve: the full loop, returning the complete
// result once it finishes. Closing the connection aborts the run.
func (h *ImproveHandler) Run(w http.ResponseWriter, r *http.Request) {
	var input services.ImproveInput
	if !decodeJSON(w, r, &input) {
		return
	}

	runID := h.optimizer.NewRunID()
	result, err := h.optimizer.Improve(r.Context(), runID, input)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, result, http.StatusOK)
}

// Stream handles POST /api/v1/improve/stream: the same loop with progress
// streamed as SSE events. The run is aborted when the client disconnects.
func (h *ImproveHandler) Stream(w http.ResponseWriter, r *http.Request) {
	var input services.ImproveInput
	if !decodeJSON(w, r, &input) {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, "Streaming not supported.", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	// Subscribe before the run starts so no event can be missed.
	runID := h.optimizer.NewRunID()
	eventChan := h.progress.Subscribe(runID)

	go func() {
		// Improve publishes the full event sequence and closes the run's
		// subscriptions; the request context cancels it on disconnect.
		if _, err := h.optimizer.Improve(r.Context(), runID, input); err != nil {
			slog.Error("streamed run failed", "run_id", runID, "error", err)
		}
	}()

	sendEvent(w, flusher, ports.ProgressEvent{Type: "connected", RunID: runID})

	ticker := time.NewTicker(keepaliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			slog.Info("sse client disconnected", "run_id", runID)
			return

		case event, ok := <-eventChan:
			if !ok {
				// Run finished; the terminal event has been delivered.
				return
			}
			sendEvent(w, flusher, event)

		case <-ticker.C:
			fmt.Fprintf(w, ": keepalive\n\n")
			flusher.Flush()
		}
	}
}

func sendEvent(w http.ResponseWriter, flusher http.Flusher, event ports.ProgressEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		slog.Error("sse marshal error", "error", err)
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
	flusher.Flush()
}
