package ports

import "github.com/issacompass/promptloop/internal/domain/models"

// Progress event type constants. Per run: at most one start event (first),
// at most one converged event, exactly one terminal done or error event, and
// 0..maxIterations iteration events in between, in strict emission order.
const (
	ProgressEventStart     = "start"
	ProgressEventIteration = "iteration"
	ProgressEventConverged = "converged"
	ProgressEventDone      = "done"
	ProgressEventError     = "error"
)

// ProgressEvent is one entry of a run's streamed progress sequence. Fields
// are populated according to Type; unused fields stay at their zero value
// and are omitted from the wire encoding.
type ProgressEvent struct {
	Type  string `json:"type"`
	RunID string `json:"runId"`

	// start
	MaxIterations       int     `json:"maxIterations,omitempty"`
	ThresholdDelta      float64 `json:"thresholdDelta,omitempty"`
	GraderEnsembleCount int     `json:"graderEnsembleCount,omitempty"`
	ReferenceReply      string  `json:"referenceReply,omitempty"`
	ResponderUserPrompt string  `json:"responderUserPrompt,omitempty"`

	// iteration / converged / done
	Iteration           int                 `json:"iteration,omitempty"`
	PredictedReply      string              `json:"predictedReply,omitempty"`
	AvgCandidateScores  *models.ScoreVector `json:"avgAiScores,omitempty"`
	AvgReferenceScores  *models.ScoreVector `json:"avgConsultantScores,omitempty"`
	AvgDelta            float64             `json:"avgDelta,omitempty"`
	BestDeltaSoFar      float64             `json:"bestDeltaSoFar,omitempty"`
	Diagnosis           string              `json:"diagnosis,omitempty"`
	RecommendedEdits    []string            `json:"recommendedEdits,omitempty"`
	PromptBeforeHash    string              `json:"promptBeforeHash,omitempty"`
	PromptAfterHash     string              `json:"promptAfterHash,omitempty"`
	PromptBeforePreview string              `json:"promptBeforePreview,omitempty"`
	PromptAfterPreview  string              `json:"promptAfterPreview,omitempty"`

	// done
	Iterations            int     `json:"iterations,omitempty"`
	BestDelta             float64 `json:"bestDelta,omitempty"`
	UpdatedPromptStoredAt string  `json:"updatedPromptStoredAt,omitempty"`

	// error
	Message string `json:"message,omitempty"`
}

// ProgressPublisher is the pub/sub boundary for run progress events.
// Implementations may fan out to SSE subscribers, WebSocket clients, or
// both. Publishing must never block the optimizer.
type ProgressPublisher interface {
	// Subscribe creates a subscription for a run's progress events.
	Subscribe(runID string) <-chan ProgressEvent

	// Unsubscribe removes a subscription. The channel is closed.
	Unsubscribe(runID string, ch <-chan ProgressEvent)

	// Publish broadcasts an event to all subscribers of the run.
	Publish(event ProgressEvent)

	// Close closes all channels for a run once its sequence has terminated.
	Close(runID string)
}

// ProgressBroadcaster pushes run progress to connected dashboard clients.
type ProgressBroadcaster interface {
	BroadcastRunProgress(runID string, event ProgressEvent)
}
