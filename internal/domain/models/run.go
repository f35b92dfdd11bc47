package models

import "time"

// IterationRecord is one optimizer loop pass. Immutable once appended to a
// run log.
type IterationRecord struct {
	Iteration          int         `json:"iteration"`
	PredictedReply     string      `json:"predictedReply"`
	AvgCandidateScores ScoreVector `json:"avgAiScores"`
	AvgReferenceScores ScoreVector `json:"avgConsultantScores"`
	AvgDelta           float64     `json:"avgDelta"`
	Diagnosis          string      `json:"diagnosis"`
	RecommendedEdits   []string    `json:"recommendedEdits"`
	PromptBefore       string      `json:"promptBefore"`
	PromptAfter        string      `json:"promptAfter"`
}

// Run is one completed optimizer invocation. Append-only; only fully
// completed runs are persisted.
type Run struct {
	ID                  string            `json:"id"`
	InputClientSequence string            `json:"input_client_sequence"`
	InputChatHistory    []ChatMessage     `json:"input_chat_history"`
	ReferenceReply      string            `json:"reference_reply"`
	Iterations          int               `json:"iterations"`
	BestDelta           float64           `json:"best_delta"`
	BestPrompt          string            `json:"best_prompt"`
	RunLog              []IterationRecord `json:"run_log"`
	CreatedAt           time.Time         `json:"created_at"`
}

// NewRun builds a run record from a finished optimization.
func NewRun(id, clientSequence string, history []ChatMessage, referenceReply string, bestDelta float64, bestPrompt string, runLog []IterationRecord) *Run {
	return &Run{
		ID:                  id,
		InputClientSequence: clientSequence,
		InputChatHistory:    history,
		ReferenceReply:      referenceReply,
		Iterations:          len(runLog),
		BestDelta:           bestDelta,
		BestPrompt:          bestPrompt,
		RunLog:              runLog,
		CreatedAt:           time.Now().UTC(),
	}
}
