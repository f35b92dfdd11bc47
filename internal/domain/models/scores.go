package models

// ScoreVector is the behavioral profile of a reply, scored against the
// grading rubric. Every dimension is in [0,100].
type ScoreVector struct {
	Proactiveness float64 `json:"proactiveness" validate:"min=0,max=100"`
	SalesIntent   float64 `json:"salesIntent" validate:"min=0,max=100"`
	Empathy       float64 `json:"empathy" validate:"min=0,max=100"`
	Clarity       float64 `json:"clarity" validate:"min=0,max=100"`
	Urgency       float64 `json:"urgency" validate:"min=0,max=100"`
	ToneMatch     float64 `json:"toneMatch" validate:"min=0,max=100"`
	LengthMatch   float64 `json:"lengthMatch" validate:"min=0,max=100"`
}

// GraderOutput is the full grading result: both replies scored plus the
// scalar behavioral distance between them.
type GraderOutput struct {
	CandidateScores  ScoreVector `json:"aiScores"`
	ReferenceScores  ScoreVector `json:"consultantScores"`
	Delta            float64     `json:"delta" validate:"min=0,max=100"`
	Diagnosis        string      `json:"diagnosis" validate:"required,max=5000"`
	RecommendedEdits []string    `json:"recommendedEdits" validate:"max=20,dive,max=1000"`
}

// GraderCandidateOnlyOutput is the grading result for iterations after the
// first, where the reference scores are supplied to the grader instead of
// being re-derived.
type GraderCandidateOnlyOutput struct {
	CandidateScores  ScoreVector `json:"aiScores"`
	Delta            float64     `json:"delta" validate:"min=0,max=100"`
	Diagnosis        string      `json:"diagnosis" validate:"required,max=5000"`
	RecommendedEdits []string    `json:"recommendedEdits" validate:"max=20,dive,max=1000"`
}

// EditorOutput is the prompt editor's structured response.
type EditorOutput struct {
	UpdatedPrompt string `json:"updatedPrompt" validate:"required"`
}

// ScoringReport carries the averaged grading outcome of one iteration's
// grader ensemble.
type ScoringReport struct {
	CandidateScores  ScoreVector `json:"aiScores"`
	ReferenceScores  ScoreVector `json:"consultantScores"`
	Delta            float64     `json:"delta"`
	Diagnosis        string      `json:"diagnosis"`
	RecommendedEdits []string    `json:"recommendedEdits"`
}
