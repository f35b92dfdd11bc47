package services

import (
	"github.com/go-playground/validator/v10"

	"github.com/issacompass/promptloop/internal/domain"
	"github.com/issacompass/promptloop/internal/domain/models"
)

// Default loop parameters, applied when a request leaves them unset.
const (
	DefaultMaxIterations       = 5
	DefaultThresholdDelta      = 20
	DefaultGraderEnsembleCount = 5
	DefaultEarlyStopPatience   = 2
)

var validateInput = validator.New()

// ImproveInput is a full optimization request. Zero-valued loop parameters
// are filled with defaults by Normalize before validation.
type ImproveInput struct {
	ClientSequence      string               `json:"clientSequence" validate:"required,max=12000"`
	ChatHistory         []models.ChatMessage `json:"chatHistory" validate:"max=200,dive"`
	ConsultantReply     string               `json:"consultantReply" validate:"required,max=12000"`
	MaxIterations       int                  `json:"maxIterations" validate:"min=1,max=10"`
	ThresholdDelta      *float64             `json:"thresholdDelta" validate:"omitempty,min=0,max=100"`
	GraderEnsembleCount int                  `json:"graderEnsembleCount" validate:"min=1,max=10"`
	EarlyStopPatience   int                  `json:"earlyStopPatience" validate:"min=1,max=10"`
	IncludePromptDiff   bool                 `json:"includePromptDiff"`
}

// Normalize fills unset loop parameters with their defaults.
func (in *ImproveInput) Normalize() {
	if in.MaxIterations == 0 {
		in.MaxIterations = DefaultMaxIterations
	}
	if in.ThresholdDelta == nil {
		d := float64(DefaultThresholdDelta)
		in.ThresholdDelta = &d
	}
	if in.GraderEnsembleCount == 0 {
		in.GraderEnsembleCount = DefaultGraderEnsembleCount
	}
	if in.EarlyStopPatience == 0 {
		in.EarlyStopPatience = DefaultEarlyStopPatience
	}
}

// Validate checks the input bounds after normalization.
func (in *ImproveInput) Validate() error {
	if err := validateInput.Struct(in); err != nil {
		return domain.NewDomainError(domain.ErrInvalidInput, err.Error())
	}
	return nil
}

// ReplyInput is a single responder invocation against the stored prompt.
type ReplyInput struct {
	ClientSequence string               `json:"clientSequence" validate:"required,max=12000"`
	ChatHistory    []models.ChatMessage `json:"chatHistory" validate:"max=200,dive"`
}

func (in *ReplyInput) Validate() error {
	if err := validateInput.Struct(in); err != nil {
		return domain.NewDomainError(domain.ErrInvalidInput, err.Error())
	}
	return nil
}
