package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/issacompass/promptloop/internal/domain"
	"github.com/issacompass/promptloop/internal/domain/models"
	"github.com/issacompass/promptloop/internal/llm"
	"github.com/issacompass/promptloop/internal/ports"
)

// Input bounds for the manual prompt operations.
const (
	MaxManualInstructionsLen = 12000
	MaxPromptOverwriteLen    = 50000
)

// PromptService covers the master prompt operations outside the optimizer
// loop: reading it, overwriting it, applying manual editor instructions, and
// generating a responder reply from it.
type PromptService struct {
	prompts ports.MasterPromptRepository
	llm     ports.LLMClient
	logger  *slog.Logger
}

func NewPromptService(prompts ports.MasterPromptRepository, llmClient ports.LLMClient, logger *slog.Logger) *PromptService {
	return &PromptService{
		prompts: prompts,
		llm:     llmClient,
		logger:  logger,
	}
}

// Get returns the current master prompt, seeding the default on first access.
func (s *PromptService) Get(ctx context.Context) (*models.MasterPrompt, error) {
	return s.prompts.GetOrCreate(ctx)
}

// Overwrite replaces the master prompt with caller-provided text.
func (s *PromptService) Overwrite(ctx context.Context, prompt string) (*models.MasterPrompt, error) {
	trimmed := strings.TrimSpace(prompt)
	if trimmed == "" {
		return nil, domain.NewDomainError(domain.ErrInvalidInput, "prompt cannot be empty")
	}
	if len(trimmed) > MaxPromptOverwriteLen {
		return nil, domain.NewDomainError(domain.ErrInvalidInput, "prompt exceeds maximum length")
	}

	// Seed the singleton first so an overwrite of a fresh database behaves
	// the same as one of a long-lived install.
	if _, err := s.prompts.GetOrCreate(ctx); err != nil {
		return nil, err
	}

	state, err := s.prompts.Set(ctx, trimmed)
	if err != nil {
		return nil, err
	}
	s.logger.Info("master prompt overwritten", "length", len(trimmed))
	return state, nil
}

type manualEditorPayload struct {
	CurrentMasterPrompt string `json:"currentMasterPrompt"`
	Instructions        string `json:"instructions"`
}

// ImproveManually applies free-form instructions to the master prompt via
// the editor model, subject to the same guardrail as the optimizer loop.
func (s *PromptService) ImproveManually(ctx context.Context, instructions string) (string, error) {
	trimmed := strings.TrimSpace(instructions)
	if trimmed == "" {
		return "", domain.NewDomainError(domain.ErrInvalidInput, "instructions cannot be empty")
	}
	if len(trimmed) > MaxManualInstructionsLen {
		return "", domain.NewDomainError(domain.ErrInvalidInput, "instructions exceed maximum length")
	}

	state, err := s.prompts.GetOrCreate(ctx)
	if err != nil {
		return "", err
	}

	payload, err := json.MarshalIndent(manualEditorPayload{
		CurrentMasterPrompt: state.Prompt,
		Instructions:        trimmed,
	}, "", "  ")
	if err != nil {
		return "", err
	}

	raw, err := s.llm.GenerateJSON(ctx, ports.GenerateJSONInput{
		GenerateInput: ports.GenerateInput{
			Role:         ports.LLMRoleEditor,
			SystemPrompt: editorPrompt,
			UserPrompt:   string(payload),
		},
		SchemaHint: editorSchemaHint,
	})
	if err != nil {
		return "", err
	}

	var out models.EditorOutput
	if err := llm.ParseInto(raw, &out); err != nil {
		return "", err
	}

	updated, err := validateEditedPrompt(state.Prompt, out.UpdatedPrompt)
	if err != nil {
		return "", err
	}

	if _, err := s.prompts.Set(ctx, updated); err != nil {
		return "", err
	}
	s.logger.Info("master prompt improved manually", "length", len(updated))
	return updated, nil
}

// GenerateReply runs the responder once against the stored master prompt.
// Nothing is persisted. The returned time identifies the prompt version used.
func (s *PromptService) GenerateReply(ctx context.Context, input ReplyInput) (string, time.Time, error) {
	if err := input.Validate(); err != nil {
		return "", time.Time{}, err
	}
	if ctx.Err() != nil {
		return "", time.Time{}, domain.ErrAborted
	}

	state, err := s.prompts.GetOrCreate(ctx)
	if err != nil {
		return "", time.Time{}, err
	}

	temp := responderTemperature
	reply, err := s.llm.GenerateText(ctx, ports.GenerateInput{
		Role:         ports.LLMRoleResponder,
		SystemPrompt: state.Prompt,
		UserPrompt:   responderUserPrompt(input.ClientSequence, input.ChatHistory),
		Temperature:  &temp,
	})
	if err != nil {
		return "", time.Time{}, err
	}
	return reply, state.UpdatedAt, nil
}
