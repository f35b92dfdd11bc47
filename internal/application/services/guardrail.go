package services

import (
	"strings"

	"github.com/issacompass/promptloop/internal/domain"
)

// Growth bound for an edited prompt relative to the prompt it replaces.
const (
	promptGrowthFactor = 3
	promptGrowthSlack  = 4000
)

// validateEditedPrompt applies the output guardrail to an editor result:
// the trimmed prompt must be non-empty and must not exceed three times the
// previous prompt's length plus a fixed slack. Returns the trimmed prompt.
func validateEditedPrompt(previous, next string) (string, error) {
	trimmed := strings.TrimSpace(next)
	if trimmed == "" {
		return "", domain.ErrPromptEmpty
	}
	if len(trimmed) > len(previous)*promptGrowthFactor+promptGrowthSlack {
		return "", domain.ErrPromptTooLarge
	}
	return trimmed, nil
}
