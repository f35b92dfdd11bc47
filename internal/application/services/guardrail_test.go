package services

import (
	"errors"
	"strings"
	"testing"

	"github.com/issacompass/promptloop/internal/domain"
)

func TestValidateEditedPromptTrims(t *testing.T) {
	got, err := validateEditedPrompt("previous", "  updated prompt \n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "updated prompt" {
		t.Errorf("expected trimmed prompt, got %q", got)
	}
}

func TestValidateEditedPromptRejectsBlank(t *testing.T) {
	_, err := validateEditedPrompt("previous", "   \n\t ")
	if !errors.Is(err, domain.ErrPromptEmpty) {
		t.Fatalf("expected ErrPromptEmpty, got %v", err)
	}
}

func TestValidateEditedPromptSizeBoundary(t *testing.T) {
	prev := strings.Repeat("p", 100)
	limit := len(prev)*3 + 4000

	atLimit := strings.Repeat("x", limit)
	if _, err := validateEditedPrompt(prev, atLimit); err != nil {
		t.Fatalf("prompt exactly at the limit must pass: %v", err)
	}

	overLimit := strings.Repeat("x", limit+1)
	_, err := validateEditedPrompt(prev, overLimit)
	if !errors.Is(err, domain.ErrPromptTooLarge) {
		t.Fatalf("expected ErrPromptTooLarge, got %v", err)
	}
}

func TestValidateEditedPromptLimitUsesTrimmedLength(t *testing.T) {
	prev := "short"
	limit := len(prev)*3 + 4000
	padded := "  " + strings.Repeat("x", limit) + "  "
	if _, err := validateEditedPrompt(prev, padded); err != nil {
		t.Fatalf("surrounding whitespace must not count against the limit: %v", err)
	}
}
