package domain

import "errors"

// Common domain errors
var (
	// Run lifecycle errors
	ErrAborted     = errors.New("run aborted by caller")
	ErrRunNotFound = errors.New("run not found")

	// Editor guardrail errors
	ErrPromptEmpty    = errors.New("editor returned an empty prompt")
	ErrPromptTooLarge = errors.New("editor update exceeded size guardrail")

	// LLM boundary errors
	ErrProvider          = errors.New("model provider request failed")
	ErrQuotaExceeded     = errors.New("model provider quota exceeded")
	ErrEmptyResponse     = errors.New("model returned an empty response")
	ErrInvalidStructured = errors.New("model returned invalid structured output")

	// Validation errors
	ErrInvalidInput = errors.New("invalid input")
	ErrEmptyContent = errors.New("content cannot be empty")
)

// DomainError wraps a domain error with additional context
type DomainError struct {
	Err     error
	Message string
}

func (e *DomainError) Error() string {
	if e.Message != "" {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

func NewDomainError(err error, message string) *DomainError {
	return &DomainError{
		Err:     err,
		Message: message,
	}
}

// SafeMessage maps any error to a message that can be shown to API callers.
// Raw provider error bodies are never surfaced, only logged.
func SafeMessage(err error) string {
	switch {
	case errors.Is(err, ErrAborted):
		return "Request was aborted."
	case errors.Is(err, ErrPromptEmpty):
		return "Prompt editor returned an invalid prompt."
	case errors.Is(err, ErrPromptTooLarge):
		return "Prompt editor update exceeded guardrails."
	case errors.Is(err, ErrInvalidStructured):
		return "Model returned invalid JSON."
	case errors.Is(err, ErrQuotaExceeded):
		return "Model quota exceeded. Please wait or add provider credits."
	case errors.Is(err, ErrEmptyResponse):
		return "Model returned an empty response."
	case errors.Is(err, ErrProvider):
		return "Model provider request failed."
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrEmptyContent):
		return "Invalid input."
	default:
		return "Internal processing error."
	}
}
