package llm

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/issacompass/promptloop/internal/domain"
	"github.com/issacompass/promptloop/internal/ports"
)

var validate = validator.New()

// extractJSON returns the given text if it parses as JSON, otherwise the
// first "{"..last "}" slice as a fence/preamble fallback.
func extractJSON(raw string) ([]byte, error) {
	trimmed := strings.TrimSpace(raw)
	if json.Valid([]byte(trimmed)) {
		return []byte(trimmed), nil
	}
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start >= 0 && end > start {
		candidate := trimmed[start : end+1]
		if json.Valid([]byte(candidate)) {
			return []byte(candidate), nil
		}
	}
	return nil, domain.ErrInvalidStructured
}

// GenerateJSON requests strict JSON output. If the first response fails to
// parse, it issues exactly one repair attempt at temperature 0 before giving
// up with domain.ErrInvalidStructured.
func (c *Client) GenerateJSON(ctx context.Context, input ports.GenerateJSONInput) ([]byte, error) {
	first := input.GenerateInput
	first.UserPrompt = input.UserPrompt + "\n\nReturn strict JSON only."

	firstPass, err := c.GenerateText(ctx, first)
	if err != nil {
		return nil, err
	}

	if data, err := extractJSON(firstPass); err == nil {
		return data, nil
	}

	// Retry once with a targeted repair instruction.
	sections := []string{
		"Convert the following content into valid JSON only.",
		"Do not add explanations.",
	}
	if input.SchemaHint != "" {
		sections = append(sections, "Schema hint:\n"+input.SchemaHint)
	}
	sections = append(sections, "Content to repair:", firstPass)

	zero := 0.0
	repair := input.GenerateInput
	repair.UserPrompt = strings.Join(sections, "\n\n")
	repair.Temperature = &zero

	repaired, err := c.GenerateText(ctx, repair)
	if err != nil {
		return nil, err
	}

	data, err := extractJSON(repaired)
	if err != nil {
		return nil, domain.ErrInvalidStructured
	}
	return data, nil
}

// ParseInto unmarshals a structured payload into target and runs its
// validation tags. Shape violations surface as domain.ErrInvalidStructured.
func ParseInto(data []byte, target any) error {
	if err := json.Unmarshal(data, target); err != nil {
		return domain.NewDomainError(domain.ErrInvalidStructured, err.Error())
	}
	if err := validate.Struct(target); err != nil {
		return domain.NewDomainError(domain.ErrInvalidStructured, err.Error())
	}
	return nil
}
