package ports

import "context"

// LLM role constants. Each role may be served by a different model.
const (
	LLMRoleResponder = "responder"
	LLMRoleGrader    = "grader"
	LLMRoleEditor    = "editor"
)

// GenerateInput is a single text-generation request.
type GenerateInput struct {
	Role         string
	SystemPrompt string
	UserPrompt   string
	Temperature  *float64
	MaxTokens    int
}

// GenerateJSONInput is a structured-generation request. SchemaHint, when
// set, is included in the repair prompt if the first response fails to parse.
type GenerateJSONInput struct {
	GenerateInput
	SchemaHint string
}

// LLMClient is the boundary to the external text-generation capability.
//
// GenerateText returns the trimmed text of the model response. GenerateJSON
// returns the raw JSON payload of a structured response; parsing into a typed
// shape happens at the caller via llm.ParseInto. GenerateJSON performs
// exactly one repair attempt (temperature 0) before failing with
// domain.ErrInvalidStructured.
type LLMClient interface {
	GenerateText(ctx context.Context, input GenerateInput) (string, error)
	GenerateJSON(ctx context.Context, input GenerateJSONInput) ([]byte, error)
}
