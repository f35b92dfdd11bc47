package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/issacompass/promptloop/internal/adapters/metrics"
	"github.com/issacompass/promptloop/internal/domain"
	"github.com/issacompass/promptloop/internal/ports"
)

const defaultTemperature = 0.2

// Client calls the Gemini generateContent REST API. One model is configured
// per pipeline role (responder, grader, editor).
type Client struct {
	baseURL      string
	apiKey       string
	modelsByRole map[string]string
	maxTokens    int
	httpClient   *http.Client
}

// NewClient creates a new generation client. baseURL is the API root, e.g.
// https://generativelanguage.googleapis.com/v1beta.
func NewClient(baseURL, apiKey string, modelsByRole map[string]string, maxTokens int) *Client {
	return &Client{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		apiKey:       apiKey,
		modelsByRole: modelsByRole,
		maxTokens:    maxTokens,
		httpClient:   &http.Client{Timeout: 2 * time.Minute},
	}
}

var _ ports.LLMClient = (*Client)(nil)

type generateContentRequest struct {
	SystemInstruction content          `json:"system_instruction"`
	Contents          []roleContent    `json:"contents"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type roleContent struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// GenerateText sends a single generation request and returns the trimmed
// response text.
func (c *Client) GenerateText(ctx context.Context, input ports.GenerateInput) (string, error) {
	model, ok := c.modelsByRole[input.Role]
	if !ok {
		return "", domain.NewDomainError(domain.ErrInvalidInput, fmt.Sprintf("no model configured for role %q", input.Role))
	}

	temperature := defaultTemperature
	if input.Temperature != nil {
		temperature = *input.Temperature
	}
	maxTokens := input.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}

	reqBody := generateContentRequest{
		SystemInstruction: content{Parts: []part{{Text: input.SystemPrompt}}},
		Contents:          []roleContent{{Role: "user", Parts: []part{{Text: input.UserPrompt}}}},
		GenerationConfig: generationConfig{
			Temperature:     temperature,
			MaxOutputTokens: maxTokens,
		},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.LLMRequestsTotal.WithLabelValues(input.Role, "transport_error").Inc()
		if ctx.Err() != nil {
			return "", domain.ErrAborted
		}
		return "", domain.NewDomainError(domain.ErrProvider, err.Error())
	}
	defer resp.Body.Close()
	metrics.LLMRequestDuration.WithLabelValues(input.Role).Observe(time.Since(start).Seconds())

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
		// Raw provider bodies are logged but never surfaced to callers.
		slog.Error("llm provider error", "role", input.Role, "model", model, "status", resp.StatusCode, "body", string(body))
		metrics.LLMRequestsTotal.WithLabelValues(input.Role, "provider_error").Inc()
		lower := strings.ToLower(string(body))
		if resp.StatusCode == http.StatusTooManyRequests ||
			strings.Contains(lower, "resource_exhausted") ||
			strings.Contains(lower, "quota exceeded") {
			return "", domain.ErrQuotaExceeded
		}
		return "", domain.ErrProvider
	}

	var parsed generateContentResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		metrics.LLMRequestsTotal.WithLabelValues(input.Role, "decode_error").Inc()
		return "", domain.NewDomainError(domain.ErrProvider, "decode response: "+err.Error())
	}

	var sb strings.Builder
	if len(parsed.Candidates) > 0 {
		for _, p := range parsed.Candidates[0].Content.Parts {
			sb.WriteString(p.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		metrics.LLMRequestsTotal.WithLabelValues(input.Role, "empty").Inc()
		return "", domain.ErrEmptyResponse
	}

	metrics.LLMRequestsTotal.WithLabelValues(input.Role, "ok").Inc()
	return text, nil
}
