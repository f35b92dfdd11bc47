package httpapi

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/issacompass/promptloop/internal/application/services"
	"github.com/issacompass/promptloop/internal/config"
	"github.com/issacompass/promptloop/internal/domain"
	"github.com/issacompass/promptloop/internal/domain/models"
	"github.com/issacompass/promptloop/internal/ports"
)

const testAccessKey = "test-access-key"

type stubLLM struct {
	generateText func(ctx context.Context, in ports.GenerateInput) (string, error)
	generateJSON func(ctx context.Context, in ports.GenerateJSONInput) ([]byte, error)
}

func (s *stubLLM) GenerateText(ctx context.Context, in ports.GenerateInput) (string, error) {
	if s.generateText != nil {
		return s.generateText(ctx, in)
	}
	return "stub reply", nil
}

func (s *stubLLM) GenerateJSON(ctx context.Context, in ports.GenerateJSONInput) ([]byte, error) {
	if s.generateJSON != nil {
		return s.generateJSON(ctx, in)
	}
	return []byte(`{
		"aiScores": {"proactiveness": 70, "salesIntent": 70, "empathy": 70, "clarity": 70, "urgency": 70, "toneMatch": 70, "lengthMatch": 70},
		"consultantScores": {"proactiveness": 80, "salesIntent": 80, "empathy": 80, "clarity": 80, "urgency": 80, "toneMatch": 80, "lengthMatch": 80},
		"delta": 10,
		"diagnosis": "close enough",
		"recommendedEdits": []
	}`), nil
}

type memPromptRepo struct {
	prompt    string
	updatedAt time.Time
}

func (r *memPromptRepo) GetOrCreate(ctx context.Context) (*models.MasterPrompt, error) {
	if r.prompt == "" {
		r.prompt = services.DefaultMasterPrompt
		r.updatedAt = time.Now().UTC()
	}
	return &models.MasterPrompt{Prompt: r.prompt, UpdatedAt: r.updatedAt}, nil
}

func (r *memPromptRepo) Set(ctx context.Context, prompt string) (*models.MasterPrompt, error) {
	r.prompt = prompt
	r.updatedAt = time.Now().UTC()
	return &models.MasterPrompt{Prompt: prompt, UpdatedAt: r.updatedAt}, nil
}

type memRunRepo struct {
	runs []*models.Run
}

func (r *memRunRepo) Create(ctx context.Context, run *models.Run) error {
	r.runs = append(r.runs, run)
	return nil
}

func (r *memRunRepo) Get(ctx context.Context, id string) (*models.Run, error) {
	for _, run := range r.runs {
		if run.ID == id {
			return run, nil
		}
	}
	return nil, domain.ErrRunNotFound
}

func (r *memRunRepo) List(ctx context.Context, limit, offset int) ([]*models.Run, error) {
	return r.runs, nil
}

type noopTx struct{}

func (noopTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type seqIDs struct{ n int }

func (g *seqIDs) GenerateRunID() string {
	g.n++
	return fmt.Sprintf("run_%024d", g.n)
}

func newTestServer(t *testing.T, llm *stubLLM) (*httptest.Server, *memPromptRepo, *memRunRepo) {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	prompts := &memPromptRepo{}
	runs := &memRunRepo{}
	publisher := services.NewProgressPublisher(nil)

	promptSvc := services.NewPromptService(prompts, llm, logger)
	optimizer := services.NewOptimizationService(prompts, runs, noopTx{}, llm, publisher, &seqIDs{}, logger)

	cfg := config.DefaultConfig()
	cfg.Server.AccessKey = testAccessKey

	router := NewRouter(cfg, Deps{
		Prompts:   promptSvc,
		Optimizer: optimizer,
		Progress:  publisher,
		Runs:      runs,
		Hub:       NewHub(nil),
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, prompts, runs
}

func doRequest(t *testing.T, srv *httptest.Server, method, path string, body any) *http.Response {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, srv.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Access-Key", testAccessKey)

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestHealthIsOpen(t *testing.T) {
	srv, _, _ := newTestServer(t, &stubLLM{})

	resp, err := srv.Client().Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAccessKeyGate(t *testing.T) {
	srv, _, _ := newTestServer(t, &stubLLM{})

	resp, err := srv.Client().Get(srv.URL + "/api/v1/prompt")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/prompt", nil)
	req.Header.Set("Authorization", "Bearer "+testAccessKey)
	resp, err = srv.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = srv.Client().Get(srv.URL + "/api/v1/prompt?access_key=" + testAccessKey)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestGetPromptSeedsDefault(t *testing.T) {
	srv, _, _ := newTestServer(t, &stubLLM{})

	resp := doRequest(t, srv, http.MethodGet, "/api/v1/prompt", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody[map[string]string](t, resp)
	assert.Equal(t, services.DefaultMasterPrompt, body["prompt"])
	assert.NotEmpty(t, body["updatedAt"])
}

func TestPutPromptOverwrites(t *testing.T) {
	srv, prompts, _ := newTestServer(t, &stubLLM{})

	resp := doRequest(t, srv, http.MethodPut, "/api/v1/prompt", map[string]string{"prompt": "  replacement prompt  "})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[map[string]string](t, resp)
	assert.Equal(t, "replacement prompt", body["prompt"])
	assert.Equal(t, "replacement prompt", prompts.prompt)
}

func TestPutPromptRejectsBlank(t *testing.T) {
	srv, _, _ := newTestServer(t, &stubLLM{})

	resp := doRequest(t, srv, http.MethodPut, "/api/v1/prompt", map[string]string{"prompt": "   "})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestManualPromptImprove(t *testing.T) {
	llm := &stubLLM{
		generateJSON: func(ctx context.Context, in ports.GenerateJSONInput) ([]byte, error) {
			return []byte(`{"updatedPrompt": "editor output prompt"}`), nil
		},
	}
	srv, prompts, _ := newTestServer(t, llm)

	resp := doRequest(t, srv, http.MethodPost, "/api/v1/prompt/improve", map[string]string{"instructions": "be warmer"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[map[string]string](t, resp)
	assert.Equal(t, "editor output prompt", body["updatedPrompt"])
	assert.Equal(t, "editor output prompt", prompts.prompt)
}

func TestReplyEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t, &stubLLM{
		generateText: func(ctx context.Context, in ports.GenerateInput) (string, error) {
			return "Happy to help with your DTV application.", nil
		},
	})

	resp := doRequest(t, srv, http.MethodPost, "/api/v1/reply", map[string]any{
		"clientSequence": "Can I apply from Bali?",
		"chatHistory":    []map[string]string{{"role": "client", "message": "hi"}},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[map[string]string](t, resp)
	assert.Equal(t, "Happy to help with your DTV application.", body["aiReply"])
	assert.NotEmpty(t, body["promptVersionUpdatedAt"])
}

func TestReplyValidatesInput(t *testing.T) {
	srv, _, _ := newTestServer(t, &stubLLM{})

	resp := doRequest(t, srv, http.MethodPost, "/api/v1/reply", map[string]any{
		"clientSequence": "",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestImproveEndpointReturnsRunResult(t *testing.T) {
	srv, _, runs := newTestServer(t, &stubLLM{})

	resp := doRequest(t, srv, http.MethodPost, "/api/v1/improve", map[string]any{
		"clientSequence":  "Can I apply from Bali?",
		"consultantReply": "Yes, book soon.",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	result := decodeBody[services.RunResult](t, resp)
	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, 10.0, result.BestDelta)
	assert.Equal(t, 1, result.Iterations)
	assert.Equal(t, 1, result.ConvergedIteration)
	require.Len(t, runs.runs, 1)
}

func TestImproveQuotaMapsTo429(t *testing.T) {
	srv, _, _ := newTestServer(t, &stubLLM{
		generateJSON: func(ctx context.Context, in ports.GenerateJSONInput) ([]byte, error) {
			return nil, domain.ErrQuotaExceeded
		},
	})

	resp := doRequest(t, srv, http.MethodPost, "/api/v1/improve", map[string]any{
		"clientSequence":  "question",
		"consultantReply": "answer",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestImproveStreamDeliversEventSequence(t *testing.T) {
	srv, _, _ := newTestServer(t, &stubLLM{})

	payload, _ := json.Marshal(map[string]any{
		"clientSequence":  "Can I apply from Bali?",
		"consultantReply": "Yes, book soon.",
	})
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/v1/improve/stream", bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Access-Key", testAccessKey)

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	var types []string
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var event ports.ProgressEvent
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &event))
		types = append(types, event.Type)
	}
	require.NoError(t, scanner.Err())

	assert.Equal(t, []string{
		"connected",
		ports.ProgressEventStart,
		ports.ProgressEventIteration,
		ports.ProgressEventConverged,
		ports.ProgressEventDone,
	}, types)
}

func TestRunsEndpoints(t *testing.T) {
	srv, _, _ := newTestServer(t, &stubLLM{})

	resp := doRequest(t, srv, http.MethodPost, "/api/v1/improve", map[string]any{
		"clientSequence":  "question",
		"consultantReply": "answer",
	})
	result := decodeBody[services.RunResult](t, resp)

	listResp := doRequest(t, srv, http.MethodGet, "/api/v1/runs", nil)
	require.Equal(t, http.StatusOK, listResp.StatusCode)
	list := decodeBody[map[string][]models.Run](t, listResp)
	require.Len(t, list["runs"], 1)

	getResp := doRequest(t, srv, http.MethodGet, "/api/v1/runs/"+result.RunID, nil)
	require.Equal(t, http.StatusOK, getResp.StatusCode)
	run := decodeBody[models.Run](t, getResp)
	assert.Equal(t, result.RunID, run.ID)

	missing := doRequest(t, srv, http.MethodGet, "/api/v1/runs/run_does_not_exist", nil)
	defer missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestUnknownFieldRejected(t *testing.T) {
	srv, _, _ := newTestServer(t, &stubLLM{})

	resp := doRequest(t, srv, http.MethodPost, "/api/v1/reply", map[string]any{
		"clientSequence": "hi",
		"chatHistroy":    []map[string]string{},
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
