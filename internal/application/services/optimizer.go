package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/issacompass/promptloop/internal/adapters/metrics"
	"github.com/issacompass/promptloop/internal/domain"
	"github.com/issacompass/promptloop/internal/domain/models"
	"github.com/issacompass/promptloop/internal/llm"
	"github.com/issacompass/promptloop/internal/ports"
)

const responderTemperature = 0.4

// RunResult is the outcome of a completed optimization run.
type RunResult struct {
	RunID                 string                   `json:"runId"`
	PredictedReply        string                   `json:"predictedReply"`
	UpdatedPrompt         string                   `json:"updatedPrompt"`
	BestDelta             float64                  `json:"bestDelta"`
	Iterations            int                      `json:"iterations"`
	RunLog                []models.IterationRecord `json:"runLog"`
	ConvergedIteration    int                      `json:"convergedIteration,omitempty"`
	UpdatedPromptStoredAt time.Time                `json:"updatedPromptStoredAt"`
}

// OptimizationService drives the closed improvement loop: predict, grade
// against the reference reply, edit the master prompt, repeat.
type OptimizationService struct {
	prompts  ports.MasterPromptRepository
	runs     ports.RunRepository
	tx       ports.TransactionManager
	llm      ports.LLMClient
	progress ports.ProgressPublisher
	ids      ports.IDGenerator
	logger   *slog.Logger
}

// NewOptimizationService creates the optimizer with its collaborators.
func NewOptimizationService(
	prompts ports.MasterPromptRepository,
	runs ports.RunRepository,
	tx ports.TransactionManager,
	llm ports.LLMClient,
	progress ports.ProgressPublisher,
	ids ports.IDGenerator,
	logger *slog.Logger,
) *OptimizationService {
	return &OptimizationService{
		prompts:  prompts,
		runs:     runs,
		tx:       tx,
		llm:      llm,
		progress: progress,
		ids:      ids,
		logger:   logger,
	}
}

// NewRunID mints a run identifier. Callers subscribe to progress with it
// before starting the run.
func (s *OptimizationService) NewRunID() string {
	return s.ids.GenerateRunID()
}

func promptHash(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(sum[:])
}

func responderUserPrompt(clientSequence string, history []models.ChatMessage) string {
	return fmt.Sprintf("Client sequence:\n%s\n\nChat history:\n%s", clientSequence, models.HistoryText(history))
}

type fullGradePayload struct {
	ClientSequence  string               `json:"clientSequence"`
	ChatHistory     []models.ChatMessage `json:"chatHistory"`
	PredictedReply  string               `json:"predictedReply"`
	ConsultantReply string               `json:"consultantReply"`
}

type candidateGradePayload struct {
	ClientSequence   string               `json:"clientSequence"`
	ChatHistory      []models.ChatMessage `json:"chatHistory"`
	PredictedReply   string               `json:"predictedReply"`
	ConsultantReply  string               `json:"consultantReply"`
	ConsultantScores models.ScoreVector   `json:"consultantScores"`
}

type editorPayload struct {
	CurrentMasterPrompt string               `json:"currentMasterPrompt"`
	GraderOutput        models.ScoringReport `json:"graderOutput"`
}

const graderSchemaHint = `{"aiScores": {"proactiveness": number, ...}, "delta": number, "diagnosis": string, "recommendedEdits": string[]}`
const editorSchemaHint = `{"updatedPrompt": string}`

// Improve executes a full optimization run. It publishes the run's progress
// event sequence and closes the run's subscriptions when the sequence has
// terminated. On success the best prompt has been stored and the run
// persisted; on error nothing has been written.
func (s *OptimizationService) Improve(ctx context.Context, runID string, input ImproveInput) (*RunResult, error) {
	defer s.progress.Close(runID)

	// A run cancelled before it starts emits no events at all.
	if ctx.Err() != nil {
		metrics.OptimizationRunsTotal.WithLabelValues("aborted").Inc()
		return nil, domain.ErrAborted
	}

	result, err := s.improve(ctx, runID, input)
	if err != nil {
		outcome := "failed"
		if ctx.Err() != nil {
			outcome = "aborted"
			err = domain.ErrAborted
		}
		metrics.OptimizationRunsTotal.WithLabelValues(outcome).Inc()
		s.logger.Error("optimization run failed", "run_id", runID, "error", err)
		s.progress.Publish(ports.ProgressEvent{
			Type:    ports.ProgressEventError,
			RunID:   runID,
			Message: domain.SafeMessage(err),
		})
		return nil, err
	}

	metrics.OptimizationRunsTotal.WithLabelValues("completed").Inc()
	s.progress.Publish(ports.ProgressEvent{
		Type:                  ports.ProgressEventDone,
		RunID:                 runID,
		Iterations:            result.Iterations,
		BestDelta:             result.BestDelta,
		UpdatedPromptStoredAt: result.UpdatedPromptStoredAt.Format(time.RFC3339),
	})
	return result, nil
}

func (s *OptimizationService) improve(ctx context.Context, runID string, input ImproveInput) (*RunResult, error) {
	input.Normalize()
	if err := input.Validate(); err != nil {
		return nil, err
	}
	thresholdDelta := *input.ThresholdDelta

	state, err := s.prompts.GetOrCreate(ctx)
	if err != nil {
		return nil, err
	}

	s.logger.Info("optimization run started",
		"run_id", runID,
		"max_iterations", input.MaxIterations,
		"threshold_delta", thresholdDelta,
		"grader_ensemble_count", input.GraderEnsembleCount,
	)
	s.progress.Publish(ports.ProgressEvent{
		Type:                ports.ProgressEventStart,
		RunID:               runID,
		MaxIterations:       input.MaxIterations,
		ThresholdDelta:      thresholdDelta,
		GraderEnsembleCount: input.GraderEnsembleCount,
		ReferenceReply:      input.ConsultantReply,
		ResponderUserPrompt: responderUserPrompt(input.ClientSequence, input.ChatHistory),
	})

	currentPrompt := state.Prompt
	bestPrompt := currentPrompt
	bestDelta := float64(0)
	bestSet := false
	noImprovementCount := 0
	convergedIteration := 0
	lastPredictedReply := ""
	var runLog []models.IterationRecord
	var referenceScores *models.ScoreVector

	for iteration := 1; iteration <= input.MaxIterations; iteration++ {
		if ctx.Err() != nil {
			return nil, domain.ErrAborted
		}

		promptBefore := currentPrompt
		temp := responderTemperature
		predictedReply, err := s.llm.GenerateText(ctx, ports.GenerateInput{
			Role:         ports.LLMRoleResponder,
			SystemPrompt: currentPrompt,
			UserPrompt:   responderUserPrompt(input.ClientSequence, input.ChatHistory),
			Temperature:  &temp,
		})
		if err != nil {
			return nil, err
		}
		lastPredictedReply = predictedReply

		var report models.ScoringReport
		if referenceScores == nil {
			outputs, err := s.gradeFull(ctx, input, predictedReply)
			if err != nil {
				return nil, err
			}
			candidates := make([]models.ScoreVector, len(outputs))
			references := make([]models.ScoreVector, len(outputs))
			deltas := make([]float64, len(outputs))
			feedback := make([]graderFeedback, len(outputs))
			for i, o := range outputs {
				candidates[i] = o.CandidateScores
				references[i] = o.ReferenceScores
				deltas[i] = o.Delta
				feedback[i] = graderFeedback{Diagnosis: o.Diagnosis, RecommendedEdits: o.RecommendedEdits}
			}
			avgRef := averageScores(references)
			referenceScores = &avgRef
			report = models.ScoringReport{
				CandidateScores:  averageScores(candidates),
				ReferenceScores:  avgRef,
				Delta:            averageDeltas(deltas),
				Diagnosis:        mergeDiagnoses(feedback),
				RecommendedEdits: mergeRecommendedEdits(feedback),
			}
		} else {
			outputs, err := s.gradeCandidateOnly(ctx, input, predictedReply, *referenceScores)
			if err != nil {
				return nil, err
			}
			candidates := make([]models.ScoreVector, len(outputs))
			deltas := make([]float64, len(outputs))
			feedback := make([]graderFeedback, len(outputs))
			for i, o := range outputs {
				candidates[i] = o.CandidateScores
				deltas[i] = o.Delta
				feedback[i] = graderFeedback{Diagnosis: o.Diagnosis, RecommendedEdits: o.RecommendedEdits}
			}
			report = models.ScoringReport{
				CandidateScores:  averageScores(candidates),
				ReferenceScores:  *referenceScores,
				Delta:            averageDeltas(deltas),
				Diagnosis:        mergeDiagnoses(feedback),
				RecommendedEdits: mergeRecommendedEdits(feedback),
			}
		}

		// Strictly-smaller only: an equal delta counts as no improvement.
		if !bestSet || report.Delta < bestDelta {
			bestDelta = report.Delta
			bestPrompt = currentPrompt
			bestSet = true
			noImprovementCount = 0
		} else {
			noImprovementCount++
		}

		promptAfter := currentPrompt
		switch {
		case report.Delta <= thresholdDelta:
			convergedIteration = iteration
		case noImprovementCount >= input.EarlyStopPatience:
			// Stalled; no further edit.
		default:
			nextPrompt, err := s.editPrompt(ctx, currentPrompt, report)
			if err != nil {
				return nil, err
			}
			promptAfter = nextPrompt
			currentPrompt = nextPrompt
		}

		runLog = append(runLog, models.IterationRecord{
			Iteration:          iteration,
			PredictedReply:     predictedReply,
			AvgCandidateScores: report.CandidateScores,
			AvgReferenceScores: report.ReferenceScores,
			AvgDelta:           report.Delta,
			Diagnosis:          report.Diagnosis,
			RecommendedEdits:   report.RecommendedEdits,
			PromptBefore:       promptBefore,
			PromptAfter:        promptAfter,
		})

		metrics.OptimizationIterationsTotal.Inc()
		event := ports.ProgressEvent{
			Type:               ports.ProgressEventIteration,
			RunID:              runID,
			Iteration:          iteration,
			PredictedReply:     predictedReply,
			AvgCandidateScores: &report.CandidateScores,
			AvgReferenceScores: &report.ReferenceScores,
			AvgDelta:           report.Delta,
			BestDeltaSoFar:     bestDelta,
			Diagnosis:          report.Diagnosis,
			RecommendedEdits:   report.RecommendedEdits,
			PromptBeforeHash:   promptHash(promptBefore),
			PromptAfterHash:    promptHash(promptAfter),
		}
		if input.IncludePromptDiff {
			event.PromptBeforePreview = promptBefore
			event.PromptAfterPreview = promptAfter
		}
		s.progress.Publish(event)
		s.logger.Info("optimization iteration finished",
			"run_id", runID,
			"iteration", iteration,
			"avg_delta", report.Delta,
			"best_delta", bestDelta,
		)

		if convergedIteration != 0 {
			s.progress.Publish(ports.ProgressEvent{
				Type:           ports.ProgressEventConverged,
				RunID:          runID,
				Iteration:      iteration,
				AvgDelta:       report.Delta,
				BestDeltaSoFar: bestDelta,
			})
			break
		}
		if noImprovementCount >= input.EarlyStopPatience {
			break
		}
	}

	// The best prompt is stored unconditionally, even when it is the
	// unmodified starting prompt.
	storedAt := time.Now().UTC()
	run := models.NewRun(runID, input.ClientSequence, input.ChatHistory, input.ConsultantReply, bestDelta, bestPrompt, runLog)
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.prompts.Set(ctx, bestPrompt); err != nil {
			return err
		}
		return s.runs.Create(ctx, run)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("optimization run completed",
		"run_id", runID,
		"iterations", len(runLog),
		"best_delta", bestDelta,
		"converged_iteration", convergedIteration,
	)

	return &RunResult{
		RunID:                 runID,
		PredictedReply:        lastPredictedReply,
		UpdatedPrompt:         bestPrompt,
		BestDelta:             bestDelta,
		Iterations:            len(runLog),
		RunLog:                runLog,
		ConvergedIteration:    convergedIteration,
		UpdatedPromptStoredAt: storedAt,
	}, nil
}

// gradeFull runs the first-iteration ensemble: every grader scores both the
// candidate and the reference reply. Calls run concurrently; results keep
// ensemble order.
func (s *OptimizationService) gradeFull(ctx context.Context, input ImproveInput, predictedReply string) ([]models.GraderOutput, error) {
	payload, err := json.MarshalIndent(fullGradePayload{
		ClientSequence:  input.ClientSequence,
		ChatHistory:     input.ChatHistory,
		PredictedReply:  predictedReply,
		ConsultantReply: input.ConsultantReply,
	}, "", "  ")
	if err != nil {
		return nil, err
	}

	outputs := make([]models.GraderOutput, input.GraderEnsembleCount)
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < input.GraderEnsembleCount; i++ {
		g.Go(func() error {
			raw, err := s.llm.GenerateJSON(ctx, ports.GenerateJSONInput{
				GenerateInput: ports.GenerateInput{
					Role:         ports.LLMRoleGrader,
					SystemPrompt: graderPrompt,
					UserPrompt:   string(payload),
				},
				SchemaHint: graderSchemaHint,
			})
			if err != nil {
				return err
			}
			return llm.ParseInto(raw, &outputs[i])
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outputs, nil
}

// gradeCandidateOnly runs the ensemble for iterations after the first. The
// reference scores are passed through; only the candidate is re-scored.
func (s *OptimizationService) gradeCandidateOnly(ctx context.Context, input ImproveInput, predictedReply string, referenceScores models.ScoreVector) ([]models.GraderCandidateOnlyOutput, error) {
	payload, err := json.MarshalIndent(candidateGradePayload{
		ClientSequence:   input.ClientSequence,
		ChatHistory:      input.ChatHistory,
		PredictedReply:   predictedReply,
		ConsultantReply:  input.ConsultantReply,
		ConsultantScores: referenceScores,
	}, "", "  ")
	if err != nil {
		return nil, err
	}

	outputs := make([]models.GraderCandidateOnlyOutput, input.GraderEnsembleCount)
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < input.GraderEnsembleCount; i++ {
		g.Go(func() error {
			raw, err := s.llm.GenerateJSON(ctx, ports.GenerateJSONInput{
				GenerateInput: ports.GenerateInput{
					Role:         ports.LLMRoleGrader,
					SystemPrompt: graderCandidateOnlyPrompt,
					UserPrompt:   string(payload),
				},
				SchemaHint: graderSchemaHint,
			})
			if err != nil {
				return err
			}
			return llm.ParseInto(raw, &outputs[i])
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outputs, nil
}

// editPrompt asks the editor for a revised master prompt and applies the
// output guardrail.
func (s *OptimizationService) editPrompt(ctx context.Context, currentPrompt string, report models.ScoringReport) (string, error) {
	payload, err := json.MarshalIndent(editorPayload{
		CurrentMasterPrompt: currentPrompt,
		GraderOutput:        report,
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
	return validateEditedPrompt(currentPrompt, out.UpdatedPrompt)
}
