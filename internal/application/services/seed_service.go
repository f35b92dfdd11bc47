package services

import (
	"context"
	"log/slog"

	"github.com/issacompass/promptloop/internal/domain"
	"github.com/issacompass/promptloop/internal/domain/models"
)

// SeedOptions control a batch seeding pass over a conversation export.
type SeedOptions struct {
	// SampleCount caps how many extracted turns are replayed. Zero means all.
	SampleCount int

	// Loop parameters applied to each replayed turn. Zero values take the
	// optimizer defaults.
	MaxIterations       int
	ThresholdDelta      *float64
	GraderEnsembleCount int
	EarlyStopPatience   int
}

// SeedTurnResult is the outcome of one replayed turn.
type SeedTurnResult struct {
	ContactID      string  `json:"contactId"`
	SequenceNumber int     `json:"sequenceNumber"`
	RunID          string  `json:"runId"`
	BestDelta      float64 `json:"bestDelta"`
	Iterations     int     `json:"iterations"`
	Converged      bool    `json:"converged"`
}

// SeedReport summarizes a whole seeding pass.
type SeedReport struct {
	ExtractedTurns int              `json:"extractedTurns"`
	EligibleTurns  int              `json:"eligibleTurns"`
	ReplayedTurns  int              `json:"replayedTurns"`
	Results        []SeedTurnResult `json:"results"`
}

// SeedService replays historical consultant conversations through the
// optimizer to bootstrap the master prompt from real data.
type SeedService struct {
	optimizer *OptimizationService
	logger    *slog.Logger
}

func NewSeedService(optimizer *OptimizationService, logger *slog.Logger) *SeedService {
	return &SeedService{optimizer: optimizer, logger: logger}
}

// SeedFromConversations extracts client turns from a conversation export and
// runs an optimization pass for each sampled turn, sequentially, so every
// turn builds on the prompt the previous one produced. Turns without a
// consultant reply are skipped.
func (s *SeedService) SeedFromConversations(ctx context.Context, conversations []models.ConversationExport, opts SeedOptions) (*SeedReport, error) {
	if len(conversations) == 0 {
		return nil, domain.NewDomainError(domain.ErrInvalidInput, "no conversations in export")
	}

	turns := models.ExtractClientTurns(conversations)
	eligible := make([]models.ClientTurn, 0, len(turns))
	for _, t := range turns {
		if t.HasReply() {
			eligible = append(eligible, t)
		}
	}

	sample := eligible
	if opts.SampleCount > 0 && opts.SampleCount < len(sample) {
		sample = sample[:opts.SampleCount]
	}

	s.logger.Info("seeding from conversation export",
		"conversations", len(conversations),
		"extracted_turns", len(turns),
		"eligible_turns", len(eligible),
		"sample_size", len(sample),
	)

	report := &SeedReport{
		ExtractedTurns: len(turns),
		EligibleTurns:  len(eligible),
	}

	for _, turn := range sample {
		if ctx.Err() != nil {
			return report, domain.ErrAborted
		}

		input := ImproveInput{
			ClientSequence:      models.JoinedText(turn.ClientSequence),
			ChatHistory:         models.HistoryMessages(turn.PrecedingHistory),
			ConsultantReply:     models.JoinedText(turn.ConsultantReply),
			MaxIterations:       opts.MaxIterations,
			ThresholdDelta:      opts.ThresholdDelta,
			GraderEnsembleCount: opts.GraderEnsembleCount,
			EarlyStopPatience:   opts.EarlyStopPatience,
		}

		runID := s.optimizer.NewRunID()
		result, err := s.optimizer.Improve(ctx, runID, input)
		if err != nil {
			s.logger.Error("seed turn failed",
				"contact_id", turn.ContactID,
				"sequence_number", turn.SequenceNumber,
				"error", err,
			)
			return report, err
		}

		report.ReplayedTurns++
		report.Results = append(report.Results, SeedTurnResult{
			ContactID:      turn.ContactID,
			SequenceNumber: turn.SequenceNumber,
			RunID:          runID,
			BestDelta:      result.BestDelta,
			Iterations:     result.Iterations,
			Converged:      result.ConvergedIteration != 0,
		})
	}

	return report, nil
}
