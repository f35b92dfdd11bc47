package services

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/issacompass/promptloop/internal/domain"
	"github.com/issacompass/promptloop/internal/domain/models"
	"github.com/issacompass/promptloop/internal/ports"
)

func seedConversations() []models.ConversationExport {
	return []models.ConversationExport{
		{
			ContactID: "c1",
			Scenario:  "eligibility",
			Conversation: []models.ExportMessage{
				{Direction: models.DirectionIn, Text: "Can I apply from Bali?"},
				{Direction: models.DirectionOut, Text: "Yes, and I'd book soon."},
				{Direction: models.DirectionIn, Text: "what documents?"},
				{Direction: models.DirectionOut, Text: "Passport, funds, and remote work proof."},
			},
		},
		{
			ContactID: "c2",
			Scenario:  "documents",
			Conversation: []models.ExportMessage{
				{Direction: models.DirectionIn, Text: "is my bank statement ok?"},
			},
		},
	}
}

func TestSeedFromConversationsReplaysEligibleTurns(t *testing.T) {
	llmStub := &stubLLM{
		generateJSON: func(ctx context.Context, in ports.GenerateJSONInput) ([]byte, error) {
			return graderFullJSON(10), nil
		},
	}
	optimizer, _, runs, _ := newTestService(llmStub)
	seeder := NewSeedService(optimizer, slog.New(slog.DiscardHandler))

	report, err := seeder.SeedFromConversations(context.Background(), seedConversations(), SeedOptions{
		GraderEnsembleCount: 1,
	})
	require.NoError(t, err)

	// c1 yields two answered turns; c2's lone turn has no reply.
	assert.Equal(t, 3, report.ExtractedTurns)
	assert.Equal(t, 2, report.EligibleTurns)
	assert.Equal(t, 2, report.ReplayedTurns)
	require.Len(t, report.Results, 2)
	assert.True(t, report.Results[0].Converged)
	assert.Len(t, runs.runs, 2)
}

func TestSeedFromConversationsSampleCap(t *testing.T) {
	llmStub := &stubLLM{
		generateJSON: func(ctx context.Context, in ports.GenerateJSONInput) ([]byte, error) {
			return graderFullJSON(10), nil
		},
	}
	optimizer, _, _, _ := newTestService(llmStub)
	seeder := NewSeedService(optimizer, slog.New(slog.DiscardHandler))

	report, err := seeder.SeedFromConversations(context.Background(), seedConversations(), SeedOptions{
		SampleCount:         1,
		GraderEnsembleCount: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, report.ReplayedTurns)
}

func TestSeedFromConversationsEmptyExport(t *testing.T) {
	optimizer, _, _, _ := newTestService(&stubLLM{})
	seeder := NewSeedService(optimizer, slog.New(slog.DiscardHandler))

	_, err := seeder.SeedFromConversations(context.Background(), nil, SeedOptions{})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}
