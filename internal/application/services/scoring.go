package services

import (
	"strings"

	"github.com/issacompass/promptloop/internal/domain/models"
)

const maxMergedEdits = 20

// averageScores returns the componentwise mean of the given score vectors.
// Callers guarantee a non-empty slice (ensemble count is at least 1).
func averageScores(items []models.ScoreVector) models.ScoreVector {
	div := float64(len(items))
	var sum models.ScoreVector
	for _, s := range items {
		sum.Proactiveness += s.Proactiveness
		sum.SalesIntent += s.SalesIntent
		sum.Empathy += s.Empathy
		sum.Clarity += s.Clarity
		sum.Urgency += s.Urgency
		sum.ToneMatch += s.ToneMatch
		sum.LengthMatch += s.LengthMatch
	}
	return models.ScoreVector{
		Proactiveness: sum.Proactiveness / div,
		SalesIntent:   sum.SalesIntent / div,
		Empathy:       sum.Empathy / div,
		Clarity:       sum.Clarity / div,
		Urgency:       sum.Urgency / div,
		ToneMatch:     sum.ToneMatch / div,
		LengthMatch:   sum.LengthMatch / div,
	}
}

func averageDeltas(deltas []float64) float64 {
	var sum float64
	for _, d := range deltas {
		sum += d
	}
	return sum / float64(len(deltas))
}

// graderFeedback is the part of a grader result that gets merged across the
// ensemble.
type graderFeedback struct {
	Diagnosis        string
	RecommendedEdits []string
}

// mergeDiagnoses joins the non-empty trimmed diagnoses with " | ", keeping
// ensemble order.
func mergeDiagnoses(graders []graderFeedback) string {
	parts := make([]string, 0, len(graders))
	for _, g := range graders {
		if d := strings.TrimSpace(g.Diagnosis); d != "" {
			parts = append(parts, d)
		}
	}
	return strings.Join(parts, " | ")
}

// mergeRecommendedEdits deduplicates trimmed edits in first-seen order,
// drops empties, and caps the result at 20 entries.
func mergeRecommendedEdits(graders []graderFeedback) []string {
	seen := make(map[string]struct{})
	merged := make([]string, 0)
	for _, g := range graders {
		for _, edit := range g.RecommendedEdits {
			trimmed := strings.TrimSpace(edit)
			if trimmed == "" {
				continue
			}
			if _, dup := seen[trimmed]; dup {
				continue
			}
			seen[trimmed] = struct{}{}
			merged = append(merged, trimmed)
			if len(merged) == maxMergedEdits {
				return merged
			}
		}
	}
	return merged
}
