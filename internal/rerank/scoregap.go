package rerank

import (
	"context"

	"github.com/codetrail/coderag/internal/models"
)

// ScoreGap walks results in descending similarity order and stops at the
// first drop larger than MaxGap. The top result is always kept.
type ScoreGap struct {
	MaxGap float64
}

func (s *ScoreGap) Name() string { return "score_gap" }

func (s *ScoreGap) Rerank(ctx context.Context, query string, results []*models.SearchResult) ([]*models.SearchResult, error) {
	if len(results) == 0 {
		return results, nil
	}
	sorted := sortBySimilarity(results)
	kept := []*models.SearchResult{sorted[0]}
	for i := 1; i < len(sorted); i++ {
		if sorted[i-1].Similarity-sorted[i].Similarity > s.MaxGap {
			break
		}
		kept = append(kept, sorted[i])
	}
	return kept, nil
}
