package rerank

import (
	"context"
	"sort"

	"github.com/codetrail/coderag/internal/models"
)

// MultiCriteria filters by minimum similarity and content length, then orders
// by a composite score that boosts function chunks and chunks carrying
// function or class metadata.
type MultiCriteria struct {
	MinSimilarity    float64
	MinContentLength int
}

func (m *MultiCriteria) Name() string { return "multi_criteria" }

func (m *MultiCriteria) Rerank(ctx context.Context, query string, results []*models.SearchResult) ([]*models.SearchResult, error) {
	type scored struct {
		result *models.SearchResult
		score  float64
	}
	kept := make([]scored, 0, len(results))
	for _, r := range results {
		if r.Similarity < m.MinSimilarity || len(r.Chunk.Content) < m.MinContentLength {
			continue
		}
		score := r.Similarity
		if r.Chunk.ChunkType == models.ChunkTypeFunction {
			score *= 1.2
		}
		if r.Chunk.FunctionName != "" || r.Chunk.ClassName != "" {
			score *= 1.1
		}
		kept = append(kept, scored{result: r, score: score})
	}
	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].score != kept[j].score {
			return kept[i].score > kept[j].score
		}
		return kept[i].result.Rank < kept[j].result.Rank
	})
	out := make([]*models.SearchResult, len(kept))
	for i, s := range kept {
		out[i] = s.result
	}
	return out, nil
}
