// Package rerank implements the reranking strategies that turn raw
// similarity-ranked search results into the final context set. All strategies
// share one contract: a pure function of the query and the input results,
// deterministic for fixed parameters.
package rerank

import (
	"context"
	"fmt"
	"sort"

	"github.com/codetrail/coderag/internal/config"
	"github.com/codetrail/coderag/internal/embedding"
	"github.com/codetrail/coderag/internal/models"
)

// Reranker filters and reorders similarity-ranked results.
type Reranker interface {
	Name() string
	Rerank(ctx context.Context, query string, results []*models.SearchResult) ([]*models.SearchResult, error)
}

// New builds the configured strategy. The embedder is only used by the
// contextual strategy; it may be nil for every other one.
func New(cfg config.RerankingConfig, embedder embedding.Embedder) (Reranker, error) {
	switch cfg.Strategy {
	case config.StrategyNone:
		return &None{}, nil
	case config.StrategyThreshold:
		return &Threshold{Threshold: cfg.Threshold}, nil
	case config.StrategyAdaptive:
		return &Adaptive{Ratio: cfg.AdaptiveRatio}, nil
	case config.StrategyScoreGap:
		return &ScoreGap{MaxGap: cfg.MaxScoreGap}, nil
	case config.StrategyMMR:
		return &MMR{Lambda: cfg.MMRLambda, MaxResults: cfg.MMRMaxResults}, nil
	case config.StrategyMultiCriteria:
		return &MultiCriteria{MinSimilarity: cfg.MinSimilarity, MinContentLength: cfg.MinContentLength}, nil
	case config.StrategyContextual:
		if embedder == nil {
			return nil, fmt.Errorf("contextual strategy requires an embedder")
		}
		return &Contextual{
			Embedder:       embedder,
			TopK:           cfg.ContextualTopK,
			TruncateChunks: cfg.TruncateChunks,
			MaxChunkLength: cfg.MaxChunkLength,
		}, nil
	default:
		return nil, fmt.Errorf("unknown reranking strategy: %q", cfg.Strategy)
	}
}

// sortBySimilarity orders results by similarity descending, breaking ties by
// original rank so repeated runs produce identical output. The input slice is
// not modified.
func sortBySimilarity(results []*models.SearchResult) []*models.SearchResult {
	sorted := make([]*models.SearchResult, len(results))
	copy(sorted, results)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Similarity != sorted[j].Similarity {
			return sorted[i].Similarity > sorted[j].Similarity
		}
		return sorted[i].Rank < sorted[j].Rank
	})
	return sorted
}
