package rerank

import (
	"context"

	"github.com/codetrail/coderag/internal/models"
)

// Threshold keeps results whose similarity meets a fixed cutoff.
type Threshold struct {
	Threshold float64
}

func (t *Threshold) Name() string { return "threshold" }

func (t *Threshold) Rerank(ctx context.Context, query string, results []*models.SearchResult) ([]*models.SearchResult, error) {
	kept := make([]*models.SearchResult, 0, len(results))
	for _, r := range results {
		if r.Similarity >= t.Threshold {
			kept = append(kept, r)
		}
	}
	return kept, nil
}
