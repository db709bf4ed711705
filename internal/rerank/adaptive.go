package rerank

import (
	"context"

	"github.com/codetrail/coderag/internal/models"
)

// Adaptive keeps results scoring at least Ratio times the best similarity in
// the set, so the cutoff tracks the score distribution instead of a fixed
// value.
type Adaptive struct {
	Ratio float64
}

func (a *Adaptive) Name() string { return "adaptive" }

func (a *Adaptive) Rerank(ctx context.Context, query string, results []*models.SearchResult) ([]*models.SearchResult, error) {
	if len(results) == 0 {
		return results, nil
	}
	best := results[0].Similarity
	for _, r := range results[1:] {
		if r.Similarity > best {
			best = r.Similarity
		}
	}
	cutoff := best * a.Ratio
	kept := make([]*models.SearchResult, 0, len(results))
	for _, r := range results {
		if r.Similarity >= cutoff {
			kept = append(kept, r)
		}
	}
	return kept, nil
}
