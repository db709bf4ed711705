package rerank

import (
	"context"

	"github.com/codetrail/coderag/internal/models"
)

// None returns results unchanged. Baseline for comparing strategies.
type None struct{}

func (n *None) Name() string { return "none" }

func (n *None) Rerank(ctx context.Context, query string, results []*models.SearchResult) ([]*models.SearchResult, error) {
	return results, nil
}
