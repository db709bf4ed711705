package rerank

import (
	"context"
	"sort"

	"github.com/codetrail/coderag/internal/embedding"
	"github.com/codetrail/coderag/internal/models"
	"github.com/codetrail/coderag/internal/vector"
)

// Contextual re-embeds the query together with each candidate's content to
// get a context-aware similarity, then keeps the top K by the refined score.
// Any backend failure falls back to the input results unchanged; this
// strategy must never make retrieval worse than plain vector search.
type Contextual struct {
	Embedder       embedding.Embedder
	TopK           int
	TruncateChunks bool
	MaxChunkLength int
}

func (c *Contextual) Name() string { return "contextual" }

func (c *Contextual) Rerank(ctx context.Context, query string, results []*models.SearchResult) ([]*models.SearchResult, error) {
	if len(results) == 0 {
		return results, nil
	}
	queryVec, err := c.Embedder.Embed(ctx, query)
	if err != nil {
		return results, nil
	}

	type scored struct {
		result *models.SearchResult
		score  float64
	}
	rescored := make([]scored, 0, len(results))
	for _, r := range results {
		content := r.Chunk.Content
		if c.TruncateChunks && c.MaxChunkLength > 0 && len(content) > c.MaxChunkLength {
			content = content[:c.MaxChunkLength]
		}
		vec, err := c.Embedder.Embed(ctx, query+"\n\n"+content)
		if err != nil {
			return results, nil
		}
		rescored = append(rescored, scored{result: r, score: vector.Cosine(queryVec, vec)})
	}

	sort.SliceStable(rescored, func(i, j int) bool {
		if rescored[i].score != rescored[j].score {
			return rescored[i].score > rescored[j].score
		}
		return rescored[i].result.Rank < rescored[j].result.Rank
	})

	k := c.TopK
	if k <= 0 || k > len(rescored) {
		k = len(rescored)
	}
	out := make([]*models.SearchResult, k)
	for i := 0; i < k; i++ {
		out[i] = rescored[i].result
	}
	return out, nil
}
