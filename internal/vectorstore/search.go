package vectorstore

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/codetrail/coderag/internal/models"
	"github.com/codetrail/coderag/internal/vector"
)

// Search embeds the query and returns the top-k chunks for one repository by
// cosine similarity, filtered by threshold. An unindexed repository yields an
// empty result, not an error. When keyword recall is enabled, Bleve hits are
// merged into the candidate set before the top-k cut, scored by their stored
// vectors.
func (s *Store) Search(ctx context.Context, query, repositoryName string, topK int, threshold float64) ([]*models.SearchResult, error) {
	repo, ok := s.openRepo(repositoryName)
	if !ok {
		return nil, nil
	}
	if topK <= 0 {
		topK = s.cfg.TopK
	}

	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := repo.vectors.Search(queryVec, topK)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	if repo.keyword != nil {
		hits = s.mergeKeywordHits(ctx, repo, query, queryVec, hits, topK)
	}

	var ids []string
	scores := make(map[string]float64, len(hits))
	for _, hit := range hits {
		if hit.Score < threshold {
			continue
		}
		ids = append(ids, hit.ID)
		scores[hit.ID] = hit.Score
	}
	if len(ids) == 0 {
		return nil, nil
	}

	chunks, err := repo.chunks.GetChunks(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load chunks: %w", err)
	}
	results := make([]*models.SearchResult, 0, len(chunks))
	for i, chunk := range chunks {
		results = append(results, &models.SearchResult{
			Chunk:      chunk,
			Similarity: scores[chunk.ID],
			Rank:       i + 1,
		})
	}
	return results, nil
}

// mergeKeywordHits adds keyword matches missing from the vector hits, scoring
// each by cosine similarity between the query and its stored vector, then
// re-cuts to topK.
func (s *Store) mergeKeywordHits(ctx context.Context, repo *repoIndex, query string,
	queryVec []float32, hits []*vector.Result, topK int) []*vector.Result {

	kwHits, err := repo.keyword.Search(ctx, query, topK)
	if err != nil {
		s.logger.Debug("keyword recall failed", zap.Error(err))
		return hits
	}
	seen := make(map[string]bool, len(hits))
	for _, h := range hits {
		seen[h.ID] = true
	}
	for _, kh := range kwHits {
		if seen[kh.ID] {
			continue
		}
		stored := repo.vectors.Vector(kh.ID)
		if stored == nil {
			continue
		}
		hits = append(hits, &vector.Result{ID: kh.ID, Score: vector.Cosine(queryVec, stored)})
	}
	// Keep descending score order after the merge.
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j].Score > hits[j-1].Score; j-- {
			hits[j], hits[j-1] = hits[j-1], hits[j]
		}
	}
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits
}

// ChunkCount returns the number of indexed chunks for a repository, zero when
// unindexed.
func (s *Store) ChunkCount(repositoryName string) int {
	meta, err := s.readMeta(repositoryName)
	if err != nil {
		return 0
	}
	return meta.Chunks
}
