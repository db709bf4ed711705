package rerank

import (
	"context"
	"strings"

	"github.com/codetrail/coderag/internal/models"
)

// MMR applies Maximal Marginal Relevance: greedily select the most relevant
// result, then repeatedly pick the candidate maximizing
// lambda*relevance - (1-lambda)*maxSimilarityToSelected, where overlap with
// already-selected chunks uses Jaccard similarity over lowercase word sets as
// a cheap diversity proxy.
type MMR struct {
	Lambda     float64
	MaxResults int
}

func (m *MMR) Name() string { return "mmr" }

func (m *MMR) Rerank(ctx context.Context, query string, results []*models.SearchResult) ([]*models.SearchResult, error) {
	if len(results) == 0 {
		return results, nil
	}
	max := m.MaxResults
	if max <= 0 || max > len(results) {
		max = len(results)
	}

	candidates := sortBySimilarity(results)
	wordSets := make([]map[string]bool, len(candidates))
	for i, r := range candidates {
		wordSets[i] = wordSet(r.Chunk.Content)
	}

	selected := make([]*models.SearchResult, 0, max)
	selectedSets := make([]map[string]bool, 0, max)
	used := make([]bool, len(candidates))

	// Highest-similarity result seeds the selection.
	selected = append(selected, candidates[0])
	selectedSets = append(selectedSets, wordSets[0])
	used[0] = true

	for len(selected) < max {
		bestIdx := -1
		bestScore := 0.0
		for i, r := range candidates {
			if used[i] {
				continue
			}
			maxOverlap := 0.0
			for _, sel := range selectedSets {
				if j := jaccard(wordSets[i], sel); j > maxOverlap {
					maxOverlap = j
				}
			}
			score := m.Lambda*r.Similarity - (1-m.Lambda)*maxOverlap
			if bestIdx == -1 || score > bestScore {
				bestIdx = i
				bestScore = score
			}
		}
		if bestIdx == -1 {
			break
		}
		selected = append(selected, candidates[bestIdx])
		selectedSets = append(selectedSets, wordSets[bestIdx])
		used[bestIdx] = true
	}
	return selected, nil
}

func wordSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		set[w] = true
	}
	return set
}

// jaccard returns |a ∩ b| / |a ∪ b| for two word sets.
func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	intersection := 0
	for w := range a {
		if b[w] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
