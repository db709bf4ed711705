package rerank

import (
	"context"
	"errors"
	"testing"

	"github.com/codetrail/coderag/internal/config"
	"github.com/codetrail/coderag/internal/embedding"
	"github.com/codetrail/coderag/internal/models"
)

func makeResults(sims ...float64) []*models.SearchResult {
	results := make([]*models.SearchResult, len(sims))
	for i, sim := range sims {
		results[i] = &models.SearchResult{
			Chunk: &models.Chunk{
				ID:      string(rune('a' + i)),
				Content: "some content long enough to pass length filters in these tests",
			},
			Similarity: sim,
			Rank:       i + 1,
		}
	}
	return results
}

func ids(results []*models.SearchResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Chunk.ID
	}
	return out
}

func TestNonePassesThrough(t *testing.T) {
	in := makeResults(0.9, 0.5, 0.1)
	out, err := (&None{}).Rerank(context.Background(), "q", in)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 3 {
		t.Errorf("got %d results, want 3", len(out))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("result %d changed", i)
		}
	}
}

func TestThresholdFilter(t *testing.T) {
	in := makeResults(0.9, 0.5, 0.31, 0.1)
	out, _ := (&Threshold{Threshold: 0.3}).Rerank(context.Background(), "q", in)
	if len(out) != 3 {
		t.Errorf("got %d results, want 3", len(out))
	}
}

// Raising the threshold must never grow the result set.
func TestThresholdMonotonic(t *testing.T) {
	in := makeResults(0.95, 0.8, 0.61, 0.6, 0.42, 0.3, 0.15)
	prev := len(in) + 1
	for _, th := range []float64{0.0, 0.2, 0.4, 0.6, 0.8, 1.0} {
		out, _ := (&Threshold{Threshold: th}).Rerank(context.Background(), "q", in)
		if len(out) > prev {
			t.Errorf("threshold %.1f kept %d results, more than %d at a lower threshold", th, len(out), prev)
		}
		prev = len(out)
	}
}

func TestAdaptiveBoundary(t *testing.T) {
	in := makeResults(0.9, 0.75, 0.5)
	out, _ := (&Adaptive{Ratio: 0.8}).Rerank(context.Background(), "q", in)
	// cutoff = 0.9*0.8 = 0.72, keeps 0.9 and 0.75
	if len(out) != 2 {
		t.Fatalf("got %d results, want 2 (%v)", len(out), ids(out))
	}
	if out[0].Similarity != 0.9 || out[1].Similarity != 0.75 {
		t.Errorf("kept %v", ids(out))
	}
}

func TestAdaptiveEmpty(t *testing.T) {
	out, err := (&Adaptive{Ratio: 0.8}).Rerank(context.Background(), "q", nil)
	if err != nil || len(out) != 0 {
		t.Errorf("empty input: out=%v err=%v", out, err)
	}
}

func TestScoreGapBoundary(t *testing.T) {
	in := makeResults(0.9, 0.8, 0.5)
	out, _ := (&ScoreGap{MaxGap: 0.15}).Rerank(context.Background(), "q", in)
	// 0.9->0.8 gap 0.1 ok; 0.8->0.5 gap 0.3 stops the walk
	if len(out) != 2 {
		t.Fatalf("got %d results, want 2 (%v)", len(out), ids(out))
	}
	if out[0].Similarity != 0.9 || out[1].Similarity != 0.8 {
		t.Errorf("kept %v", ids(out))
	}
}

func TestScoreGapAlwaysKeepsTop(t *testing.T) {
	in := makeResults(0.9, 0.1)
	out, _ := (&ScoreGap{MaxGap: 0.05}).Rerank(context.Background(), "q", in)
	if len(out) != 1 || out[0].Similarity != 0.9 {
		t.Errorf("got %v, want just the top result", ids(out))
	}
}

func TestMMRPrefersDistinctContent(t *testing.T) {
	dup := "the quick brown fox jumps over the lazy dog near the river bank"
	in := []*models.SearchResult{
		{Chunk: &models.Chunk{ID: "dup1", Content: dup}, Similarity: 0.92, Rank: 1},
		{Chunk: &models.Chunk{ID: "dup2", Content: dup + " again"}, Similarity: 0.90, Rank: 2},
		{Chunk: &models.Chunk{ID: "distinct", Content: "entirely different words about database connection pooling"}, Similarity: 0.70, Rank: 3},
	}

	out, _ := (&MMR{Lambda: 0.5, MaxResults: 2}).Rerank(context.Background(), "q", in)
	if len(out) != 2 {
		t.Fatalf("got %d results, want 2", len(out))
	}
	if out[0].Chunk.ID != "dup1" {
		t.Errorf("first pick = %s, want dup1", out[0].Chunk.ID)
	}
	if out[1].Chunk.ID != "distinct" {
		t.Errorf("second pick = %s, want distinct over the near-duplicate", out[1].Chunk.ID)
	}

	// THRESHOLD keeps both duplicates for contrast.
	th, _ := (&Threshold{Threshold: 0.5}).Rerank(context.Background(), "q", in)
	if len(th) != 3 {
		t.Errorf("threshold kept %d, want all 3", len(th))
	}
}

func TestMultiCriteriaBoosts(t *testing.T) {
	long := "content long enough to pass the minimum content length filter applied here"
	in := []*models.SearchResult{
		{Chunk: &models.Chunk{ID: "plain", Content: long, ChunkType: models.ChunkTypeParagraph}, Similarity: 0.80, Rank: 1},
		{Chunk: &models.Chunk{ID: "fn", Content: long, ChunkType: models.ChunkTypeFunction, FunctionName: "Parse"}, Similarity: 0.70, Rank: 2},
		{Chunk: &models.Chunk{ID: "short", Content: "tiny", ChunkType: models.ChunkTypeFunction}, Similarity: 0.95, Rank: 3},
		{Chunk: &models.Chunk{ID: "low", Content: long, ChunkType: models.ChunkTypeParagraph}, Similarity: 0.1, Rank: 4},
	}
	out, _ := (&MultiCriteria{MinSimilarity: 0.3, MinContentLength: 50}).Rerank(context.Background(), "q", in)
	if len(out) != 2 {
		t.Fatalf("got %v, want [fn plain]", ids(out))
	}
	// fn: 0.70*1.2*1.1 = 0.924 beats plain 0.80
	if out[0].Chunk.ID != "fn" || out[1].Chunk.ID != "plain" {
		t.Errorf("order = %v, want [fn plain]", ids(out))
	}
}

func TestContextualTopK(t *testing.T) {
	emb := embedding.NewMockEmbedder(32)
	c := &Contextual{Embedder: emb, TopK: 2}
	in := makeResults(0.9, 0.8, 0.7, 0.6)
	out, err := c.Rerank(context.Background(), "query", in)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 {
		t.Errorf("got %d results, want 2", len(out))
	}
}

type failingEmbedder struct{}

func (failingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, errors.New("backend down")
}
func (f failingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, errors.New("backend down")
}
func (failingEmbedder) Dimensions() int { return 0 }
func (failingEmbedder) Close() error    { return nil }

func TestContextualFallsBackOnError(t *testing.T) {
	c := &Contextual{Embedder: failingEmbedder{}, TopK: 2}
	in := makeResults(0.9, 0.8, 0.7)
	out, err := c.Rerank(context.Background(), "query", in)
	if err != nil {
		t.Fatalf("contextual must not propagate backend errors, got %v", err)
	}
	if len(out) != 3 {
		t.Errorf("fallback should return input unchanged, got %d results", len(out))
	}
}

func TestDeterministicAcrossRuns(t *testing.T) {
	in := makeResults(0.9, 0.9, 0.9, 0.5)
	for _, r := range []Reranker{
		&Threshold{Threshold: 0.3},
		&Adaptive{Ratio: 0.8},
		&ScoreGap{MaxGap: 0.15},
		&MMR{Lambda: 0.7, MaxResults: 3},
		&MultiCriteria{MinSimilarity: 0.3, MinContentLength: 10},
	} {
		first, _ := r.Rerank(context.Background(), "q", in)
		second, _ := r.Rerank(context.Background(), "q", in)
		if len(first) != len(second) {
			t.Fatalf("%s: result count varies between runs", r.Name())
		}
		for i := range first {
			if first[i].Chunk.ID != second[i].Chunk.ID {
				t.Errorf("%s: order varies between runs at %d", r.Name(), i)
			}
		}
	}
}

func TestFactory(t *testing.T) {
	cfg := config.RerankingConfig{}
	cfg.ApplyDefaults()

	for _, name := range []string{
		config.StrategyNone, config.StrategyThreshold, config.StrategyAdaptive,
		config.StrategyScoreGap, config.StrategyMMR, config.StrategyMultiCriteria,
	} {
		cfg.Strategy = name
		r, err := New(cfg, nil)
		if err != nil {
			t.Errorf("New(%s) error: %v", name, err)
			continue
		}
		if r.Name() != name {
			t.Errorf("New(%s).Name() = %s", name, r.Name())
		}
	}

	cfg.Strategy = config.StrategyContextual
	if _, err := New(cfg, nil); err == nil {
		t.Error("contextual without embedder should fail")
	}
	if _, err := New(cfg, embedding.NewMockEmbedder(8)); err != nil {
		t.Errorf("contextual with embedder: %v", err)
	}

	cfg.Strategy = "bogus"
	if _, err := New(cfg, nil); err == nil {
		t.Error("unknown strategy should fail")
	}
}
