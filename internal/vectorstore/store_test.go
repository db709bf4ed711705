package vectorstore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/codetrail/coderag/internal/config"
	"github.com/codetrail/coderag/internal/embedding"
)

func testConfig() config.RAGConfig {
	return config.RAGConfig{
		Enabled:      true,
		ChunkSize:    10,
		ChunkOverlap: 2,
		MaxChunks:    1000,
		MaxFiles:     100,
		TopK:         5,
		Extensions:   []string{".go", ".md", ".txt"},
		ExcludeGlobs: []string{".git/*", "vendor/*"},
	}
}

func newTestStore(t *testing.T, cfg config.RAGConfig) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir(), cfg, embedding.NewMockEmbedder(64), "test-model")
	if err != nil {
		t.Fatalf("NewStore() error: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// writeRepo lays out a small source tree and returns its root.
func writeRepo(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		full := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

var sampleFiles = map[string]string{
	"main.go":       "package main\n\nfunc main() {\n\tprintln(\"hello\")\n}\n",
	"util.go":       "package main\n\nfunc add(a, b int) int {\n\treturn a + b\n}\n",
	"README.md":     "# Sample\n\nA tiny repository used for indexing tests.\n",
	"vendor/dep.go": "package dep\n",
	".git/config":   "[core]\n",
	"image.png":     "\x89PNG not eligible\n",
}

func TestIndexAndSearch(t *testing.T) {
	store := newTestStore(t, testConfig())
	ctx := context.Background()
	root := writeRepo(t, sampleFiles)

	result := store.Index(ctx, root, "sample")
	if !result.Success {
		t.Fatalf("Index() failed: %s", result.Error)
	}
	// vendor/, .git/, and .png files are not eligible
	if result.FilesProcessed != 3 {
		t.Errorf("FilesProcessed = %d, want 3", result.FilesProcessed)
	}
	if result.ChunksIndexed == 0 {
		t.Error("ChunksIndexed = 0")
	}
	if result.RunID == "" {
		t.Error("RunID is empty")
	}
	if !store.IsIndexed("sample") {
		t.Error("IsIndexed() = false after successful index")
	}

	results, err := store.Search(ctx, "hello main function", "sample", 5, -1)
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("Search() returned nothing")
	}
	for i, r := range results {
		if r.Chunk.Repository != "sample" {
			t.Errorf("result %d repository = %q", i, r.Chunk.Repository)
		}
		if r.Rank != i+1 {
			t.Errorf("result %d rank = %d", i, r.Rank)
		}
		if i > 0 && r.Similarity > results[i-1].Similarity {
			t.Errorf("results not sorted descending at %d", i)
		}
	}
}

func TestSearchUnindexedRepository(t *testing.T) {
	store := newTestStore(t, testConfig())
	results, err := store.Search(context.Background(), "anything", "ghost", 5, 0)
	if err != nil {
		t.Fatalf("unindexed search must not error, got %v", err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results for unindexed repository", len(results))
	}
	if store.IsIndexed("ghost") {
		t.Error("IsIndexed(ghost) = true")
	}
}

func TestIndexNoEligibleFiles(t *testing.T) {
	store := newTestStore(t, testConfig())
	root := writeRepo(t, map[string]string{"image.png": "binary"})
	result := store.Index(context.Background(), root, "empty")
	if result.Success {
		t.Error("Index() succeeded with zero eligible files")
	}
	if result.Error == "" {
		t.Error("expected an error message")
	}
}

func TestIndexCeiling(t *testing.T) {
	cfg := testConfig()
	cfg.MaxChunks = 5
	cfg.ChunkSize = 3
	cfg.ChunkOverlap = 0
	store := newTestStore(t, cfg)

	files := make(map[string]string)
	for i := 0; i < 10; i++ {
		files[string(rune('a'+i))+".txt"] = strings.Repeat("some words here\n", 20)
	}
	root := writeRepo(t, files)

	result := store.Index(context.Background(), root, "big")
	if !result.Success {
		t.Fatalf("Index() failed: %s", result.Error)
	}
	if result.ChunksIndexed > 5 {
		t.Errorf("ChunksIndexed = %d, exceeds ceiling of 5", result.ChunksIndexed)
	}
	if store.ChunkCount("big") > 5 {
		t.Errorf("stored %d chunks, exceeds ceiling", store.ChunkCount("big"))
	}
}

func TestRepositoryIsolation(t *testing.T) {
	store := newTestStore(t, testConfig())
	ctx := context.Background()

	// Identical content in both repositories.
	files := map[string]string{"shared.go": "package shared\n\nfunc Shared() int {\n\treturn 1\n}\n"}
	rootA := writeRepo(t, files)
	rootB := writeRepo(t, files)

	if r := store.Index(ctx, rootA, "repo-a"); !r.Success {
		t.Fatalf("index repo-a: %s", r.Error)
	}
	if r := store.Index(ctx, rootB, "repo-b"); !r.Success {
		t.Fatalf("index repo-b: %s", r.Error)
	}

	resultsA, err := store.Search(ctx, "shared function", "repo-a", 10, -1)
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range resultsA {
		if r.Chunk.Repository != "repo-a" {
			t.Errorf("repo-a search leaked chunk from %q", r.Chunk.Repository)
		}
	}
}

func TestIdempotentReindex(t *testing.T) {
	store := newTestStore(t, testConfig())
	ctx := context.Background()
	root := writeRepo(t, sampleFiles)

	first := store.Index(ctx, root, "sample")
	if !first.Success {
		t.Fatalf("first index: %s", first.Error)
	}
	firstResults, _ := store.Search(ctx, "add two numbers", "sample", 5, -1)

	second := store.Index(ctx, root, "sample")
	if !second.Success {
		t.Fatalf("second index: %s", second.Error)
	}
	if second.ChunksIndexed != first.ChunksIndexed {
		t.Errorf("chunk count changed on re-index: %d -> %d", first.ChunksIndexed, second.ChunksIndexed)
	}
	secondResults, _ := store.Search(ctx, "add two numbers", "sample", 5, -1)
	if len(firstResults) != len(secondResults) {
		t.Fatalf("result count changed: %d -> %d", len(firstResults), len(secondResults))
	}
	for i := range firstResults {
		if firstResults[i].Chunk.ID != secondResults[i].Chunk.ID {
			t.Errorf("result %d changed: %s -> %s", i, firstResults[i].Chunk.ID, secondResults[i].Chunk.ID)
		}
		if firstResults[i].Similarity != secondResults[i].Similarity {
			t.Errorf("result %d similarity changed", i)
		}
	}
}

func TestDeleteRepository(t *testing.T) {
	store := newTestStore(t, testConfig())
	ctx := context.Background()
	root := writeRepo(t, sampleFiles)

	if r := store.Index(ctx, root, "doomed"); !r.Success {
		t.Fatalf("index: %s", r.Error)
	}
	if err := store.DeleteRepository(ctx, "doomed"); err != nil {
		t.Fatalf("DeleteRepository() error: %v", err)
	}
	if store.IsIndexed("doomed") {
		t.Error("repository still indexed after delete")
	}
	results, err := store.Search(ctx, "anything", "doomed", 5, 0)
	if err != nil || len(results) != 0 {
		t.Errorf("search after delete: results=%d err=%v", len(results), err)
	}
}

func TestListRepositories(t *testing.T) {
	store := newTestStore(t, testConfig())
	ctx := context.Background()
	root := writeRepo(t, sampleFiles)

	_ = store.Index(ctx, root, "one")
	_ = store.Index(ctx, root, "two")

	metas, err := store.ListRepositories()
	if err != nil {
		t.Fatal(err)
	}
	if len(metas) != 2 {
		t.Fatalf("got %d repositories, want 2", len(metas))
	}
	for _, m := range metas {
		if m.EmbeddingModel != "test-model" {
			t.Errorf("meta model = %q", m.EmbeddingModel)
		}
		if m.Chunks == 0 {
			t.Errorf("meta for %s has zero chunks", m.Repository)
		}
	}
}

func TestModelMismatchInvalidatesIndex(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	root := writeRepo(t, sampleFiles)

	oldStore, err := NewStore(dir, testConfig(), embedding.NewMockEmbedder(64), "old-model")
	if err != nil {
		t.Fatal(err)
	}
	if r := oldStore.Index(ctx, root, "sample"); !r.Success {
		t.Fatalf("index: %s", r.Error)
	}
	oldStore.Close()

	newStore, err := NewStore(dir, testConfig(), embedding.NewMockEmbedder(64), "new-model")
	if err != nil {
		t.Fatal(err)
	}
	defer newStore.Close()
	if newStore.IsIndexed("sample") {
		t.Error("index built with a different model must not count as indexed")
	}
	results, err := newStore.Search(ctx, "anything", "sample", 5, -1)
	if err != nil || len(results) != 0 {
		t.Errorf("search against stale index: results=%d err=%v", len(results), err)
	}
}

func TestSanitizeRepositoryName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"MyRepo", "myrepo"},
		{"org/project", "org_project"},
		{"weird name!?", "weird_name__"},
		{"dots.and-dashes_ok", "dots.and-dashes_ok"},
	}
	for _, tt := range tests {
		if got := SanitizeRepositoryName(tt.in); got != tt.want {
			t.Errorf("SanitizeRepositoryName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
