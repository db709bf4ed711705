// Package integration provides end-to-end tests covering the full
// index → search → context lifecycle against real on-disk indices.
package integration

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/codetrail/coderag/internal/config"
	"github.com/codetrail/coderag/internal/embedding"
	"github.com/codetrail/coderag/internal/models"
	"github.com/codetrail/coderag/internal/rag"
)

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

func TestIntegration_Pipeline(t *testing.T) {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Storage.RootDir = t.TempDir()
	cfg.RAG.Enabled = true
	cfg.RAG.ChunkSize = 10
	cfg.RAG.KeywordEnabled = true
	cfg.RAG.SimilarityThreshold = -1 // mock embeddings are not semantically meaningful
	cfg.RAG.Reranking.Strategy = config.StrategyThreshold
	cfg.RAG.Reranking.Threshold = -1

	service := rag.NewService(cfg, rag.WithEmbedder(embedding.NewMockEmbedder(64)))
	defer service.Close()
	ctx := context.Background()

	root := writeRepo(t, map[string]string{
		"auth/login.go": "package auth\n\nfunc Login(user, pass string) error {\n\treturn validate(user, pass)\n}\n",
		"auth/token.go": "package auth\n\nfunc IssueToken(user string) string {\n\treturn sign(user)\n}\n",
		"README.md":     "# sample\n\nAuthentication service.\n",
	})

	result := service.IndexRepository(ctx, root, "sample")
	if !result.Success {
		t.Fatalf("indexing failed: %s", result.Error)
	}
	if result.FilesProcessed != 3 {
		t.Errorf("FilesProcessed = %d, want 3", result.FilesProcessed)
	}
	if !service.IsIndexed(ctx, "sample") {
		t.Error("IsIndexed() = false after successful index")
	}

	resp := service.SemanticSearch(ctx, &models.SemanticSearchRequest{
		Query: "login validation", Repository: "sample", Limit: 5,
	})
	if len(resp.Matches) == 0 {
		t.Fatalf("no matches: %s", resp.Message)
	}

	ragCtx := service.GetRelevantContext(ctx, "token signing", "sample", 3, -1)
	if !ragCtx.Available {
		t.Fatal("context not available for indexed repository")
	}
	if len(ragCtx.Chunks) == 0 {
		t.Fatal("context has no chunks")
	}
	if !strings.Contains(ragCtx.FormattedContext, "## Relevant code context") {
		t.Errorf("formatted context missing header:\n%s", ragCtx.FormattedContext)
	}
	if ragCtx.Reranking.Strategy != config.StrategyThreshold {
		t.Errorf("Reranking.Strategy = %q, want %q", ragCtx.Reranking.Strategy, config.StrategyThreshold)
	}

	// Re-index picks up file changes and stays consistent.
	if err := os.WriteFile(filepath.Join(root, "auth", "logout.go"),
		[]byte("package auth\n\nfunc Logout(user string) {\n\trevoke(user)\n}\n"), 0644); err != nil {
		t.Fatal(err)
	}
	again := service.IndexRepository(ctx, root, "sample")
	if !again.Success {
		t.Fatalf("re-indexing failed: %s", again.Error)
	}
	if again.FilesProcessed != 4 {
		t.Errorf("FilesProcessed after re-index = %d, want 4", again.FilesProcessed)
	}

	if err := service.DeleteRepository(ctx, "sample"); err != nil {
		t.Fatalf("DeleteRepository failed: %v", err)
	}
	if service.IsIndexed(ctx, "sample") {
		t.Error("IsIndexed() = true after delete")
	}
}
