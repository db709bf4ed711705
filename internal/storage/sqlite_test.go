package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/codetrail/coderag/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "chunks.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore() error: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testChunk(id, filePath string, startLine int) *models.Chunk {
	return &models.Chunk{
		ID:         id,
		Content:    "func main() {}",
		FilePath:   filePath,
		Repository: "repo",
		StartLine:  startLine,
		EndLine:    startLine + 1,
		ChunkType:  models.ChunkTypeFunction,
		FileType:   models.FileTypeCode,
		Language:   "go",
		CreatedAt:  time.Now(),
	}
}

func TestCreateAndGetChunk(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	want := testChunk("c1", "main.go", 1)
	want.FunctionName = "main"
	if err := store.CreateChunk(ctx, want); err != nil {
		t.Fatalf("CreateChunk() error: %v", err)
	}

	got, err := store.GetChunk(ctx, "c1")
	if err != nil {
		t.Fatalf("GetChunk() error: %v", err)
	}
	if got.Content != want.Content || got.FilePath != want.FilePath ||
		got.StartLine != want.StartLine || got.FunctionName != "main" {
		t.Errorf("got %+v, want %+v", got, want)
	}

	if _, err := store.GetChunk(ctx, "missing"); err == nil {
		t.Error("expected error for missing chunk")
	}
}

func TestBatchCreateAndGetChunks(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	chunks := []*models.Chunk{
		testChunk("a", "a.go", 1),
		testChunk("b", "a.go", 10),
		testChunk("c", "b.go", 1),
	}
	if err := store.BatchCreateChunks(ctx, chunks); err != nil {
		t.Fatalf("BatchCreateChunks() error: %v", err)
	}

	got, err := store.GetChunks(ctx, []string{"c", "a", "missing"})
	if err != nil {
		t.Fatalf("GetChunks() error: %v", err)
	}
	if len(got) != 2 || got[0].ID != "c" || got[1].ID != "a" {
		t.Errorf("GetChunks() returned wrong set/order: %v", got)
	}

	byFile, err := store.GetChunksByFile(ctx, "a.go")
	if err != nil {
		t.Fatal(err)
	}
	if len(byFile) != 2 || byFile[0].StartLine != 1 || byFile[1].StartLine != 10 {
		t.Errorf("GetChunksByFile() = %v", byFile)
	}
}

func TestCountsAndClear(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_ = store.BatchCreateChunks(ctx, []*models.Chunk{
		testChunk("a", "a.go", 1),
		testChunk("b", "a.go", 10),
		testChunk("c", "b.go", 1),
	})

	if n, _ := store.CountChunks(ctx); n != 3 {
		t.Errorf("CountChunks() = %d, want 3", n)
	}
	if n, _ := store.CountFiles(ctx); n != 2 {
		t.Errorf("CountFiles() = %d, want 2", n)
	}

	if err := store.DeleteChunksByFile(ctx, "a.go"); err != nil {
		t.Fatal(err)
	}
	if n, _ := store.CountChunks(ctx); n != 1 {
		t.Errorf("CountChunks() after delete = %d, want 1", n)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	if n, _ := store.CountChunks(ctx); n != 0 {
		t.Errorf("CountChunks() after clear = %d, want 0", n)
	}
}
