package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/codetrail/coderag/internal/models"
	"github.com/codetrail/coderag/internal/vectorstore"
)

func sampleResponse() *models.SemanticSearchResponse {
	return &models.SemanticSearchResponse{
		Matches: []*models.SemanticSearchMatch{
			{
				FilePath:     "internal/auth/login.go",
				Content:      "func Login(user string) error { return nil }",
				Language:     "go",
				FunctionName: "Login",
				StartLine:    10,
				EndLine:      14,
				ChunkType:    models.ChunkTypeFunction,
				Similarity:   0.91,
			},
		},
		Message:     "found 1 relevant code chunks",
		QueryTimeMs: 12,
	}
}

func TestWriteSearchResponseText(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSearchResponse(&buf, sampleResponse(), OutputText); err != nil {
		t.Fatalf("WriteSearchResponse failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"found 1 relevant code chunks", "internal/auth/login.go", "lines 10-14", "Function: Login", "0.9100"} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteSearchResponseJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSearchResponse(&buf, sampleResponse(), OutputJSON); err != nil {
		t.Fatalf("WriteSearchResponse failed: %v", err)
	}
	var decoded models.SemanticSearchResponse
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(decoded.Matches) != 1 || decoded.Matches[0].FilePath != "internal/auth/login.go" {
		t.Errorf("unexpected decoded response: %+v", decoded)
	}
}

func TestWriteIndexingResult(t *testing.T) {
	var buf bytes.Buffer
	ok := &models.IndexingResult{Success: true, RunID: "run-1", FilesProcessed: 3, ChunksIndexed: 12, DurationMs: 250}
	if err := WriteIndexingResult(&buf, ok, OutputText); err != nil {
		t.Fatalf("WriteIndexingResult failed: %v", err)
	}
	if !strings.Contains(buf.String(), "Indexed 12 chunks from 3 files") {
		t.Errorf("unexpected output: %s", buf.String())
	}

	buf.Reset()
	failed := &models.IndexingResult{Success: false, Error: "no eligible files found"}
	if err := WriteIndexingResult(&buf, failed, OutputText); err != nil {
		t.Fatalf("WriteIndexingResult failed: %v", err)
	}
	if !strings.Contains(buf.String(), "Indexing failed: no eligible files found") {
		t.Errorf("unexpected output: %s", buf.String())
	}
}

func TestWriteContext(t *testing.T) {
	var buf bytes.Buffer
	rc := &models.RAGContext{
		Available:        true,
		FormattedContext: "## Relevant code context\n\n### main.go (similarity: 0.90)",
		Reranking:        models.RerankingInfo{Strategy: "threshold", CandidateCount: 5, SelectedCount: 2},
	}
	if err := WriteContext(&buf, rc, OutputText); err != nil {
		t.Fatalf("WriteContext failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Strategy: threshold (5 candidates, 2 selected)") {
		t.Errorf("missing reranking summary: %s", out)
	}
	if !strings.Contains(out, "## Relevant code context") {
		t.Errorf("missing formatted context: %s", out)
	}

	buf.Reset()
	if err := WriteContext(&buf, &models.RAGContext{}, OutputText); err != nil {
		t.Fatalf("WriteContext failed: %v", err)
	}
	if !strings.Contains(buf.String(), "No context available.") {
		t.Errorf("unexpected output for unavailable context: %s", buf.String())
	}
}

func TestWriteRepositories(t *testing.T) {
	var buf bytes.Buffer
	repos := []vectorstore.Meta{
		{Repository: "myrepo", EmbeddingModel: "nomic-embed-text", Chunks: 42, Files: 7, CreatedAt: time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)},
	}
	if err := WriteRepositories(&buf, repos, OutputText); err != nil {
		t.Fatalf("WriteRepositories failed: %v", err)
	}
	if !strings.Contains(buf.String(), "myrepo: 42 chunks from 7 files") {
		t.Errorf("unexpected output: %s", buf.String())
	}

	buf.Reset()
	if err := WriteRepositories(&buf, nil, OutputText); err != nil {
		t.Fatalf("WriteRepositories failed: %v", err)
	}
	if !strings.Contains(buf.String(), "No repositories indexed.") {
		t.Errorf("unexpected output for empty list: %s", buf.String())
	}
}
