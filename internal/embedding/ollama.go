package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// OllamaEmbedder produces embeddings by calling an Ollama-compatible HTTP backend:
// GET {base}/api/tags for availability and model listing, POST {base}/api/embeddings
// for embedding generation. Each request carries its own timeout so one slow call
// cannot stall a whole indexing run.
type OllamaEmbedder struct {
	baseURL string
	model   string
	client  *http.Client

	mu         sync.Mutex
	dimensions int // learned from the first successful embedding
}

const defaultRequestTimeout = 30 * time.Second

// NewOllamaEmbedder creates an embedder for the given backend URL and model name.
// timeout bounds each HTTP request; zero means the 30s default.
func NewOllamaEmbedder(baseURL, model string, timeout time.Duration) *OllamaEmbedder {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &OllamaEmbedder{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// Available probes the backend's model list. It returns nil when the backend is
// reachable and serves the configured model (bare model names also match their
// tagged variants, e.g. "nomic-embed-text" matches "nomic-embed-text:latest").
func (e *OllamaEmbedder) Available(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("build availability request: %w", err)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("embedding backend unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("embedding backend returned %d", resp.StatusCode)
	}
	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return fmt.Errorf("decode model list: %w", err)
	}
	for _, m := range tags.Models {
		if m.Name == e.model || strings.SplitN(m.Name, ":", 2)[0] == e.model {
			return nil
		}
	}
	return fmt.Errorf("model %q not found on embedding backend", e.model)
}

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed returns the embedding vector for text.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embedRequest{Model: e.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("embedding backend returned %d: %s", resp.StatusCode, string(b))
	}
	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode embedding: %w", err)
	}
	if len(out.Embedding) == 0 {
		return nil, fmt.Errorf("embedding backend returned an empty vector")
	}

	e.mu.Lock()
	if e.dimensions == 0 {
		e.dimensions = len(out.Embedding)
	} else if e.dimensions != len(out.Embedding) {
		dim := e.dimensions
		e.mu.Unlock()
		return nil, fmt.Errorf("embedding dimension changed: got %d, expected %d", len(out.Embedding), dim)
	}
	e.mu.Unlock()

	return out.Embedding, nil
}

// EmbedBatch embeds each text in order. The backend has no batch endpoint, so
// this is sequential; callers parallelize across files, not within a batch.
func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := e.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed batch item %d: %w", i, err)
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}

// Dimensions returns the embedding dimension, or 0 before the first embedding.
func (e *OllamaEmbedder) Dimensions() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dimensions
}

// Close is a no-op; the HTTP client holds no resources needing release.
func (e *OllamaEmbedder) Close() error {
	return nil
}
