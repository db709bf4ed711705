// Package embedding provides text embedding via an external HTTP backend, with caching.
package embedding

import "context"

// Embedder produces vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

// AvailabilityChecker is implemented by embedders backed by a remote service
// whose reachability can be probed before use.
type AvailabilityChecker interface {
	Available(ctx context.Context) error
}
