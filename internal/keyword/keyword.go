// Package keyword provides a Bleve-backed keyword index over chunks, used as
// an optional recall supplement alongside vector similarity search.
package keyword

import "context"

// Result is one keyword hit. Score is Bleve's relevance score, not a cosine
// similarity.
type Result struct {
	ID    string
	Score float64
}

// Index defines keyword search over indexed chunks.
type Index interface {
	Index(ctx context.Context, id string, fields ChunkFields) error
	Search(ctx context.Context, query string, limit int) ([]*Result, error)
	Delete(ctx context.Context, id string) error
	DocCount() (uint64, error)
	Close() error
}

// ChunkFields is the searchable projection of a chunk.
type ChunkFields struct {
	Content      string `json:"content"`
	FilePath     string `json:"file_path"`
	FunctionName string `json:"function_name,omitempty"`
	ClassName    string `json:"class_name,omitempty"`
}
