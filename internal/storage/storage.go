// Package storage defines the persistence interface for indexed chunks.
package storage

import (
	"context"

	"github.com/codetrail/coderag/internal/models"
)

// ChunkStore defines chunk persistence operations for one repository index.
type ChunkStore interface {
	CreateChunk(ctx context.Context, chunk *models.Chunk) error
	GetChunk(ctx context.Context, id string) (*models.Chunk, error)
	GetChunks(ctx context.Context, ids []string) ([]*models.Chunk, error)
	GetChunksByFile(ctx context.Context, filePath string) ([]*models.Chunk, error)
	DeleteChunksByFile(ctx context.Context, filePath string) error
	BatchCreateChunks(ctx context.Context, chunks []*models.Chunk) error
	CountChunks(ctx context.Context) (int64, error)
	CountFiles(ctx context.Context) (int64, error)
	Clear(ctx context.Context) error
	Close() error
}
