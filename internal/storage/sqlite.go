package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/codetrail/coderag/internal/models"
)

// SQLiteStore implements ChunkStore using SQLite. One database file holds one
// repository's chunks.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates a SQLite database at dbPath and initializes
// the schema. Parent directories are created if they do not exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS chunks (
		id TEXT PRIMARY KEY,
		content TEXT NOT NULL,
		file_path TEXT NOT NULL,
		repository TEXT NOT NULL,
		start_line INTEGER NOT NULL,
		end_line INTEGER NOT NULL,
		chunk_type TEXT NOT NULL,
		file_type TEXT NOT NULL,
		language TEXT,
		function_name TEXT,
		class_name TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_chunks_file_path ON chunks(file_path);
	`
	_, err := db.Exec(schema)
	return err
}

const chunkColumns = `id, content, file_path, repository, start_line, end_line,
	chunk_type, file_type, language, function_name, class_name, created_at`

// CreateChunk inserts a single chunk.
func (s *SQLiteStore) CreateChunk(ctx context.Context, chunk *models.Chunk) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chunks (`+chunkColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		chunk.ID, chunk.Content, chunk.FilePath, chunk.Repository,
		chunk.StartLine, chunk.EndLine, chunk.ChunkType, chunk.FileType,
		chunk.Language, chunk.FunctionName, chunk.ClassName, chunk.CreatedAt,
	)
	return err
}

func scanChunk(row interface{ Scan(...any) error }) (*models.Chunk, error) {
	var chunk models.Chunk
	err := row.Scan(&chunk.ID, &chunk.Content, &chunk.FilePath, &chunk.Repository,
		&chunk.StartLine, &chunk.EndLine, &chunk.ChunkType, &chunk.FileType,
		&chunk.Language, &chunk.FunctionName, &chunk.ClassName, &chunk.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &chunk, nil
}

// GetChunk returns a chunk by ID.
func (s *SQLiteStore) GetChunk(ctx context.Context, id string) (*models.Chunk, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+chunkColumns+` FROM chunks WHERE id = ?`, id)
	chunk, err := scanChunk(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("chunk not found: %s", id)
	}
	return chunk, err
}

// GetChunks returns chunks for the given IDs. Missing IDs are silently
// omitted; result order follows the input order.
func (s *SQLiteStore) GetChunks(ctx context.Context, ids []string) ([]*models.Chunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+chunkColumns+` FROM chunks WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byID := make(map[string]*models.Chunk, len(ids))
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		byID[chunk.ID] = chunk
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	chunks := make([]*models.Chunk, 0, len(byID))
	for _, id := range ids {
		if chunk, ok := byID[id]; ok {
			chunks = append(chunks, chunk)
		}
	}
	return chunks, nil
}

// GetChunksByFile returns all chunks for a file ordered by start line.
func (s *SQLiteStore) GetChunksByFile(ctx context.Context, filePath string) ([]*models.Chunk, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+chunkColumns+` FROM chunks WHERE file_path = ? ORDER BY start_line`,
		filePath)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []*models.Chunk
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}

// DeleteChunksByFile removes all chunks for a file.
func (s *SQLiteStore) DeleteChunksByFile(ctx context.Context, filePath string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM chunks WHERE file_path = ?`, filePath)
	return err
}

// BatchCreateChunks inserts multiple chunks in a transaction.
func (s *SQLiteStore) BatchCreateChunks(ctx context.Context, chunks []*models.Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (`+chunkColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		if _, err := stmt.ExecContext(ctx,
			chunk.ID, chunk.Content, chunk.FilePath, chunk.Repository,
			chunk.StartLine, chunk.EndLine, chunk.ChunkType, chunk.FileType,
			chunk.Language, chunk.FunctionName, chunk.ClassName, chunk.CreatedAt,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// CountChunks returns the total number of stored chunks.
func (s *SQLiteStore) CountChunks(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&count)
	return count, err
}

// CountFiles returns the number of distinct files with stored chunks.
func (s *SQLiteStore) CountFiles(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT file_path) FROM chunks`).Scan(&count)
	return count, err
}

// Clear removes every chunk. Used when a repository is fully re-indexed.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM chunks`)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
