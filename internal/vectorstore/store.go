// Package vectorstore persists embedded chunks per repository and answers
// similarity queries. Each repository gets its own directory under the
// storage root, keyed by a sanitized repository name, holding a SQLite chunk
// database, a binary vector snapshot, an optional Bleve keyword index, and a
// meta.json recording the embedding model used.
package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/codetrail/coderag/internal/chunker"
	"github.com/codetrail/coderag/internal/config"
	"github.com/codetrail/coderag/internal/embedding"
	"github.com/codetrail/coderag/internal/keyword"
	"github.com/codetrail/coderag/internal/storage"
	"github.com/codetrail/coderag/internal/vector"
)

const (
	chunksDBFile   = "chunks.db"
	vectorsFile    = "vectors.idx"
	bleveDir       = "bleve"
	metaFile       = "meta.json"
	reposDirName   = "repos"
)

// Meta records per-repository index metadata. All entries in one index were
// embedded with the same model; a model mismatch invalidates the index.
type Meta struct {
	Repository     string    `json:"repository"`
	EmbeddingModel string    `json:"embedding_model"`
	Dimensions     int       `json:"dimensions"`
	Chunks         int       `json:"chunks"`
	Files          int       `json:"files"`
	CreatedAt      time.Time `json:"created_at"`
}

// Store manages per-repository indexes.
type Store struct {
	rootDir  string
	cfg      config.RAGConfig
	embedder embedding.Embedder
	model    string
	chunker  *chunker.Chunker
	logger   *zap.Logger

	mu    sync.Mutex
	repos map[string]*repoIndex // keyed by sanitized name
}

// repoIndex is one repository's open handles.
type repoIndex struct {
	meta    Meta
	chunks  *storage.SQLiteStore
	vectors *vector.Index
	keyword *keyword.BleveIndex // nil when keyword recall is disabled
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets a logger for indexing progress and skipped-file events.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// NewStore creates a store rooted at rootDir. model names the embedding model
// all indexes must be built with.
func NewStore(rootDir string, cfg config.RAGConfig, embedder embedding.Embedder, model string, opts ...Option) (*Store, error) {
	if rootDir == "" {
		return nil, fmt.Errorf("storage root directory is required")
	}
	if err := os.MkdirAll(filepath.Join(rootDir, reposDirName), 0755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	s := &Store{
		rootDir:  rootDir,
		cfg:      cfg,
		embedder: embedder,
		model:    model,
		chunker:  chunker.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap),
		logger:   zap.NewNop(),
		repos:    make(map[string]*repoIndex),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// SanitizeRepositoryName maps a repository name to a filesystem-safe
// directory name: lowercased, with anything outside [a-z0-9._-] replaced
// by underscores.
func SanitizeRepositoryName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

func (s *Store) repoDir(name string) string {
	return filepath.Join(s.rootDir, reposDirName, SanitizeRepositoryName(name))
}

// IsIndexed reports whether the repository has a usable index built with the
// store's embedding model.
func (s *Store) IsIndexed(repositoryName string) bool {
	meta, err := s.readMeta(repositoryName)
	if err != nil {
		return false
	}
	return meta.EmbeddingModel == s.model && meta.Chunks > 0
}

func (s *Store) readMeta(repositoryName string) (Meta, error) {
	var meta Meta
	data, err := os.ReadFile(filepath.Join(s.repoDir(repositoryName), metaFile))
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return meta, fmt.Errorf("parse meta: %w", err)
	}
	return meta, nil
}

func (s *Store) writeMeta(repositoryName string, meta Meta) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.repoDir(repositoryName), metaFile), data, 0644)
}

// openRepo returns the open handles for a repository, loading them from disk
// on first use. Returns nil and false when the repository is not indexed or
// was indexed with a different model.
func (s *Store) openRepo(repositoryName string) (*repoIndex, bool) {
	key := SanitizeRepositoryName(repositoryName)
	s.mu.Lock()
	defer s.mu.Unlock()
	if repo, ok := s.repos[key]; ok {
		return repo, true
	}

	meta, err := s.readMeta(repositoryName)
	if err != nil || meta.EmbeddingModel != s.model || meta.Dimensions <= 0 {
		return nil, false
	}
	dir := s.repoDir(repositoryName)

	chunks, err := storage.NewSQLiteStore(filepath.Join(dir, chunksDBFile))
	if err != nil {
		s.logger.Warn("open chunk database failed", zap.String("repository", repositoryName), zap.Error(err))
		return nil, false
	}
	vectors, err := vector.NewIndex(meta.Dimensions)
	if err != nil {
		_ = chunks.Close()
		return nil, false
	}
	if err := vectors.Load(filepath.Join(dir, vectorsFile)); err != nil {
		s.logger.Warn("load vector snapshot failed", zap.String("repository", repositoryName), zap.Error(err))
		_ = chunks.Close()
		return nil, false
	}

	repo := &repoIndex{meta: meta, chunks: chunks, vectors: vectors}
	if s.cfg.KeywordEnabled {
		kw, err := keyword.NewBleveIndex(filepath.Join(dir, bleveDir))
		if err != nil {
			s.logger.Warn("open keyword index failed", zap.String("repository", repositoryName), zap.Error(err))
		} else {
			repo.keyword = kw
		}
	}
	s.repos[key] = repo
	return repo, true
}

// closeRepoLocked closes and forgets a repository's open handles. Caller
// holds s.mu.
func (s *Store) closeRepoLocked(key string) {
	repo, ok := s.repos[key]
	if !ok {
		return
	}
	_ = repo.chunks.Close()
	if repo.keyword != nil {
		_ = repo.keyword.Close()
	}
	delete(s.repos, key)
}

// DeleteRepository removes a repository's index entirely.
func (s *Store) DeleteRepository(ctx context.Context, repositoryName string) error {
	key := SanitizeRepositoryName(repositoryName)
	s.mu.Lock()
	s.closeRepoLocked(key)
	s.mu.Unlock()
	return os.RemoveAll(s.repoDir(repositoryName))
}

// ListRepositories returns metadata for every indexed repository.
func (s *Store) ListRepositories() ([]Meta, error) {
	entries, err := os.ReadDir(filepath.Join(s.rootDir, reposDirName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var metas []Meta
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.rootDir, reposDirName, e.Name(), metaFile))
		if err != nil {
			continue
		}
		var meta Meta
		if err := json.Unmarshal(data, &meta); err != nil {
			continue
		}
		metas = append(metas, meta)
	}
	return metas, nil
}

// Close closes all open repository handles.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.repos {
		s.closeRepoLocked(key)
	}
	return nil
}
