package vectorstore

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/codetrail/coderag/internal/keyword"
	"github.com/codetrail/coderag/internal/models"
	"github.com/codetrail/coderag/internal/storage"
	"github.com/codetrail/coderag/internal/vector"
)

// Index builds (or fully rebuilds) the index for one repository. Per-file
// failures are logged and skipped; the run fails only when no eligible files
// exist or the index cannot be set up at all. Indexing stops once MaxChunks
// chunks have been stored or MaxFiles files processed.
func (s *Store) Index(ctx context.Context, repositoryPath, repositoryName string) *models.IndexingResult {
	start := time.Now()
	result := &models.IndexingResult{RunID: uuid.New().String()}

	files, err := s.eligibleFiles(repositoryPath)
	if err != nil {
		result.Error = fmt.Sprintf("walk repository: %v", err)
		result.DurationMs = time.Since(start).Milliseconds()
		return result
	}
	if len(files) == 0 {
		result.Error = "no eligible files found"
		result.DurationMs = time.Since(start).Milliseconds()
		return result
	}
	if s.cfg.MaxFiles > 0 && len(files) > s.cfg.MaxFiles {
		files = files[:s.cfg.MaxFiles]
	}

	// Full replace: drop any previous index for this repository.
	if err := s.DeleteRepository(ctx, repositoryName); err != nil {
		result.Error = fmt.Sprintf("clear previous index: %v", err)
		result.DurationMs = time.Since(start).Milliseconds()
		return result
	}
	dir := s.repoDir(repositoryName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		result.Error = fmt.Sprintf("create index dir: %v", err)
		result.DurationMs = time.Since(start).Milliseconds()
		return result
	}

	chunkStore, err := storage.NewSQLiteStore(filepath.Join(dir, chunksDBFile))
	if err != nil {
		result.Error = fmt.Sprintf("open chunk database: %v", err)
		result.DurationMs = time.Since(start).Milliseconds()
		return result
	}
	defer chunkStore.Close()

	var kw *keyword.BleveIndex
	if s.cfg.KeywordEnabled {
		kw, err = keyword.NewBleveIndex(filepath.Join(dir, bleveDir))
		if err != nil {
			s.logger.Warn("keyword index unavailable for this run", zap.Error(err))
		} else {
			defer kw.Close()
		}
	}

	var vectors *vector.Index
	var totalChunks atomic.Int64

	for _, file := range files {
		if s.cfg.MaxChunks > 0 && totalChunks.Load() >= int64(s.cfg.MaxChunks) {
			s.logger.Info("chunk ceiling reached, stopping indexing",
				zap.String("repository", repositoryName),
				zap.Int("max_chunks", s.cfg.MaxChunks))
			break
		}
		n, err := s.indexFile(ctx, repositoryPath, repositoryName, file, chunkStore, kw, &vectors, &totalChunks)
		if err != nil {
			s.logger.Warn("skipping file",
				zap.String("file", file),
				zap.Error(err))
			continue
		}
		if n > 0 {
			result.FilesProcessed++
			result.ChunksIndexed += n
		}
	}

	if result.ChunksIndexed == 0 {
		result.Error = "no chunks could be indexed"
		result.DurationMs = time.Since(start).Milliseconds()
		return result
	}

	if err := vectors.Save(filepath.Join(dir, vectorsFile)); err != nil {
		result.Error = fmt.Sprintf("save vector snapshot: %v", err)
		result.DurationMs = time.Since(start).Milliseconds()
		return result
	}
	meta := Meta{
		Repository:     repositoryName,
		EmbeddingModel: s.model,
		Dimensions:     vectors.Dimensions(),
		Chunks:         result.ChunksIndexed,
		Files:          result.FilesProcessed,
		CreatedAt:      time.Now(),
	}
	if err := s.writeMeta(repositoryName, meta); err != nil {
		result.Error = fmt.Sprintf("write meta: %v", err)
		result.DurationMs = time.Since(start).Milliseconds()
		return result
	}

	result.Success = true
	result.DurationMs = time.Since(start).Milliseconds()
	s.logger.Info("repository indexed",
		zap.String("repository", repositoryName),
		zap.Int("files", result.FilesProcessed),
		zap.Int("chunks", result.ChunksIndexed),
		zap.Int64("duration_ms", result.DurationMs))
	return result
}

// indexFile chunks, embeds, and stores one file, reserving chunk budget
// against the shared ceiling before embedding. Returns the number of chunks
// stored.
func (s *Store) indexFile(ctx context.Context, repositoryPath, repositoryName, relPath string,
	chunkStore *storage.SQLiteStore, kw *keyword.BleveIndex, vectors **vector.Index, totalChunks *atomic.Int64) (int, error) {

	content, err := os.ReadFile(filepath.Join(repositoryPath, relPath))
	if err != nil {
		return 0, fmt.Errorf("read file: %w", err)
	}
	chunks := s.chunker.ChunkFile(repositoryName, relPath, string(content))
	if len(chunks) == 0 {
		return 0, nil
	}

	// Reserve budget with an atomic increment-and-check so concurrent
	// embed-and-store work cannot overshoot the ceiling.
	if s.cfg.MaxChunks > 0 {
		reserved := totalChunks.Add(int64(len(chunks)))
		if over := reserved - int64(s.cfg.MaxChunks); over > 0 {
			keep := int64(len(chunks)) - over
			if keep <= 0 {
				totalChunks.Add(-int64(len(chunks)))
				return 0, nil
			}
			totalChunks.Add(keep - int64(len(chunks)))
			chunks = chunks[:keep]
		}
	}

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Content
	}
	embeddings, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		if s.cfg.MaxChunks > 0 {
			totalChunks.Add(-int64(len(chunks)))
		}
		return 0, fmt.Errorf("embed chunks: %w", err)
	}

	if *vectors == nil {
		idx, err := vector.NewIndex(len(embeddings[0]))
		if err != nil {
			return 0, err
		}
		*vectors = idx
	}

	if err := chunkStore.BatchCreateChunks(ctx, chunks); err != nil {
		if s.cfg.MaxChunks > 0 {
			totalChunks.Add(-int64(len(chunks)))
		}
		return 0, fmt.Errorf("store chunks: %w", err)
	}
	ids := make([]string, len(chunks))
	for i, ch := range chunks {
		ids[i] = ch.ID
	}
	if err := (*vectors).Add(ids, embeddings); err != nil {
		return 0, fmt.Errorf("index vectors: %w", err)
	}
	if kw != nil {
		for _, ch := range chunks {
			fields := keyword.ChunkFields{
				Content:      ch.Content,
				FilePath:     ch.FilePath,
				FunctionName: ch.FunctionName,
				ClassName:    ch.ClassName,
			}
			if err := kw.Index(ctx, ch.ID, fields); err != nil {
				s.logger.Warn("keyword indexing failed for chunk", zap.String("id", ch.ID), zap.Error(err))
			}
		}
	}
	return len(chunks), nil
}

// eligibleFiles walks repositoryPath and returns relative paths of regular
// files passing the extension allow-list and exclude-glob filters, in walk
// order.
func (s *Store) eligibleFiles(repositoryPath string) ([]string, error) {
	absRoot, err := filepath.Abs(repositoryPath)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", absRoot)
	}

	var files []string
	err = filepath.WalkDir(absRoot, func(p string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(absRoot, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}
		if d.IsDir() {
			if s.excluded(rel + "/") {
				return filepath.SkipDir
			}
			return nil
		}
		if s.excluded(rel) {
			return nil
		}
		if !s.extensionAllowed(p) {
			return nil
		}
		finfo, statErr := os.Stat(p)
		if statErr != nil || !finfo.Mode().IsRegular() {
			return nil
		}
		files = append(files, rel)
		return nil
	})
	return files, err
}

func (s *Store) extensionAllowed(p string) bool {
	if len(s.cfg.Extensions) == 0 {
		return true
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(p), "."))
	for _, a := range s.cfg.Extensions {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == ext {
			return true
		}
	}
	return false
}

// excluded matches the exclude globs against the slash-relative path and
// against each path element, so ".git/*" prunes the directory anywhere in
// the tree.
func (s *Store) excluded(rel string) bool {
	rel = strings.TrimSuffix(rel, "/")
	for _, glob := range s.cfg.ExcludeGlobs {
		if matched, _ := path.Match(glob, rel); matched {
			return true
		}
		base := strings.TrimSuffix(glob, "/*")
		for _, elem := range strings.Split(rel, "/") {
			if matched, _ := path.Match(base, elem); matched {
				return true
			}
		}
	}
	return false
}
