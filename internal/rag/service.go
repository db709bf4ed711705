// Package rag ties the retrieval pipeline together: lazy initialization with
// an availability probe, repository indexing, and query-time retrieval with
// reranking. The service degrades instead of failing; callers always get a
// result object, never a propagated backend error.
package rag

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/codetrail/coderag/internal/config"
	"github.com/codetrail/coderag/internal/embedding"
	"github.com/codetrail/coderag/internal/models"
	"github.com/codetrail/coderag/internal/rerank"
	"github.com/codetrail/coderag/internal/vectorstore"
)

// Service is the RAG engine's entry point.
type Service struct {
	cfg    *config.Config
	logger *zap.Logger

	// Set during Initialize.
	embedder embedding.Embedder
	store    *vectorstore.Store
	reranker rerank.Reranker

	mu          sync.Mutex
	initialized bool
	available   bool
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

// WithEmbedder overrides the embedding backend. Used by tests and by callers
// that construct their own cached embedder.
func WithEmbedder(e embedding.Embedder) ServiceOption {
	return func(s *Service) { s.embedder = e }
}

// NewService creates an uninitialized service. No network access happens
// until Initialize.
func NewService(cfg *config.Config, opts ...ServiceOption) *Service {
	s := &Service{
		cfg:    cfg,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize probes the embedding backend and builds the vector store. It is
// race-safe and idempotent: the first caller does the work, everyone else
// sees the cached outcome. Returns false when RAG is disabled or the backend
// is unreachable; it never returns an error.
func (s *Service) Initialize(ctx context.Context) bool {
	if !s.cfg.RAG.Enabled {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return s.available
	}
	s.initialized = true

	if s.embedder == nil {
		timeout := time.Duration(s.cfg.Embedding.TimeoutSeconds) * time.Second
		inner := embedding.NewOllamaEmbedder(s.cfg.Embedding.BaseURL, s.cfg.Embedding.Model, timeout)
		cached, err := embedding.NewCachedEmbedder(inner, s.cfg.Embedding.CacheSize)
		if err != nil {
			s.logger.Warn("embedding cache construction failed", zap.Error(err))
			return false
		}
		s.embedder = cached
	}

	if checker, ok := s.embedder.(embedding.AvailabilityChecker); ok {
		if err := checker.Available(ctx); err != nil {
			s.logger.Warn("embedding backend unavailable, RAG disabled",
				zap.String("base_url", s.cfg.Embedding.BaseURL),
				zap.Error(err))
			return false
		}
	}

	store, err := vectorstore.NewStore(s.cfg.Storage.RootDir, s.cfg.RAG, s.embedder,
		s.cfg.Embedding.Model, vectorstore.WithLogger(s.logger))
	if err != nil {
		s.logger.Warn("vector store construction failed", zap.Error(err))
		return false
	}
	reranker, err := rerank.New(s.cfg.RAG.Reranking, s.embedder)
	if err != nil {
		s.logger.Warn("reranker construction failed", zap.Error(err))
		_ = store.Close()
		return false
	}

	s.store = store
	s.reranker = reranker
	s.available = true
	s.logger.Info("rag service initialized",
		zap.String("model", s.cfg.Embedding.Model),
		zap.String("reranking", reranker.Name()))
	return true
}

// Available reports whether the service initialized successfully.
func (s *Service) Available() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialized && s.available
}

// IndexRepository indexes a repository, initializing the service first if
// needed. Returns a failure result rather than an error when RAG is
// unavailable.
func (s *Service) IndexRepository(ctx context.Context, path, name string) *models.IndexingResult {
	if !s.Initialize(ctx) {
		return &models.IndexingResult{Error: "RAG is not available"}
	}
	return s.store.Index(ctx, path, name)
}

// IsIndexed reports whether a repository has a usable index.
func (s *Service) IsIndexed(ctx context.Context, name string) bool {
	if !s.Initialize(ctx) {
		return false
	}
	return s.store.IsIndexed(name)
}

// DeleteRepository removes a repository's index.
func (s *Service) DeleteRepository(ctx context.Context, name string) error {
	if !s.Initialize(ctx) {
		return fmt.Errorf("RAG is not available")
	}
	return s.store.DeleteRepository(ctx, name)
}

// ListRepositories returns metadata for every indexed repository.
func (s *Service) ListRepositories(ctx context.Context) ([]vectorstore.Meta, error) {
	if !s.Initialize(ctx) {
		return nil, nil
	}
	return s.store.ListRepositories()
}

// GetRelevantContext retrieves, reranks, and formats context for a query.
// The vector search runs with threshold 0 so the configured reranking
// strategy sees the full candidate set and applies all filtering itself.
// A positive similarityThreshold is applied as a final floor on the
// reranked selection.
// Backend failures degrade to an unavailable context, never an error.
func (s *Service) GetRelevantContext(ctx context.Context, query, repositoryName string, maxChunks int, similarityThreshold float64) *models.RAGContext {
	out := &models.RAGContext{Chunks: []*models.SearchResult{}}
	if !s.Initialize(ctx) {
		return out
	}
	if maxChunks <= 0 {
		maxChunks = s.cfg.RAG.TopK
	}

	candidates, err := s.store.Search(ctx, query, repositoryName, maxChunks, 0)
	if err != nil {
		s.logger.Warn("vector search failed", zap.String("repository", repositoryName), zap.Error(err))
		return out
	}
	out.Available = true
	out.Reranking = models.RerankingInfo{
		Strategy:       s.reranker.Name(),
		CandidateCount: len(candidates),
	}
	if len(candidates) == 0 {
		return out
	}

	selected, err := s.reranker.Rerank(ctx, query, candidates)
	if err != nil {
		s.logger.Warn("reranking failed, using raw similarity order", zap.Error(err))
		selected = candidates
	}
	if similarityThreshold > 0 {
		kept := selected[:0:0]
		for _, r := range selected {
			if r.Similarity >= similarityThreshold {
				kept = append(kept, r)
			}
		}
		selected = kept
	}
	if len(selected) > maxChunks {
		selected = selected[:maxChunks]
	}
	out.Reranking.SelectedCount = len(selected)
	out.Chunks = selected
	out.FormattedContext = FormatContext(selected)
	return out
}

// SemanticSearch is the tool-call surface exposed to the agent. It never
// returns an error; failures surface as status messages.
func (s *Service) SemanticSearch(ctx context.Context, req *models.SemanticSearchRequest) *models.SemanticSearchResponse {
	start := time.Now()
	resp := &models.SemanticSearchResponse{Matches: []*models.SemanticSearchMatch{}}
	defer func() { resp.QueryTimeMs = time.Since(start).Milliseconds() }()

	if err := req.Validate(); err != nil {
		resp.Message = err.Error()
		return resp
	}
	if !s.Initialize(ctx) {
		resp.Message = "RAG is not available: embedding backend unreachable or RAG disabled"
		return resp
	}
	if !s.store.IsIndexed(req.Repository) {
		resp.Message = fmt.Sprintf("repository %q is not indexed", req.Repository)
		return resp
	}

	results, err := s.store.Search(ctx, req.Query, req.Repository, req.Limit, s.cfg.RAG.SimilarityThreshold)
	if err != nil {
		s.logger.Warn("semantic search failed", zap.Error(err))
		resp.Message = "search failed: embedding backend error"
		return resp
	}
	if len(results) == 0 {
		resp.Message = "no relevant context found"
		return resp
	}
	for _, r := range results {
		resp.Matches = append(resp.Matches, &models.SemanticSearchMatch{
			FilePath:     r.Chunk.FilePath,
			Content:      r.Chunk.Content,
			Language:     r.Chunk.Language,
			FunctionName: r.Chunk.FunctionName,
			ClassName:    r.Chunk.ClassName,
			StartLine:    r.Chunk.StartLine,
			EndLine:      r.Chunk.EndLine,
			ChunkType:    r.Chunk.ChunkType,
			Similarity:   r.Similarity,
		})
	}
	resp.Message = fmt.Sprintf("found %d relevant chunks", len(resp.Matches))
	return resp
}

// Close releases the store and embedder.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store != nil {
		_ = s.store.Close()
	}
	if s.embedder != nil {
		_ = s.embedder.Close()
	}
	return nil
}
