package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/codetrail/coderag/internal/models"
)

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req models.SemanticSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("search request",
		zap.String("query", req.Query),
		zap.String("repository", req.Repository),
		zap.Int("limit", req.Limit))
	resp := s.rag.SemanticSearch(r.Context(), &req)
	s.respondJSON(w, http.StatusOK, resp)
}

type contextRequest struct {
	Query               string  `json:"query"`
	Repository          string  `json:"repository"`
	MaxChunks           int     `json:"max_chunks,omitempty"`
	SimilarityThreshold float64 `json:"similarity_threshold,omitempty"`
}

func (s *Server) handleContext(w http.ResponseWriter, r *http.Request) {
	var req contextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" || req.Repository == "" {
		s.respondError(w, http.StatusBadRequest, "query and repository are required")
		return
	}
	ragCtx := s.rag.GetRelevantContext(r.Context(), req.Query, req.Repository, req.MaxChunks, req.SimilarityThreshold)
	s.respondJSON(w, http.StatusOK, ragCtx)
}

type indexRequest struct {
	Path string `json:"path"`
	Name string `json:"name"`
}

func (s *Server) handleIndexRepository(w http.ResponseWriter, r *http.Request) {
	var req indexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Path == "" || req.Name == "" {
		s.respondError(w, http.StatusBadRequest, "path and name are required")
		return
	}
	s.logger.Info("index repository request",
		zap.String("path", req.Path),
		zap.String("name", req.Name))
	result := s.rag.IndexRepository(r.Context(), req.Path, req.Name)
	status := http.StatusCreated
	if !result.Success {
		status = http.StatusUnprocessableEntity
	}
	s.respondJSON(w, status, result)
}

func (s *Server) handleListRepositories(w http.ResponseWriter, r *http.Request) {
	metas, err := s.rag.ListRepositories(r.Context())
	if err != nil {
		s.logger.Error("list repositories failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"repositories": metas})
}

func (s *Server) handleDeleteRepository(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	s.logger.Info("delete repository request", zap.String("name", name))
	if err := s.rag.DeleteRepository(r.Context(), name); err != nil {
		s.logger.Error("delete repository failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"name": name, "status": "deleted"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	metas, err := s.rag.ListRepositories(r.Context())
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	totalChunks := 0
	for _, m := range metas {
		totalChunks += m.Chunks
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"available":    s.rag.Available(),
		"repositories": len(metas),
		"chunks":       totalChunks,
		"config": map[string]interface{}{
			"embedding_model":    s.config.Embedding.Model,
			"chunk_size":         s.config.RAG.ChunkSize,
			"chunk_overlap":      s.config.RAG.ChunkOverlap,
			"reranking_strategy": s.config.RAG.Reranking.Strategy,
			"storage_root":       s.config.Storage.RootDir,
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
