package models

// SearchResult is a single similarity hit: a chunk, its cosine similarity to
// the query, and its 1-based rank in the initial similarity ordering. Results
// are produced fresh per query and never persisted.
type SearchResult struct {
	Chunk      *Chunk  `json:"chunk"`
	Similarity float64 `json:"similarity"`
	Rank       int     `json:"rank"`
}

// IndexingResult reports the outcome of indexing one repository.
// Success is false only when no eligible files exist or an unrecoverable
// setup error occurred; per-file failures only reduce the counts.
type IndexingResult struct {
	Success        bool   `json:"success"`
	RunID          string `json:"run_id,omitempty"`
	FilesProcessed int    `json:"files_processed"`
	ChunksIndexed  int    `json:"chunks_indexed"`
	Error          string `json:"error,omitempty"`
	DurationMs     int64  `json:"duration_ms"`
}

// RerankingInfo is diagnostic output describing what the reranking stage did.
type RerankingInfo struct {
	Strategy       string `json:"strategy"`
	CandidateCount int    `json:"candidate_count"`
	SelectedCount  int    `json:"selected_count"`
}

// RAGContext is the final retrieval product handed to a calling agent:
// the selected chunks plus a ready-to-inject markdown rendering of them.
// Available is false when the engine is disabled, uninitialized, or the
// embedding backend failed; callers get an empty context, never an error.
type RAGContext struct {
	Available        bool            `json:"available"`
	Chunks           []*SearchResult `json:"chunks"`
	FormattedContext string          `json:"formatted_context"`
	Reranking        RerankingInfo   `json:"reranking"`
}
