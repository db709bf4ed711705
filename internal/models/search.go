package models

import "fmt"

// SemanticSearchRequest is the tool-call surface exposed to the agent:
// a natural-language query plus a result-count hint.
type SemanticSearchRequest struct {
	Query      string `json:"query"`
	Repository string `json:"repository"`
	Limit      int    `json:"limit,omitempty"`
}

// Validate normalizes the request and rejects empty queries.
func (r *SemanticSearchRequest) Validate() error {
	if r.Query == "" {
		return fmt.Errorf("query cannot be empty")
	}
	if r.Repository == "" {
		return fmt.Errorf("repository cannot be empty")
	}
	if r.Limit <= 0 {
		r.Limit = 5
	}
	if r.Limit > 50 {
		r.Limit = 50
	}
	return nil
}

// SemanticSearchMatch is one match returned through the tool-call surface.
type SemanticSearchMatch struct {
	FilePath     string    `json:"file_path"`
	Content      string    `json:"content"`
	Language     string    `json:"language,omitempty"`
	FunctionName string    `json:"function_name,omitempty"`
	ClassName    string    `json:"class_name,omitempty"`
	StartLine    int       `json:"start_line"`
	EndLine      int       `json:"end_line"`
	ChunkType    ChunkType `json:"chunk_type"`
	Similarity   float64   `json:"similarity"`
}

// SemanticSearchResponse is the tool-call reply: matches plus a human-readable
// status message ("found N chunks", "repository not indexed", "RAG unavailable").
type SemanticSearchResponse struct {
	Matches     []*SemanticSearchMatch `json:"matches"`
	Message     string                 `json:"message"`
	QueryTimeMs int64                  `json:"query_time_ms"`
}
