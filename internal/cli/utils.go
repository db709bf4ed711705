// Package cli provides CLI output utilities for coderag.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/codetrail/coderag/internal/models"
	"github.com/codetrail/coderag/internal/vectorstore"
	"github.com/codetrail/coderag/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// WriteSearchResponse writes a semantic search response to w in the given
// format. Use OutputJSON for parseable output consumable by other apps.
func WriteSearchResponse(w io.Writer, response *models.SemanticSearchResponse, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(response)
	default:
		writeSearchResponseText(w, response)
		return nil
	}
}

func writeSearchResponseText(w io.Writer, response *models.SemanticSearchResponse) {
	fmt.Fprintf(w, "\n%s (%dms)\n\n", response.Message, response.QueryTimeMs)
	for i, match := range response.Matches {
		writeOneMatch(w, i+1, match)
	}
}

func writeOneMatch(w io.Writer, rank int, match *models.SemanticSearchMatch) {
	fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
	fmt.Fprintf(w, "Rank: %d | Similarity: %.4f | %s\n", rank, match.Similarity, match.ChunkType)
	fmt.Fprintf(w, "File: %s (lines %d-%d)\n", match.FilePath, match.StartLine, match.EndLine)
	if match.FunctionName != "" {
		fmt.Fprintf(w, "Function: %s\n", match.FunctionName)
	}
	if match.ClassName != "" {
		fmt.Fprintf(w, "Class: %s\n", match.ClassName)
	}
	fmt.Fprintf(w, "\n%s\n", utils.Truncate(match.Content, 200))
	fmt.Fprintln(w)
}

// WriteIndexingResult writes an indexing result to w in the given format.
func WriteIndexingResult(w io.Writer, result *models.IndexingResult, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	default:
		if !result.Success {
			fmt.Fprintf(w, "Indexing failed: %s\n", result.Error)
			return nil
		}
		fmt.Fprintf(w, "Indexed %d chunks from %d files in %dms (run %s)\n",
			result.ChunksIndexed, result.FilesProcessed, result.DurationMs, result.RunID)
		return nil
	}
}

// WriteContext writes an assembled context to w in the given format. Text
// output prints the formatted context block as-is, the way a model would
// receive it.
func WriteContext(w io.Writer, rc *models.RAGContext, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rc)
	default:
		if !rc.Available {
			fmt.Fprintln(w, "No context available.")
			return nil
		}
		fmt.Fprintf(w, "Strategy: %s (%d candidates, %d selected)\n\n",
			rc.Reranking.Strategy, rc.Reranking.CandidateCount, rc.Reranking.SelectedCount)
		fmt.Fprintln(w, rc.FormattedContext)
		return nil
	}
}

// WriteRepositories writes the indexed repository list to w in the given format.
func WriteRepositories(w io.Writer, repos []vectorstore.Meta, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(repos)
	default:
		if len(repos) == 0 {
			fmt.Fprintln(w, "No repositories indexed.")
			return nil
		}
		for _, meta := range repos {
			fmt.Fprintf(w, "%s: %d chunks from %d files (model %s, indexed %s)\n",
				meta.Repository, meta.Chunks, meta.Files,
				meta.EmbeddingModel, meta.CreatedAt.Format("2006-01-02 15:04"))
		}
		return nil
	}
}

// PrintSearchResponse prints a search response to stdout in text format.
func PrintSearchResponse(response *models.SemanticSearchResponse) {
	_ = WriteSearchResponse(os.Stdout, response, OutputText)
}
