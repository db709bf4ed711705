package rag

import (
	"fmt"
	"strings"

	"github.com/codetrail/coderag/internal/models"
)

// FormatContext renders selected chunks as a markdown block ready to inject
// into an agent prompt. Each chunk is cited with its file path, similarity,
// chunk type, optional function/class name, and line range, followed by a
// fenced code block of the content.
func FormatContext(results []*models.SearchResult) string {
	if len(results) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("## Relevant code context\n\n")
	for _, r := range results {
		fmt.Fprintf(&b, "### %s (similarity: %.2f)\n", r.Chunk.FilePath, r.Similarity)

		details := []string{string(r.Chunk.ChunkType)}
		if r.Chunk.FunctionName != "" {
			details = append(details, "function "+r.Chunk.FunctionName)
		}
		if r.Chunk.ClassName != "" {
			details = append(details, "class "+r.Chunk.ClassName)
		}
		details = append(details, fmt.Sprintf("lines %d-%d", r.Chunk.StartLine, r.Chunk.EndLine))
		fmt.Fprintf(&b, "%s\n\n", strings.Join(details, ", "))

		fmt.Fprintf(&b, "```%s\n%s\n```\n\n", r.Chunk.Language, r.Chunk.Content)
	}
	return strings.TrimSuffix(b.String(), "\n")
}
