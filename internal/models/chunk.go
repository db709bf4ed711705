// Package models defines core data structures for chunks, search results, and
// indexing outcomes.
package models

import "time"

// ChunkType tags the semantic granularity of a chunk.
type ChunkType string

const (
	ChunkTypeFunction     ChunkType = "function"
	ChunkTypeClass        ChunkType = "class"
	ChunkTypeSection      ChunkType = "section"
	ChunkTypeParagraph    ChunkType = "paragraph"
	ChunkTypeCodeBlock    ChunkType = "code_block"
	ChunkTypeFullDocument ChunkType = "full_document"
)

// FileType classifies the source file a chunk was cut from.
type FileType string

const (
	FileTypeCode      FileType = "code"
	FileTypeMarkdown  FileType = "markdown"
	FileTypePlainText FileType = "plain_text"
	FileTypeUnknown   FileType = "unknown"
)

// Chunk is one retrievable unit of indexed content. Chunks are created during
// indexing and never mutated; Content is the exact text of source lines
// [StartLine, EndLine] so results can be cited back to the file verbatim.
type Chunk struct {
	ID           string    `json:"id" db:"id"`
	Content      string    `json:"content" db:"content"`
	FilePath     string    `json:"file_path" db:"file_path"`
	Repository   string    `json:"repository" db:"repository"`
	StartLine    int       `json:"start_line" db:"start_line"`
	EndLine      int       `json:"end_line" db:"end_line"`
	ChunkType    ChunkType `json:"chunk_type" db:"chunk_type"`
	FileType     FileType  `json:"file_type" db:"file_type"`
	Language     string    `json:"language,omitempty" db:"language"`
	FunctionName string    `json:"function_name,omitempty" db:"function_name"`
	ClassName    string    `json:"class_name,omitempty" db:"class_name"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
