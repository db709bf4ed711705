// Package chunker splits source files into retrievable chunks with line-range
// metadata. Code files are cut at function/class boundaries when the language
// is recognized; markdown is cut at headings; plain text at paragraph breaks.
// Everything else falls back to fixed-size line windows with overlap.
package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/codetrail/coderag/internal/models"
)

// Chunker converts file content into ordered chunks. Size and overlap are
// measured in lines.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
}

// NewChunker creates a chunker with the given size and overlap (in lines).
func NewChunker(chunkSize, chunkOverlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = 60
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize / 6
	}
	return &Chunker{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
	}
}

// boundary marks a line where a new semantic unit starts in a code file.
type boundary struct {
	line         int // 0-based index into lines
	chunkType    models.ChunkType
	functionName string
	className    string
}

type languagePatterns struct {
	function *regexp.Regexp
	class    *regexp.Regexp
}

// Per-language boundary patterns. Lightweight line matching, not parsing;
// capture group 1 is the declared name.
var codePatterns = map[string]languagePatterns{
	"go": {
		function: regexp.MustCompile(`^func\s+(?:\([^)]+\)\s+)?(\w+)\s*\(`),
		class:    regexp.MustCompile(`^type\s+(\w+)\s+(?:struct|interface)\b`),
	},
	"python": {
		function: regexp.MustCompile(`^\s*(?:async\s+)?def\s+(\w+)\s*\(`),
		class:    regexp.MustCompile(`^\s*class\s+(\w+)\s*[(:]`),
	},
	"javascript": {
		function: regexp.MustCompile(`^\s*(?:export\s+)?(?:default\s+)?(?:async\s+)?function\s*\*?\s*(\w+)\s*\(`),
		class:    regexp.MustCompile(`^\s*(?:export\s+)?(?:default\s+)?class\s+(\w+)`),
	},
	"typescript": {
		function: regexp.MustCompile(`^\s*(?:export\s+)?(?:default\s+)?(?:async\s+)?function\s*\*?\s*(\w+)\s*\(`),
		class:    regexp.MustCompile(`^\s*(?:export\s+)?(?:default\s+)?(?:abstract\s+)?class\s+(\w+)`),
	},
	"java": {
		function: regexp.MustCompile(`^\s*(?:public|private|protected)\s+(?:static\s+)?(?:final\s+)?[\w<>,\[\]\s]+\s(\w+)\s*\([^;]*$`),
		class:    regexp.MustCompile(`^\s*(?:public\s+|private\s+)?(?:abstract\s+|final\s+)?(?:class|interface|enum)\s+(\w+)`),
	},
	"kotlin": {
		function: regexp.MustCompile(`^\s*(?:override\s+)?(?:suspend\s+)?(?:private\s+|internal\s+|public\s+)?fun\s+(?:<[^>]+>\s+)?(\w+)\s*\(`),
		class:    regexp.MustCompile(`^\s*(?:data\s+|sealed\s+|abstract\s+|open\s+)?(?:class|interface|object)\s+(\w+)`),
	},
	"rust": {
		function: regexp.MustCompile(`^\s*(?:pub(?:\([^)]*\))?\s+)?(?:async\s+)?fn\s+(\w+)`),
		class:    regexp.MustCompile(`^\s*(?:pub(?:\([^)]*\))?\s+)?(?:struct|enum|trait|impl)\s+(\w+)`),
	},
}

var markdownHeading = regexp.MustCompile(`^#{1,6}\s+\S`)

// ChunkFile splits one file's content into chunks. Every chunk's Content is
// exactly the source lines [StartLine, EndLine] joined by newlines. Empty
// files produce zero chunks.
func (c *Chunker) ChunkFile(repository, filePath, content string) []*models.Chunk {
	if content == "" {
		return nil
	}
	lines := strings.Split(content, "\n")
	fileType, language := DetectFileType(filePath)

	// Small files go in whole.
	if len(lines) <= c.chunkSize {
		if isBlank(lines, 0, len(lines)-1) {
			return nil
		}
		return []*models.Chunk{c.newChunk(repository, filePath, lines, 0, len(lines)-1,
			models.ChunkTypeFullDocument, fileType, language, "", "")}
	}

	switch fileType {
	case models.FileTypeCode:
		return c.chunkCode(repository, filePath, lines, language)
	case models.FileTypeMarkdown:
		return c.chunkMarkdown(repository, filePath, lines)
	default:
		return c.chunkParagraphs(repository, filePath, lines, fileType)
	}
}

func (c *Chunker) chunkCode(repository, filePath string, lines []string, language string) []*models.Chunk {
	patterns, ok := codePatterns[language]
	if !ok {
		return c.chunkWindows(repository, filePath, lines, 0, len(lines)-1,
			models.ChunkTypeCodeBlock, models.FileTypeCode, language, "", "")
	}

	var boundaries []boundary
	className := ""
	for i, line := range lines {
		if m := patterns.class.FindStringSubmatch(line); m != nil {
			className = m[1]
			boundaries = append(boundaries, boundary{line: i, chunkType: models.ChunkTypeClass, className: m[1]})
			continue
		}
		if m := patterns.function.FindStringSubmatch(line); m != nil {
			b := boundary{line: i, chunkType: models.ChunkTypeFunction, functionName: m[1]}
			if indented(line) {
				b.className = className
			}
			boundaries = append(boundaries, b)
		}
	}
	if len(boundaries) == 0 {
		return c.chunkWindows(repository, filePath, lines, 0, len(lines)-1,
			models.ChunkTypeCodeBlock, models.FileTypeCode, language, "", "")
	}

	var chunks []*models.Chunk
	if boundaries[0].line > 0 {
		chunks = append(chunks, c.chunkWindows(repository, filePath, lines, 0, boundaries[0].line-1,
			models.ChunkTypeCodeBlock, models.FileTypeCode, language, "", "")...)
	}
	for i, b := range boundaries {
		end := len(lines) - 1
		if i+1 < len(boundaries) {
			end = boundaries[i+1].line - 1
		}
		chunks = append(chunks, c.chunkWindows(repository, filePath, lines, b.line, end,
			b.chunkType, models.FileTypeCode, language, b.functionName, b.className)...)
	}
	return chunks
}

func (c *Chunker) chunkMarkdown(repository, filePath string, lines []string) []*models.Chunk {
	var starts []int
	inFence := false
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inFence = !inFence
			continue
		}
		if !inFence && markdownHeading.MatchString(line) {
			starts = append(starts, i)
		}
	}
	if len(starts) == 0 {
		return c.chunkParagraphs(repository, filePath, lines, models.FileTypeMarkdown)
	}

	var chunks []*models.Chunk
	if starts[0] > 0 {
		chunks = append(chunks, c.chunkWindows(repository, filePath, lines, 0, starts[0]-1,
			models.ChunkTypeSection, models.FileTypeMarkdown, "", "", "")...)
	}
	for i, start := range starts {
		end := len(lines) - 1
		if i+1 < len(starts) {
			end = starts[i+1] - 1
		}
		chunks = append(chunks, c.chunkWindows(repository, filePath, lines, start, end,
			models.ChunkTypeSection, models.FileTypeMarkdown, "", "", "")...)
	}
	return chunks
}

func (c *Chunker) chunkParagraphs(repository, filePath string, lines []string, fileType models.FileType) []*models.Chunk {
	var chunks []*models.Chunk
	start := -1
	flush := func(end int) {
		if start < 0 {
			return
		}
		chunks = append(chunks, c.chunkWindows(repository, filePath, lines, start, end,
			models.ChunkTypeParagraph, fileType, "", "", "")...)
		start = -1
	}
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			flush(i - 1)
			continue
		}
		if start < 0 {
			start = i
		}
	}
	flush(len(lines) - 1)
	return chunks
}

// chunkWindows emits one chunk for the range [start, end] (0-based, inclusive),
// splitting into overlapping fixed-size windows when the range exceeds the
// configured chunk size. Blank ranges are dropped.
func (c *Chunker) chunkWindows(repository, filePath string, lines []string, start, end int,
	chunkType models.ChunkType, fileType models.FileType, language, functionName, className string) []*models.Chunk {
	if start > end || isBlank(lines, start, end) {
		return nil
	}
	if end-start+1 <= c.chunkSize {
		return []*models.Chunk{c.newChunk(repository, filePath, lines, start, end,
			chunkType, fileType, language, functionName, className)}
	}
	var chunks []*models.Chunk
	step := c.chunkSize - c.chunkOverlap
	for i := start; i <= end; i += step {
		wEnd := i + c.chunkSize - 1
		if wEnd > end {
			wEnd = end
		}
		if !isBlank(lines, i, wEnd) {
			chunks = append(chunks, c.newChunk(repository, filePath, lines, i, wEnd,
				chunkType, fileType, language, functionName, className))
		}
		if wEnd >= end {
			break
		}
	}
	return chunks
}

func (c *Chunker) newChunk(repository, filePath string, lines []string, start, end int,
	chunkType models.ChunkType, fileType models.FileType, language, functionName, className string) *models.Chunk {
	return &models.Chunk{
		ID:           chunkID(repository, filePath, start+1, end+1),
		Content:      strings.Join(lines[start:end+1], "\n"),
		FilePath:     filePath,
		Repository:   repository,
		StartLine:    start + 1,
		EndLine:      end + 1,
		ChunkType:    chunkType,
		FileType:     fileType,
		Language:     language,
		FunctionName: functionName,
		ClassName:    className,
		CreatedAt:    time.Now(),
	}
}

// chunkID returns a stable identifier from provenance and position. Same
// repository, path, and line range always yields the same ID.
func chunkID(repository, filePath string, startLine, endLine int) string {
	hash := sha256.Sum256([]byte(fmt.Sprintf("%s/%s:%d-%d", repository, filePath, startLine, endLine)))
	return hex.EncodeToString(hash[:])[:16]
}

func isBlank(lines []string, start, end int) bool {
	for i := start; i <= end; i++ {
		if strings.TrimSpace(lines[i]) != "" {
			return false
		}
	}
	return true
}

func indented(line string) bool {
	return len(line) > 0 && (line[0] == ' ' || line[0] == '\t')
}
