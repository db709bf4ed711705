package chunker

import (
	"path/filepath"
	"strings"

	"github.com/codetrail/coderag/internal/models"
)

var extLanguages = map[string]string{
	".go":    "go",
	".py":    "python",
	".js":    "javascript",
	".jsx":   "javascript",
	".ts":    "typescript",
	".tsx":   "typescript",
	".java":  "java",
	".kt":    "kotlin",
	".kts":   "kotlin",
	".rs":    "rust",
	".rb":    "ruby",
	".c":     "c",
	".h":     "c",
	".cpp":   "cpp",
	".cc":    "cpp",
	".hpp":   "cpp",
	".cs":    "csharp",
	".php":   "php",
	".swift": "swift",
	".scala": "scala",
	".sh":    "shell",
	".sql":   "sql",
}

var extPlainText = map[string]bool{
	".txt":  true,
	".text": true,
	".rst":  true,
	".log":  true,
	".cfg":  true,
	".conf": true,
	".ini":  true,
	".toml": true,
	".yaml": true,
	".yml":  true,
	".json": true,
	".xml":  true,
}

// DetectFileType classifies a file by extension and reports the programming
// language for code files (empty for everything else).
func DetectFileType(path string) (models.FileType, string) {
	ext := strings.ToLower(filepath.Ext(path))
	if lang, ok := extLanguages[ext]; ok {
		return models.FileTypeCode, lang
	}
	if ext == ".md" || ext == ".markdown" {
		return models.FileTypeMarkdown, ""
	}
	if extPlainText[ext] {
		return models.FileTypePlainText, ""
	}
	return models.FileTypeUnknown, ""
}
