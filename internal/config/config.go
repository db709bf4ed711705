// Package config provides configuration loading and structs for the coderag server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	RAG       RAGConfig       `yaml:"rag"`
	Watch     WatchConfig     `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds the root directory under which per-repository indices live.
type StorageConfig struct {
	RootDir string `yaml:"root_dir"`
}

// EmbeddingConfig holds settings for the external embedding backend.
type EmbeddingConfig struct {
	BaseURL        string `yaml:"base_url"`
	Model          string `yaml:"model"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	CacheSize      int    `yaml:"cache_size"`
}

// RAGConfig holds chunking, retrieval, and reranking settings.
type RAGConfig struct {
	Enabled             bool            `yaml:"enabled"`
	ChunkSize           int             `yaml:"chunk_size"`
	ChunkOverlap        int             `yaml:"chunk_overlap"`
	MaxChunks           int             `yaml:"max_chunks"`
	MaxFiles            int             `yaml:"max_files"`
	TopK                int             `yaml:"top_k"`
	SimilarityThreshold float64         `yaml:"similarity_threshold"`
	Extensions          []string        `yaml:"extensions"`
	ExcludeGlobs        []string        `yaml:"exclude_globs"`
	KeywordEnabled      bool            `yaml:"keyword_enabled"`
	Reranking           RerankingConfig `yaml:"reranking"`
}

// RerankingConfig selects the reranking strategy and its parameters.
type RerankingConfig struct {
	Strategy         string  `yaml:"strategy"`
	Threshold        float64 `yaml:"threshold"`
	AdaptiveRatio    float64 `yaml:"adaptive_ratio"`
	MaxScoreGap      float64 `yaml:"max_score_gap"`
	MMRLambda        float64 `yaml:"mmr_lambda"`
	MMRMaxResults    int     `yaml:"mmr_max_results"`
	MinSimilarity    float64 `yaml:"min_similarity"`
	MinContentLength int     `yaml:"min_content_length"`
	ContextualTopK   int     `yaml:"contextual_top_k"`
	TruncateChunks   bool    `yaml:"truncate_chunks"`
	MaxChunkLength   int     `yaml:"max_chunk_length"`
}

// WatchConfig holds automatic re-indexing settings for watched repositories.
type WatchConfig struct {
	// Repositories maps a repository name to its root directory.
	Repositories map[string]string `yaml:"repositories"`
	Recursive    *bool             `yaml:"recursive"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.RootDir = expandPath(cfg.Storage.RootDir, configDir)
	for name, dir := range cfg.Watch.Repositories {
		cfg.Watch.Repositories[name] = expandPath(dir, configDir)
	}

	return &cfg, nil
}

// Save writes the config to path. Used for persisting watched repository add/remove.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
