package config

// Strategy names accepted by RerankingConfig.Strategy.
const (
	StrategyNone          = "none"
	StrategyThreshold     = "threshold"
	StrategyAdaptive      = "adaptive"
	StrategyScoreGap      = "score_gap"
	StrategyMMR           = "mmr"
	StrategyMultiCriteria = "multi_criteria"
	StrategyContextual    = "contextual"
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.RootDir == "" {
		cfg.Storage.RootDir = "/usr/local/var/coderag/data"
	}
	if cfg.Embedding.BaseURL == "" {
		cfg.Embedding.BaseURL = "http://localhost:11434"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "nomic-embed-text"
	}
	if cfg.Embedding.TimeoutSeconds == 0 {
		cfg.Embedding.TimeoutSeconds = 30
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.RAG.ChunkSize == 0 {
		cfg.RAG.ChunkSize = 60
	}
	if cfg.RAG.ChunkOverlap == 0 {
		cfg.RAG.ChunkOverlap = 10
	}
	if cfg.RAG.MaxChunks == 0 {
		cfg.RAG.MaxChunks = 2000
	}
	if cfg.RAG.MaxFiles == 0 {
		cfg.RAG.MaxFiles = 500
	}
	if cfg.RAG.TopK == 0 {
		cfg.RAG.TopK = 5
	}
	if cfg.RAG.SimilarityThreshold == 0 {
		cfg.RAG.SimilarityThreshold = 0.3
	}
	if cfg.RAG.Extensions == nil {
		cfg.RAG.Extensions = []string{
			".go", ".py", ".js", ".ts", ".java", ".kt", ".rs", ".rb", ".c",
			".cpp", ".h", ".md", ".txt", ".yaml", ".yml", ".json", ".sql", ".sh",
		}
	}
	if cfg.RAG.ExcludeGlobs == nil {
		cfg.RAG.ExcludeGlobs = []string{
			".git/*", "node_modules/*", "vendor/*", "build/*", "dist/*", "*.min.js",
		}
	}
	cfg.RAG.Reranking.ApplyDefaults()
}

// ApplyDefaults sets default values for any zero-valued strategy parameters.
func (r *RerankingConfig) ApplyDefaults() {
	if r.Strategy == "" {
		r.Strategy = StrategyThreshold
	}
	if r.Threshold == 0 {
		r.Threshold = 0.3
	}
	if r.AdaptiveRatio == 0 {
		r.AdaptiveRatio = 0.8
	}
	if r.MaxScoreGap == 0 {
		r.MaxScoreGap = 0.15
	}
	if r.MMRLambda == 0 {
		r.MMRLambda = 0.7
	}
	if r.MMRMaxResults == 0 {
		r.MMRMaxResults = 5
	}
	if r.MinSimilarity == 0 {
		r.MinSimilarity = 0.3
	}
	if r.MinContentLength == 0 {
		r.MinContentLength = 50
	}
	if r.ContextualTopK == 0 {
		r.ContextualTopK = 5
	}
	if r.MaxChunkLength == 0 {
		r.MaxChunkLength = 1000
	}
}
