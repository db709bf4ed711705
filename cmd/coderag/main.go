// Package main is the coderag CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/codetrail/coderag/internal/cli"
	"github.com/codetrail/coderag/internal/config"
	"github.com/codetrail/coderag/internal/models"
	"github.com/codetrail/coderag/internal/rag"
	"github.com/codetrail/coderag/internal/server"
	"github.com/codetrail/coderag/internal/vectorstore"
	"github.com/codetrail/coderag/internal/watcher"
	"github.com/codetrail/coderag/pkg/utils"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/coderag/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used,
// so that "coderag serve" from the project dir uses the project's config (including debug).
// Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "serve":
		runServe()
	case "index":
		runIndex()
	case "search":
		runSearch()
	case "context":
		runContext()
	case "repos":
		runRepos()
	case "delete":
		runDelete()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("coderag version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func newService(configPath string) (*rag.Service, *config.Config, *zap.Logger, error) {
	cfg, resolvedPath, err := loadConfig(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	logger.Debug("config loaded", zap.String("config_path", resolvedPath))
	return rag.NewService(cfg, rag.WithLogger(logger)), cfg, logger, nil
}

func runServe() {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (file changes, indexing runs, etc.)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	service := rag.NewService(cfg, rag.WithLogger(logger))
	defer service.Close()
	if !service.Initialize(context.Background()) {
		logger.Warn("RAG is not available; serving in degraded mode",
			zap.String("embedding_base_url", cfg.Embedding.BaseURL))
	}

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	var watchSvc *watcher.Watcher
	if len(cfg.Watch.Repositories) > 0 {
		repos := make([]watcher.Repository, 0, len(cfg.Watch.Repositories))
		for name, dir := range cfg.Watch.Repositories {
			repos = append(repos, watcher.Repository{Name: name, Path: dir})
		}
		watchOpts := []watcher.Option{}
		if debugMode {
			watchOpts = append(watchOpts, watcher.WithLogger(logger))
		}
		watchSvc = watcher.NewWatcher(
			repos,
			cfg.RAG.Extensions,
			cfg.Watch.RecursiveOrDefault(),
			func(name, path string) {
				result := service.IndexRepository(context.Background(), path, name)
				if !result.Success {
					logger.Warn("watch re-index failed",
						zap.String("repository", name),
						zap.String("error", result.Error))
				}
			},
			watchOpts...,
		)
		if err := watchSvc.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		defer watchSvc.Stop()
	}

	srv := server.NewServer(service, cfg, logger)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runIndex() {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	name := fs.String("name", "", "repository name (default: directory basename)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: coderag index [flags] <repository-path>")
		os.Exit(1)
	}
	path, err := filepath.Abs(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to resolve path: %v\n", err)
		os.Exit(1)
	}
	repoName := *name
	if repoName == "" {
		repoName = filepath.Base(path)
	}

	service, _, logger, err := newService(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()
	defer service.Close()

	result := service.IndexRepository(context.Background(), path, repoName)
	if err := cli.WriteIndexingResult(os.Stdout, result, parseFormat(*outputFormat)); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
	if !result.Success {
		os.Exit(1)
	}
}

// buildQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// argsReorder moves any flags (and their values) that appear after the query
// to the front of the slice so that flag.Parse() sees them. Go's flag package
// stops at the first non-flag argument.
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func parseFormat(s string) cli.OutputFormat {
	if s == "json" {
		return cli.OutputJSON
	}
	return cli.OutputText
}

func runSearch() {
	searchArgs := argsReorder(os.Args[2:])
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = use direct storage when server is not running)")
	repo := fs.String("repo", "", "repository name (required)")
	limit := fs.Int("limit", 5, "number of results")
	outputFormat := fs.String("output", "text", "output format: text (human-readable) or json (parseable)")
	_ = fs.Parse(searchArgs)

	queryStr := buildQuery(fs.Args())
	if queryStr == "" || *repo == "" {
		fmt.Println("Usage: coderag search --repo <name> [flags] <query>")
		fs.PrintDefaults()
		os.Exit(1)
	}

	req := &models.SemanticSearchRequest{
		Query:      queryStr,
		Repository: *repo,
		Limit:      *limit,
	}

	var response *models.SemanticSearchResponse
	if *serverURL != "" {
		// Use HTTP API when the server is running (avoids index lock conflicts).
		res, err := searchViaHTTP(*serverURL, req)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
		response = res
	} else {
		service, _, logger, err := newService(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		defer logger.Sync()
		defer service.Close()
		response = service.SemanticSearch(context.Background(), req)
	}

	if err := cli.WriteSearchResponse(os.Stdout, response, parseFormat(*outputFormat)); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func searchViaHTTP(serverURL string, req *models.SemanticSearchRequest) (*models.SemanticSearchResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/search", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var response models.SemanticSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &response, nil
}

func runContext() {
	contextArgs := argsReorder(os.Args[2:])
	fs := flag.NewFlagSet("context", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = use direct storage)")
	repo := fs.String("repo", "", "repository name (required)")
	maxChunks := fs.Int("max-chunks", 0, "maximum chunks to include (default from config)")
	threshold := fs.Float64("threshold", 0, "minimum similarity (default from config)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(contextArgs)

	queryStr := buildQuery(fs.Args())
	if queryStr == "" || *repo == "" {
		fmt.Println("Usage: coderag context --repo <name> [flags] <query>")
		fs.PrintDefaults()
		os.Exit(1)
	}

	var rc *models.RAGContext
	if *serverURL != "" {
		res, err := contextViaHTTP(*serverURL, queryStr, *repo, *maxChunks, *threshold)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Context failed: %v\n", err)
			os.Exit(1)
		}
		rc = res
	} else {
		service, cfg, logger, err := newService(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		defer logger.Sync()
		defer service.Close()
		max := *maxChunks
		if max <= 0 {
			max = cfg.RAG.TopK
		}
		th := *threshold
		if th <= 0 {
			th = cfg.RAG.SimilarityThreshold
		}
		rc = service.GetRelevantContext(context.Background(), queryStr, *repo, max, th)
	}

	if err := cli.WriteContext(os.Stdout, rc, parseFormat(*outputFormat)); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func contextViaHTTP(serverURL, query, repo string, maxChunks int, threshold float64) (*models.RAGContext, error) {
	payload := map[string]interface{}{"query": query, "repository": repo}
	if maxChunks > 0 {
		payload["max_chunks"] = maxChunks
	}
	if threshold > 0 {
		payload["similarity_threshold"] = threshold
	}
	body, _ := json.Marshal(payload)
	resp, err := http.Post(serverURL+"/api/v1/context", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var rc models.RAGContext
	if err := json.NewDecoder(resp.Body).Decode(&rc); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &rc, nil
}

func runRepos() {
	fs := flag.NewFlagSet("repos", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = use direct storage)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	var repos []vectorstore.Meta
	if *serverURL != "" {
		resp, err := http.Get(*serverURL + "/api/v1/repositories")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			fmt.Fprintf(os.Stderr, "List failed (%d): %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		var out struct {
			Repositories []vectorstore.Meta `json:"repositories"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			fmt.Fprintf(os.Stderr, "Parse failed: %v\n", err)
			os.Exit(1)
		}
		repos = out.Repositories
	} else {
		service, _, logger, err := newService(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		defer logger.Sync()
		defer service.Close()
		repos, err = service.ListRepositories(context.Background())
		if err != nil {
			fmt.Fprintf(os.Stderr, "List failed: %v\n", err)
			os.Exit(1)
		}
	}

	if err := cli.WriteRepositories(os.Stdout, repos, parseFormat(*outputFormat)); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runDelete() {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = use direct storage)")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: coderag delete [flags] <repository-name>")
		os.Exit(1)
	}
	name := fs.Arg(0)

	if *serverURL != "" {
		req, _ := http.NewRequest(http.MethodDelete, *serverURL+"/api/v1/repositories/"+url.PathEscape(name), nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			fmt.Fprintf(os.Stderr, "Delete failed (%d): %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		fmt.Printf("Repository deleted: %s\n", name)
		return
	}

	service, _, logger, err := newService(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()
	defer service.Close()

	if err := service.DeleteRepository(context.Background(), name); err != nil {
		fmt.Fprintf(os.Stderr, "Deletion failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Repository deleted: %s\n", name)
}

// statusResponse is the shape of GET /api/v1/status response.
type statusResponse struct {
	Available    bool                   `json:"available"`
	Repositories int                    `json:"repositories"`
	Chunks       int                    `json:"chunks"`
	Config       map[string]interface{} `json:"config,omitempty"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = use direct storage)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	var status statusResponse
	if *serverURL != "" {
		res, err := statusViaHTTP(*serverURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		status = *res
	} else {
		service, cfg, logger, err := newService(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		defer logger.Sync()
		defer service.Close()
		ctx := context.Background()
		metas, err := service.ListRepositories(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		totalChunks := 0
		for _, m := range metas {
			totalChunks += m.Chunks
		}
		status = statusResponse{
			Available:    service.Available(),
			Repositories: len(metas),
			Chunks:       totalChunks,
			Config: map[string]interface{}{
				"embedding_model":    cfg.Embedding.Model,
				"chunk_size":         cfg.RAG.ChunkSize,
				"chunk_overlap":      cfg.RAG.ChunkOverlap,
				"reranking_strategy": cfg.RAG.Reranking.Strategy,
				"storage_root":       cfg.Storage.RootDir,
			},
		}
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		fmt.Printf("available:      %t   # embedding backend reachable and model present\n", status.Available)
		fmt.Printf("repositories:   %d   # count of indexed repositories\n", status.Repositories)
		fmt.Printf("chunks:         %d   # count of indexed code chunks\n", status.Chunks)
		if len(status.Config) > 0 {
			fmt.Println()
			fmt.Println("# configuration")
			for _, key := range []string{"embedding_model", "chunk_size", "chunk_overlap", "reranking_strategy", "storage_root"} {
				if v, ok := status.Config[key]; ok {
					fmt.Printf("%-19s %v\n", key+":", v)
				}
			}
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func statusViaHTTP(serverURL string) (*statusResponse, error) {
	resp, err := http.Get(serverURL + "/api/v1/status")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var s statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &s, nil
}

func printUsage() {
	fmt.Println(`coderag - Local code retrieval engine for repository-aware assistants

Usage:
  coderag serve [flags]                    Start the HTTP server
  coderag index [flags] <path>             Index a repository
  coderag search --repo <name> <query>     Semantic search over an indexed repository
  coderag context --repo <name> <query>    Assemble a reranked context block
  coderag repos [flags]                    List indexed repositories
  coderag delete [flags] <name>            Delete a repository index
  coderag status [flags]                   Show availability and index stats
  coderag version                          Show version
  coderag help                             Show this help

Serve Flags:
  --config string    Config file path (default: /usr/local/etc/coderag/config.yaml)
  --debug            Enable debug logging (file changes, indexing runs, etc.)

Index Flags:
  --config string    Config file path
  --name string      Repository name (default: directory basename)
  --output string    Output format: text or json (default: text)

Search Flags:
  --server string    Server URL (default: http://localhost:8080). Use empty (--server "") for direct storage.
  --repo string      Repository name (required)
  --limit int        Number of results (default: 5)
  --output string    Output format: text or json (default: text)

Context Flags:
  --server string      Server URL (default: http://localhost:8080). Use empty (--server "") for direct storage.
  --repo string        Repository name (required)
  --max-chunks int     Maximum chunks to include (default from config)
  --threshold float    Minimum similarity (default from config)
  --output string      Output format: text or json (default: text)

Examples:
  coderag serve
  coderag index ~/src/myrepo
  coderag search --repo myrepo authentication middleware
  coderag context --repo myrepo "how are sessions stored"
  coderag repos
  coderag delete myrepo
  coderag status --output json`)
}
