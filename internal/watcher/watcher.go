// Package watcher watches repository directories with fsnotify and triggers a
// debounced re-index of the whole repository on change. Indexing is a full
// replace, so per-file bookkeeping is unnecessary; the debounce collapses
// bursts of events (editor saves, branch switches) into one run.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 2 * time.Second

// Repository is one watched repository root.
type Repository struct {
	Name string
	Path string
}

// ReindexFunc is invoked, debounced, when a repository's files change.
type ReindexFunc func(name, path string)

// Watcher watches repository directories and schedules re-index runs.
type Watcher struct {
	repos      []Repository
	extensions []string
	recursive  bool
	onReindex  ReindexFunc
	debounce   time.Duration
	logger     *zap.Logger

	watcher  *fsnotify.Watcher
	mu       sync.Mutex
	timers   map[string]*time.Timer // repository name -> pending re-index
	started  bool
	done     chan struct{}
	stopOnce sync.Once
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets a logger for watch events.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// WithDebounce overrides the debounce interval.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// NewWatcher creates a watcher over the given repositories. extensions filter
// which file events count (empty = all).
func NewWatcher(repos []Repository, extensions []string, recursive bool, onReindex ReindexFunc, opts ...Option) *Watcher {
	w := &Watcher{
		repos:      repos,
		extensions: extensions,
		recursive:  recursive,
		onReindex:  onReindex,
		debounce:   defaultDebounce,
		logger:     zap.NewNop(),
		timers:     make(map[string]*time.Timer),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins watching. It runs until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	w.watcher = watcher
	w.started = true
	for _, repo := range w.repos {
		if err := w.addRepoLocked(repo); err != nil {
			_ = w.watcher.Close()
			w.watcher = nil
			w.started = false
			w.mu.Unlock()
			return err
		}
	}
	w.mu.Unlock()
	w.logger.Info("watcher started", zap.Int("repositories", len(w.repos)))
	go w.run(ctx)
	return nil
}

func (w *Watcher) addRepoLocked(repo Repository) error {
	root := filepath.Clean(repo.Path)
	if _, err := os.Stat(root); err != nil {
		return err
	}
	if !w.recursive {
		return w.watcher.Add(root)
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.watcher.Add(path)
		}
		return nil
	})
}

func (w *Watcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if err != nil {
				w.logger.Debug("watcher error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	repo, ok := w.repoFor(ev.Name)
	if !ok {
		return
	}

	// New subdirectories need their own watch in recursive mode.
	if ev.Op&fsnotify.Create != 0 && w.recursive {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			w.mu.Lock()
			if w.watcher != nil {
				_ = w.watcher.Add(ev.Name)
			}
			w.mu.Unlock()
			w.scheduleReindex(repo)
			return
		}
	}
	if !w.matchExtension(ev.Name) {
		return
	}
	w.logger.Debug("watcher event",
		zap.String("op", ev.Op.String()),
		zap.String("path", ev.Name),
		zap.String("repository", repo.Name))
	w.scheduleReindex(repo)
}

func (w *Watcher) repoFor(path string) (Repository, bool) {
	clean := filepath.Clean(path)
	for _, repo := range w.repos {
		root := filepath.Clean(repo.Path)
		if clean == root || inDir(root, clean) {
			return repo, true
		}
	}
	return Repository{}, false
}

func inDir(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func (w *Watcher) matchExtension(path string) bool {
	if len(w.extensions) == 0 {
		return true
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	for _, e := range w.extensions {
		if strings.TrimPrefix(strings.ToLower(e), ".") == ext {
			return true
		}
	}
	return false
}

// scheduleReindex resets the repository's debounce timer so a burst of
// changes produces a single re-index once the tree settles.
func (w *Watcher) scheduleReindex(repo Repository) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[repo.Name]; ok {
		t.Stop()
	}
	w.timers[repo.Name] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, repo.Name)
		w.mu.Unlock()
		w.logger.Info("re-indexing repository after change", zap.String("repository", repo.Name))
		if w.onReindex != nil {
			w.onReindex(repo.Name, repo.Path)
		}
	})
}

// Repositories returns a copy of the watched repositories.
func (w *Watcher) Repositories() []Repository {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]Repository(nil), w.repos...)
}

// Stop stops the watcher and cancels pending re-index timers.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.started || w.watcher == nil {
		w.mu.Unlock()
		return
	}
	for name, t := range w.timers {
		t.Stop()
		delete(w.timers, name)
	}
	_ = w.watcher.Close()
	w.watcher = nil
	w.started = false
	w.mu.Unlock()
	w.stopOnce.Do(func() { close(w.done) })
}
