package watch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the window used when Config.Debounce is not positive.
const DefaultDebounce = 200 * time.Millisecond

// ErrWatchLimitReached is returned when the OS watch limit is exceeded.
var ErrWatchLimitReached = errors.New("filesystem watch limit reached")

// Config configures the watcher.
type Config struct {
	// Source is the absolute path of the translation unit.
	Source string
	// Debounce is the quiet period after a save before compiling.
	Debounce time.Duration
	// Compile compiles Source once.
	Compile func(ctx context.Context) error
	// Logger receives progress. Nil means a text logger on stderr.
	Logger *Logger
}

// Watcher recompiles a source file when its contents change.
type Watcher struct {
	config    Config
	fsWatcher *fsnotify.Watcher
	debouncer *Debouncer
	logger    *Logger
	ctx       context.Context

	// compileMu serialises compiles and guards hashes.
	compileMu sync.Mutex
	hashes    map[string]uint64
}

// New creates a watcher for cfg.Source.
func New(cfg Config) (*Watcher, error) {
	if cfg.Compile == nil {
		return nil, errors.New("watch: no compile function")
	}
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	window := cfg.Debounce
	if window <= 0 {
		window = DefaultDebounce
	}
	logger := cfg.Logger
	if logger == nil {
		logger = NewLogger(LoggerConfig{})
	}

	cfg.Source = filepath.Clean(cfg.Source)
	w := &Watcher{
		config:    cfg,
		fsWatcher: fsWatcher,
		logger:    logger,
		ctx:       context.Background(),
		hashes:    make(map[string]uint64),
	}
	w.debouncer = NewDebouncer(window, w.handleChanged)
	return w, nil
}

// Run compiles the source once and then after every change. It blocks
// until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	w.ctx = ctx
	defer w.debouncer.Stop()

	// Editors replace files on save, so the directory is watched rather
	// than the file itself.
	dir := filepath.Dir(w.config.Source)
	if err := w.fsWatcher.Add(dir); err != nil {
		if isWatchLimitError(err) {
			return fmt.Errorf("%w for %s: increase fs.inotify.max_user_watches", ErrWatchLimitReached, dir)
		}
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	w.logger.Ready(w.config.Source)
	w.compile(w.config.Source, true)

	for {
		select {
		case <-ctx.Done():
			w.logger.Shutdown()
			return nil

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error(err)
		}
	}
}

// handleEvent forwards writes to the watched source to the debouncer.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.config.Source {
		return
	}
	// A removal or rename during a save is followed by a create.
	if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
		w.debouncer.Add(w.config.Source)
	}
}

func (w *Watcher) handleChanged(paths []string) {
	if w.ctx.Err() != nil {
		return
	}
	for _, p := range paths {
		w.compile(p, false)
	}
}

// compile runs the compile unless the contents hash to the value of the
// last successful compile. force skips that check.
func (w *Watcher) compile(path string, force bool) {
	w.compileMu.Lock()
	defer w.compileMu.Unlock()

	sum, err := HashFile(path)
	if err != nil {
		w.logger.Error(err)
		return
	}
	if prev, ok := w.hashes[path]; ok && prev == sum && !force {
		w.logger.Unchanged(path)
		return
	}

	w.logger.Compiling(path)
	start := time.Now()
	if err := w.config.Compile(w.ctx); err != nil {
		delete(w.hashes, path)
		w.logger.Failed(path, err)
		return
	}
	w.hashes[path] = sum
	w.logger.Compiled(path, time.Since(start))
}

// Close releases the OS watch.
func (w *Watcher) Close() error {
	if w.fsWatcher != nil {
		return w.fsWatcher.Close()
	}
	return nil
}

// isWatchLimitError checks if an error is due to inotify watch limits.
func isWatchLimitError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "no space left on device") ||
		strings.Contains(msg, "too many open files")
}
