package scanner

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const deleteSuffix = "\x00DELETE"

// Watcher drives the scanner's single-file pipeline from filesystem
// change notifications, debounced and coalesced the way the teacher's
// daemon.Watcher did, but delegating the actual indexing/deletion work
// to Scanner.IndexPath/DeletePath rather than duplicating the pipeline.
type Watcher struct {
	scanner *Scanner
	fsw     *fsnotify.Watcher

	debounce time.Duration

	mu           sync.Mutex
	pendingFiles map[string]time.Time

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewWatcher wraps scanner with an fsnotify-driven incremental pipeline.
// debounce defaults to 100ms if zero or negative.
func NewWatcher(scanner *Scanner, debounce time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = 100 * time.Millisecond
	}
	return &Watcher{
		scanner:      scanner,
		fsw:          fsw,
		debounce:     debounce,
		pendingFiles: make(map[string]time.Time),
		stopCh:       make(chan struct{}),
	}, nil
}

// Watch adds dirs recursively (skipping anything the scanner's ignore
// filter excludes) and blocks processing filesystem events until ctx is
// cancelled or Stop is called.
func (w *Watcher) Watch(ctx context.Context, dirs []string) error {
	for _, dir := range dirs {
		if err := w.addDirRecursive(dir); err != nil {
			log.Printf("scanner: failed to watch %s: %v", dir, err)
		}
	}

	go w.processDebounced(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stopCh:
			return nil
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			log.Printf("scanner: watch error: %v", err)
		}
	}
}

// Stop ends the watch loop and releases the underlying fsnotify watcher.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.fsw.Close()
	})
}

func (w *Watcher) addDirRecursive(dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if w.scanner.deps.IgnoreFilter.ShouldExclude(path) {
				return filepath.SkipDir
			}
			return w.fsw.Add(path)
		}
		return nil
	})
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if w.scanner.deps.IgnoreFilter.ShouldExclude(event.Name) {
		return
	}
	if !w.scanner.deps.Parser.IsSupportedFile(event.Name) {
		return
	}

	switch {
	case event.Op&fsnotify.Write == fsnotify.Write,
		event.Op&fsnotify.Create == fsnotify.Create:
		w.queue(event.Name)
	case event.Op&fsnotify.Remove == fsnotify.Remove,
		event.Op&fsnotify.Rename == fsnotify.Rename:
		w.queue(event.Name + deleteSuffix)
	}
}

func (w *Watcher) queue(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pendingFiles[path] = time.Now()
}

func (w *Watcher) processDebounced(ctx context.Context) {
	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.processPending(ctx)
		}
	}
}

func (w *Watcher) processPending(ctx context.Context) {
	w.mu.Lock()
	now := time.Now()
	var toProcess []string
	for path, queuedAt := range w.pendingFiles {
		if now.Sub(queuedAt) >= w.debounce {
			toProcess = append(toProcess, path)
			delete(w.pendingFiles, path)
		}
	}
	w.mu.Unlock()

	for _, path := range toProcess {
		if strings.HasSuffix(path, deleteSuffix) {
			real := strings.TrimSuffix(path, deleteSuffix)
			if err := w.scanner.DeletePath(ctx, real); err != nil {
				log.Printf("scanner: failed to delete %s: %v", real, err)
			}
			continue
		}
		if err := w.scanner.IndexPath(ctx, path); err != nil {
			log.Printf("scanner: failed to index %s: %v", path, err)
		}
	}
}
