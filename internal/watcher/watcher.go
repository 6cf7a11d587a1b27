package watcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/akolanti/StudyRAG/internal/domain/commonModels"
	"github.com/akolanti/StudyRAG/pkg/logger_i"
	"github.com/fsnotify/fsnotify"
)

const DefaultDebounce = 2 * time.Second

// IngestFunc receives the absolute path of a file that has settled.
type IngestFunc func(ctx context.Context, path string) error

// Watcher ingests documents dropped into one directory. A file is handed to
// the ingest func once no event has touched it for the debounce window, and
// files are ingested one at a time.
type Watcher struct {
	dir      string
	ingest   IngestFunc
	debounce time.Duration
	logger   *logger_i.Logger

	started chan struct{}
}

func New(dir string, ingest IngestFunc, debounce time.Duration) (*Watcher, error) {
	if ingest == nil {
		return nil, errors.New("watcher needs an ingest func")
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("watch dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch dir %s is not a directory", dir)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		dir:      abs,
		ingest:   ingest,
		debounce: debounce,
		logger:   logger_i.NewLogger("Folder Watcher"),
		started:  make(chan struct{}),
	}, nil
}

// Run blocks until ctx is cancelled. Files already pending when it returns are dropped.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("watching %s: %w", w.dir, err)
	}
	w.logger.Info("Watching folder", "dir", w.dir, "debounce", w.debounce)
	close(w.started)

	pending := make(map[string]time.Time)
	ticker := time.NewTicker(w.debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if path, ok := w.candidate(event); ok {
				pending[path] = time.Now()
			}
			if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				delete(pending, event.Name)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "error", err)

		case now := <-ticker.C:
			w.flush(ctx, pending, now)
		}
	}
}

func (w *Watcher) flush(ctx context.Context, pending map[string]time.Time, now time.Time) {
	for path, last := range pending {
		if now.Sub(last) < w.debounce {
			continue
		}
		delete(pending, path)
		if ctx.Err() != nil {
			return
		}
		if _, err := os.Stat(path); err != nil {
			continue
		}

		start := time.Now()
		if err := w.ingest(ctx, path); err != nil {
			w.logger.Error("ingestion failed", "file", filepath.Base(path), "error", err)
			continue
		}
		w.logger.Info("ingested dropped file", "file", filepath.Base(path), "took", time.Since(start))
	}
}

func (w *Watcher) candidate(event fsnotify.Event) (string, bool) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return "", false
	}
	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, "~") {
		return "", false
	}
	if commonModels.GetDocType(name) == commonModels.ERR {
		w.logger.Debug("skipping unsupported file", "file", name)
		return "", false
	}
	info, err := os.Stat(event.Name)
	if err != nil || info.IsDir() {
		return "", false
	}
	return event.Name, true
}
