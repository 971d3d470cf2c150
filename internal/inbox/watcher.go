package inbox

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a path must stay quiet before it is ingested.
const DefaultDebounce = 300 * time.Millisecond

// Watch starts an fsnotify watcher on the inbox root and ingests files once
// writes to them settle, until ctx is cancelled. It calls cb (if non-nil)
// after each Source is created.
//
// New directories created at runtime (for example a new user's folder) are
// added to the watch list and any files already inside are queued.
func (i *Ingester) Watch(ctx context.Context, debounce time.Duration, cb EventCallback) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	logger := i.opts.Logger

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, i.opts.Root); err != nil {
		return err
	}

	logger.Info("inbox: watcher started", slog.String("root", i.opts.Root))

	pending := make(map[string]struct{})
	var flushTimer *time.Timer
	var flushCh <-chan time.Time

	schedule := func(path string) {
		pending[path] = struct{}{}
		if flushTimer == nil {
			flushTimer = time.NewTimer(debounce)
			flushCh = flushTimer.C
		} else {
			flushTimer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if flushTimer != nil {
				flushTimer.Stop()
			}
			logger.Info("inbox: watcher stopped")
			return nil

		case <-flushCh:
			for path := range pending {
				delete(pending, path)
				i.ingest(ctx, path, cb)
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			absPath := ev.Name

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, absPath); addErr != nil {
						logger.Warn("inbox: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
						continue
					}
					logger.Debug("inbox: watching new dir", slog.String("path", absPath))
					_ = filepath.WalkDir(absPath, func(p string, d fs.DirEntry, err error) error {
						if err == nil && !d.IsDir() && eligible(p) {
							schedule(p)
						}
						return nil
					})
					continue
				}
			}

			if !eligible(absPath) {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				schedule(absPath)
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				delete(pending, absPath)
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("inbox: watcher error", slog.String("error", watchErr.Error()))
		}
	}
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
