package scanner

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounceWindow is how long the watcher waits for the burst of
// events around a save to settle before invoking its handler.
const DefaultDebounceWindow = 500 * time.Millisecond

// ChangeHandler receives one debounced batch of filesystem changes.
// changed holds created or modified files, removed holds deleted or
// renamed-away ones.
type ChangeHandler func(changed, removed []string)

// Watcher observes a directory tree and reports debounced file
// changes, so edits can be re-indexed incrementally instead of
// re-scanning the whole root.
type Watcher struct {
	fsw      *fsnotify.Watcher
	root     string
	ignore   *IgnoreRules
	handler  ChangeHandler
	debounce time.Duration
	log      *slog.Logger

	closeOnce sync.Once
}

// WatcherOptions configures a Watcher.
type WatcherOptions struct {
	Debounce time.Duration // default DefaultDebounceWindow
	Ignore   *IgnoreRules  // optional; skips ignored paths and trees
	Logger   *slog.Logger
}

// NewWatcher creates a watcher over root. Subdirectories are
// registered recursively; ignored trees are never registered.
func NewWatcher(root string, handler ChangeHandler, opts WatcherOptions) (*Watcher, error) {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounceWindow
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsw:      fsw,
		root:     root,
		ignore:   opts.Ignore,
		handler:  handler,
		debounce: opts.Debounce,
		log:      opts.Logger,
	}
	if err := w.addRecursive(root); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// addRecursive registers root and every non-ignored subdirectory.
func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.ignored(path, true) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

func (w *Watcher) ignored(path string, isDir bool) bool {
	if w.ignore == nil {
		return false
	}
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return false
	}
	return w.ignore.Match(rel, isDir)
}

// Run processes events until ctx is cancelled or the watcher is
// closed. Bursts of events are coalesced per debounce window and
// handed to the handler as one batch.
func (w *Watcher) Run(ctx context.Context) {
	pendingChanged := make(map[string]struct{})
	pendingRemoved := make(map[string]struct{})
	var timer *time.Timer
	var fire <-chan time.Time

	flush := func() {
		changed := make([]string, 0, len(pendingChanged))
		for p := range pendingChanged {
			changed = append(changed, p)
		}
		removed := make([]string, 0, len(pendingRemoved))
		for p := range pendingRemoved {
			removed = append(removed, p)
		}
		pendingChanged = make(map[string]struct{})
		pendingRemoved = make(map[string]struct{})
		fire = nil
		if len(changed) > 0 || len(removed) > 0 {
			w.log.Debug("file changes detected", "changed", len(changed), "removed", len(removed))
			w.handler(changed, removed)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if w.ignored(event.Name, false) {
				continue
			}
			switch {
			case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
				delete(pendingChanged, event.Name)
				pendingRemoved[event.Name] = struct{}{}
			case event.Has(fsnotify.Create) || event.Has(fsnotify.Write):
				// New directories join the watch set as they appear.
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addRecursive(event.Name); err != nil {
						w.log.Warn("failed to watch new directory", "path", event.Name, "error", err)
					}
					continue
				}
				delete(pendingRemoved, event.Name)
				pendingChanged[event.Name] = struct{}{}
			default:
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("watcher error", "error", err)

		case <-fire:
			flush()
		}
	}
}

// Close stops the watcher. Idempotent.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		err = w.fsw.Close()
	})
	return err
}
