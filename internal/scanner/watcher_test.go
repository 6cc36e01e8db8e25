package scanner

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type changeRecorder struct {
	mu      sync.Mutex
	changed []string
	removed []string
}

func (r *changeRecorder) handle(changed, removed []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changed = append(r.changed, changed...)
	r.removed = append(r.removed, removed...)
}

func (r *changeRecorder) snapshot() (changed, removed []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.changed...), append([]string(nil), r.removed...)
}

func TestWatcher_ReportsDebouncedChanges(t *testing.T) {
	root := t.TempDir()
	rec := &changeRecorder{}

	w, err := NewWatcher(root, rec.handle, WatcherOptions{Debounce: 50 * time.Millisecond})
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	// Two rapid writes should land in one batch.
	pathA := filepath.Join(root, "a.go")
	pathB := filepath.Join(root, "b.go")
	require.NoError(t, os.WriteFile(pathA, []byte("package a\n"), 0o644))
	require.NoError(t, os.WriteFile(pathB, []byte("package b\n"), 0o644))

	require.Eventually(t, func() bool {
		changed, _ := rec.snapshot()
		return len(changed) >= 2
	}, 3*time.Second, 10*time.Millisecond)

	changed, removed := rec.snapshot()
	assert.Contains(t, changed, pathA)
	assert.Contains(t, changed, pathB)
	assert.Empty(t, removed)
}

func TestWatcher_ReportsRemovals(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "gone.go")
	require.NoError(t, os.WriteFile(path, []byte("package gone\n"), 0o644))

	rec := &changeRecorder{}
	w, err := NewWatcher(root, rec.handle, WatcherOptions{Debounce: 50 * time.Millisecond})
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.NoError(t, os.Remove(path))

	require.Eventually(t, func() bool {
		_, removed := rec.snapshot()
		return len(removed) == 1
	}, 3*time.Second, 10*time.Millisecond)

	_, removed := rec.snapshot()
	assert.Equal(t, []string{path}, removed)
}

func TestWatcher_SkipsIgnoredPaths(t *testing.T) {
	root := t.TempDir()
	rec := &changeRecorder{}

	w, err := NewWatcher(root, rec.handle, WatcherOptions{
		Debounce: 50 * time.Millisecond,
		Ignore:   NewIgnoreRules([]string{"*.log"}),
	})
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.NoError(t, os.WriteFile(filepath.Join(root, "noise.log"), []byte("x"), 0o644))
	keep := filepath.Join(root, "keep.go")
	require.NoError(t, os.WriteFile(keep, []byte("package keep\n"), 0o644))

	require.Eventually(t, func() bool {
		changed, _ := rec.snapshot()
		return len(changed) >= 1
	}, 3*time.Second, 10*time.Millisecond)

	changed, _ := rec.snapshot()
	assert.Equal(t, []string{keep}, changed)
}

func TestWatcher_CloseIdempotent(t *testing.T) {
	w, err := NewWatcher(t.TempDir(), func(_, _ []string) {}, WatcherOptions{})
	require.NoError(t, err)

	assert.NoError(t, w.Close())
	assert.NoError(t, w.Close())
}
