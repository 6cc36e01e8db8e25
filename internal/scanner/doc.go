// Package scanner drives the indexing pipeline: it enumerates files
// under a root, filters them through gitignore-style rules, parses
// candidates through the worker pool, and flushes accumulated code
// blocks to the embedder and vector store in batches.
//
// Unchanged files are skipped via the per-file hash cache. A single
// file's parse failure is logged and isolated; an embedding or store
// failure aborts the scan, because the index would otherwise silently
// miss blocks. Cancellation is cooperative: the signal is polled
// before each file submission, never mid-batch, and a cancelled scan
// returns no partial result.
//
// The package also provides a debounced fsnotify watcher for
// incremental re-indexing after the initial scan.
package scanner
