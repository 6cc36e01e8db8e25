package types

import "errors"

// Pipeline errors. The capitalized messages are part of the public
// contract: external observers match on them verbatim.
var (
	// ErrQueueFull is returned synchronously when the pool's queue is
	// at capacity. Non-fatal; callers may back off and retry.
	ErrQueueFull = errors.New("Worker pool queue is full")

	// ErrMemoryThreshold is returned synchronously when sampled process
	// memory meets or exceeds the configured threshold. No task is
	// dispatched in this case.
	ErrMemoryThreshold = errors.New("Memory usage too high")

	// ErrShuttingDown rejects any task submitted during, or queued at
	// the start of, pool shutdown.
	ErrShuttingDown = errors.New("worker pool is shutting down")

	// ErrTaskTimeout rejects a task held by a worker beyond the
	// stale-task timeout. The pool replaces the worker.
	ErrTaskTimeout = errors.New("worker task timed out")

	// ErrCancelled rejects a scan once the cancellation signal is
	// observed. No partial scan result is returned.
	ErrCancelled = errors.New("Indexing cancelled")
)
