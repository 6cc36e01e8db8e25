package types

// Task is an opaque unit of work sent to a pool worker.
// A Task is immutable once enqueued; the payload is interpreted
// by the worker entry point based on Type.
type Task struct {
	Type    string
	Payload any
}

// TaskResult is the sole response shape returned by a worker.
// When Success is false, Error carries a human-readable message
// and Data is nil.
type TaskResult struct {
	Success bool
	Data    any
	Error   string
}

// PoolStatus is a read-only snapshot of worker pool state.
// ActiveWorkers + AvailableWorkers equals the configured worker
// count at all times outside of shutdown.
type PoolStatus struct {
	ActiveWorkers     int
	AvailableWorkers  int
	QueueLength       int
	MaxQueueSize      int
	MemoryThresholdMB int
	MemoryUsageMB     float64
}
