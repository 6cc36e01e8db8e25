// Package pool implements a resource-bounded worker pool with
// admission control and self-healing.
//
// Workers are isolated execution units: each one is a goroutine with a
// private task channel, exchanging messages with the pool and never
// sharing memory with other workers. Up to MaxWorkers tasks run
// concurrently; all pool bookkeeping is serialized under one lock.
//
// # Admission Control
//
// Execute gates synchronously on three conditions, in order: the pool
// draining (ErrShuttingDown), queue depth (ErrQueueFull), and sampled
// process memory (ErrMemoryThreshold). Acceptance is all-or-nothing: a
// rejected task was never enqueued, an accepted task always settles.
//
// # Self-Healing
//
// A worker that panics rejects its current task and is replaced by a
// fresh worker running the same entry point. A periodic health check
// rejects tasks held beyond StaleTaskTimeout and replaces their
// workers. Goroutines cannot be preempted, so replacement of a stale
// worker is cooperative: the old goroutine is abandoned and retires
// itself once its current call returns; any late result it produces is
// discarded. The worker-count invariant (active + available ==
// MaxWorkers) holds through every failure path until shutdown.
//
// # Shutdown
//
// Shutdown rejects all queued tasks with ErrShuttingDown, waits up to
// ShutdownTimeout for in-flight tasks to settle naturally, then
// terminates every worker. It is idempotent.
package pool
