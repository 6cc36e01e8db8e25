package pool

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/process"

	"github.com/dshills/codescout/pkg/types"
)

// Defaults for pool options.
const (
	DefaultMaxQueueSize        = 100
	DefaultMemoryThresholdMB   = 1024
	DefaultHealthCheckInterval = 30 * time.Second
	DefaultStaleTaskTimeout    = 60 * time.Second
	DefaultShutdownTimeout     = 5 * time.Second
)

// MemorySampler reports current process memory usage in MB.
type MemorySampler func() (float64, error)

// Options configures a Pool. Zero values fall back to defaults.
type Options struct {
	MaxWorkers          int // default: NumCPU-1, minimum 1
	MaxQueueSize        int
	MemoryThresholdMB   int
	HealthCheckInterval time.Duration
	StaleTaskTimeout    time.Duration
	ShutdownTimeout     time.Duration
	Logger              *slog.Logger
	Sampler             MemorySampler // default: process RSS via gopsutil
}

// queueEntry pairs a task with its settlement channel. It is owned
// exclusively by the pool while queued or in flight.
type queueEntry struct {
	task    types.Task
	done    chan settlement
	settled bool
}

type settlement struct {
	data any
	err  error
}

// activeTask associates a busy worker with the entry it is running.
type activeTask struct {
	entry     *queueEntry
	startedAt time.Time
}

// Pool owns a fixed set of isolated workers processing tasks
// concurrently. Admission is gated synchronously on queue depth and
// process memory usage; failed or stale workers are replaced so the
// worker count invariant holds until shutdown.
//
// All bookkeeping (queue, idle set, active table) is mutated under a
// single mutex, so state transitions are serialized even though up to
// MaxWorkers computations run concurrently underneath.
type Pool struct {
	entry   WorkerFunc
	opts    Options
	log     *slog.Logger
	sampler MemorySampler

	mu       sync.Mutex
	queue    []*queueEntry
	idle     []*worker
	active   map[*worker]*activeTask
	draining bool
	nextID   int

	results     chan completion
	stop        chan struct{}
	drained     chan struct{}
	drainedOnce sync.Once
}

// New creates a pool and spawns its workers. The entry point is shared
// by every worker, including replacements.
func New(entry WorkerFunc, opts Options) *Pool {
	if opts.MaxWorkers <= 0 {
		opts.MaxWorkers = runtime.NumCPU() - 1
	}
	if opts.MaxWorkers < 1 {
		opts.MaxWorkers = 1
	}
	if opts.MaxQueueSize <= 0 {
		opts.MaxQueueSize = DefaultMaxQueueSize
	}
	if opts.MemoryThresholdMB <= 0 {
		opts.MemoryThresholdMB = DefaultMemoryThresholdMB
	}
	if opts.HealthCheckInterval <= 0 {
		opts.HealthCheckInterval = DefaultHealthCheckInterval
	}
	if opts.StaleTaskTimeout <= 0 {
		opts.StaleTaskTimeout = DefaultStaleTaskTimeout
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = DefaultShutdownTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Sampler == nil {
		opts.Sampler = processMemoryMB
	}

	p := &Pool{
		entry:   entry,
		opts:    opts,
		log:     opts.Logger,
		sampler: opts.Sampler,
		active:  make(map[*worker]*activeTask),
		results: make(chan completion),
		stop:    make(chan struct{}),
		drained: make(chan struct{}),
	}

	for i := 0; i < opts.MaxWorkers; i++ {
		p.spawnLocked()
	}

	go p.loop()
	go p.healthLoop()

	return p
}

// Execute submits a task and blocks until it settles. Admission is
// all-or-nothing: a rejection here means the task was never accepted.
// Cancelling ctx abandons the wait but does not recall work already
// dispatched to a worker; its eventual result is discarded.
func (p *Pool) Execute(ctx context.Context, task types.Task) (any, error) {
	p.mu.Lock()
	if p.draining {
		p.mu.Unlock()
		return nil, types.ErrShuttingDown
	}
	if len(p.queue) >= p.opts.MaxQueueSize {
		n := len(p.queue)
		p.mu.Unlock()
		return nil, fmt.Errorf("%w (%d/%d)", types.ErrQueueFull, n, p.opts.MaxQueueSize)
	}
	if usage, err := p.sampler(); err == nil && usage >= float64(p.opts.MemoryThresholdMB) {
		p.mu.Unlock()
		return nil, fmt.Errorf("%w: %.0fMB >= %dMB", types.ErrMemoryThreshold, usage, p.opts.MemoryThresholdMB)
	}

	entry := &queueEntry{task: task, done: make(chan settlement, 1)}
	p.queue = append(p.queue, entry)
	p.dispatchLocked()
	p.mu.Unlock()

	select {
	case s := <-entry.done:
		return s.data, s.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Status returns an observational snapshot. It has no side effects on
// pool state.
func (p *Pool) Status() types.PoolStatus {
	usage, err := p.sampler()
	if err != nil {
		usage = 0
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return types.PoolStatus{
		ActiveWorkers:     len(p.active),
		AvailableWorkers:  len(p.idle),
		QueueLength:       len(p.queue),
		MaxQueueSize:      p.opts.MaxQueueSize,
		MemoryThresholdMB: p.opts.MemoryThresholdMB,
		MemoryUsageMB:     usage,
	}
}

// Shutdown drains the pool: queued tasks are rejected immediately,
// in-flight tasks get up to ShutdownTimeout to settle naturally, then
// every worker is terminated and internal state cleared. Idempotent.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if p.draining {
		p.mu.Unlock()
		return
	}
	p.draining = true

	queued := p.queue
	p.queue = nil
	for _, entry := range queued {
		p.settleLocked(entry, nil, types.ErrShuttingDown)
	}
	if len(p.active) == 0 {
		p.drainedOnce.Do(func() { close(p.drained) })
	}
	inFlight := len(p.active)
	p.mu.Unlock()

	if inFlight > 0 {
		p.log.Info("worker pool draining", "in_flight", inFlight, "timeout", p.opts.ShutdownTimeout)
	}

	select {
	case <-p.drained:
	case <-time.After(p.opts.ShutdownTimeout):
		p.log.Warn("worker pool shutdown timed out; terminating workers", "timeout", p.opts.ShutdownTimeout)
	}

	p.mu.Lock()
	for w, at := range p.active {
		p.settleLocked(at.entry, nil, fmt.Errorf("%w: worker terminated", types.ErrShuttingDown))
		w.abandoned = true
		close(w.quit)
		delete(p.active, w)
	}
	for _, w := range p.idle {
		close(w.quit)
	}
	p.idle = nil
	p.mu.Unlock()

	close(p.stop)
}

// loop is the pool's single event handler: every completion flows
// through here, so queue and worker-set mutations stay serialized.
func (p *Pool) loop() {
	for {
		select {
		case <-p.stop:
			return
		case c := <-p.results:
			p.handleCompletion(c)
		}
	}
}

func (p *Pool) handleCompletion(c completion) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if c.worker.abandoned {
		// A replaced worker finished late; its task was already
		// rejected, so the result is discarded.
		p.log.Debug("discarding result from replaced worker", "worker", c.worker.id)
		return
	}

	at, ok := p.active[c.worker]
	if ok {
		delete(p.active, c.worker)
		if c.result.Success {
			p.settleLocked(at.entry, c.result.Data, nil)
		} else {
			p.settleLocked(at.entry, nil, fmt.Errorf("%s", c.result.Error))
		}
	}

	if c.fault {
		p.log.Error("worker fault; spawning replacement", "worker", c.worker.id, "error", c.result.Error)
		c.worker.abandoned = true
		close(c.worker.quit)
		p.spawnLocked()
	} else {
		p.idle = append(p.idle, c.worker)
	}

	if p.draining && len(p.active) == 0 {
		p.drainedOnce.Do(func() { close(p.drained) })
	}

	p.dispatchLocked()
}

// dispatchLocked pairs queued tasks with idle workers, one dispatch
// per idle worker, FIFO, until either side is exhausted.
func (p *Pool) dispatchLocked() {
	if p.draining {
		return
	}
	for len(p.queue) > 0 && len(p.idle) > 0 {
		w := p.idle[0]
		p.idle = p.idle[1:]
		entry := p.queue[0]
		p.queue = p.queue[1:]
		p.active[w] = &activeTask{entry: entry, startedAt: time.Now()}
		// The task channel is buffered and the worker is idle, so this
		// never blocks while the lock is held.
		w.tasks <- entry.task
	}
}

// spawnLocked creates a worker and adds it to the idle set. No new
// workers are spawned once draining.
func (p *Pool) spawnLocked() {
	if p.draining {
		return
	}
	p.nextID++
	w := newWorker(p.nextID)
	p.idle = append(p.idle, w)
	go w.run(p.entry, p.results)
}

func (p *Pool) settleLocked(entry *queueEntry, data any, err error) {
	if entry.settled {
		return
	}
	entry.settled = true
	entry.done <- settlement{data: data, err: err}
}

// healthLoop periodically logs pool status and replaces workers that
// have held a task beyond the stale-task timeout.
func (p *Pool) healthLoop() {
	ticker := time.NewTicker(p.opts.HealthCheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			p.checkHealth()
		}
	}
}

func (p *Pool) checkHealth() {
	now := time.Now()

	p.mu.Lock()
	stale := make([]*worker, 0)
	for w, at := range p.active {
		if now.Sub(at.startedAt) >= p.opts.StaleTaskTimeout {
			stale = append(stale, w)
		}
	}
	for _, w := range stale {
		at := p.active[w]
		held := now.Sub(at.startedAt)
		p.log.Warn("worker task stale; replacing worker",
			"worker", w.id,
			"task_type", at.entry.task.Type,
			"held", held,
			"timeout", p.opts.StaleTaskTimeout,
		)
		p.settleLocked(at.entry, nil, fmt.Errorf("%w after %s", types.ErrTaskTimeout, held.Round(time.Millisecond)))
		delete(p.active, w)
		// Goroutines cannot be preempted; the old worker is abandoned
		// and retires itself after its current call returns.
		w.abandoned = true
		close(w.quit)
		p.spawnLocked()
	}
	active, available, queued := len(p.active), len(p.idle), len(p.queue)
	p.dispatchLocked()
	p.mu.Unlock()

	p.log.Debug("worker pool health",
		"active", active,
		"available", available,
		"queued", queued,
		"replaced", len(stale),
	)
}

// processMemoryMB samples the current process RSS in MB.
func processMemoryMB() (float64, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return 0, err
	}
	info, err := proc.MemoryInfo()
	if err != nil {
		return 0, err
	}
	return float64(info.RSS) / (1024 * 1024), nil
}
