package pool

import (
	"fmt"

	"github.com/dshills/codescout/pkg/types"
)

// WorkerFunc is the worker entry point. It receives one task and must
// return exactly one result. Implementations handling multiple task
// types should reply {Success: false, Error: "Unknown task type: <type>"}
// for types they do not recognize.
type WorkerFunc func(task types.Task) types.TaskResult

// completion is the message a worker sends back to the pool after
// finishing a task. fault marks a worker crash (panic) rather than an
// ordinary failed result.
type completion struct {
	worker *worker
	result types.TaskResult
	fault  bool
}

// worker is an isolated execution unit. It owns a goroutine that
// communicates with the pool exclusively via message passing: tasks in
// on its private channel, completions out on the pool's results
// channel. No pool state is touched from inside a worker.
type worker struct {
	id    int
	tasks chan types.Task
	quit  chan struct{}

	// abandoned is set by the pool, under the pool's lock, when the
	// worker is replaced after holding a task too long. The worker
	// goroutine never reads it.
	abandoned bool
}

func newWorker(id int) *worker {
	return &worker{
		id:    id,
		tasks: make(chan types.Task, 1),
		quit:  make(chan struct{}),
	}
}

// run processes tasks until the worker is told to quit, its task
// channel is closed, or it faults. A fault ends the goroutine; the
// pool spawns a replacement.
func (w *worker) run(entry WorkerFunc, results chan<- completion) {
	for {
		select {
		case <-w.quit:
			return
		case task, ok := <-w.tasks:
			if !ok {
				return
			}
			result, fault := invoke(entry, task)
			select {
			case results <- completion{worker: w, result: result, fault: fault}:
			case <-w.quit:
				return
			}
			if fault {
				return
			}
		}
	}
}

// invoke runs the entry point and converts a panic into a fault so a
// misbehaving task cannot take down the host process.
func invoke(entry WorkerFunc, task types.Task) (result types.TaskResult, fault bool) {
	defer func() {
		if r := recover(); r != nil {
			result = types.TaskResult{
				Success: false,
				Error:   fmt.Sprintf("worker crashed: %v", r),
			}
			fault = true
		}
	}()
	return entry(task), false
}
