package scanner

import (
	"fmt"

	"github.com/dshills/codescout/internal/pool"
	"github.com/dshills/codescout/pkg/types"
)

// TaskParseFile is the task type handled by the parse worker entry
// point.
const TaskParseFile = "parse_file"

// ParsePayload is the payload of a TaskParseFile task.
type ParsePayload struct {
	Path string
}

// FileParser turns one source file into code blocks.
type FileParser interface {
	Parse(path string) ([]types.CodeBlock, error)
}

// NewParseTaskHandler builds the worker entry point shared by every
// pool worker. It replies with exactly one TaskResult per task; an
// unrecognized task type is an error, not a panic.
func NewParseTaskHandler(p FileParser) pool.WorkerFunc {
	return func(task types.Task) types.TaskResult {
		switch task.Type {
		case TaskParseFile:
			payload, ok := task.Payload.(ParsePayload)
			if !ok {
				return types.TaskResult{Success: false, Error: fmt.Sprintf("invalid payload for %s task", TaskParseFile)}
			}
			blocks, err := p.Parse(payload.Path)
			if err != nil {
				return types.TaskResult{Success: false, Error: err.Error()}
			}
			return types.TaskResult{Success: true, Data: blocks}
		default:
			return types.TaskResult{Success: false, Error: fmt.Sprintf("Unknown task type: %s", task.Type)}
		}
	}
}
