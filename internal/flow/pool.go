package flow

import (
	"context"
	"log"
	"sync"

	"github.com/taskweave/taskweave/pkg/models"
)

// FlowResult is the outcome of one task's flow in a batch run.
type FlowResult struct {
	TaskID string
	Task   *models.Task
	Err    error
}

// RunMany runs flows for the given task IDs with bounded concurrency. Every
// ID gets a result; one task's failure never stops the others. Results are
// returned in input order.
func (e *Engine) RunMany(ctx context.Context, taskIDs []string) []FlowResult {
	results := make([]FlowResult, len(taskIDs))
	sem := make(chan struct{}, e.maxConcurrent)

	var wg sync.WaitGroup
	for i, id := range taskIDs {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[i] = FlowResult{TaskID: id, Err: ctx.Err()}
				return
			}

			task, err := e.RunFlow(ctx, id)
			if err != nil {
				log.Printf("[flow] task %s flow failed: %v", id, err)
			}
			results[i] = FlowResult{TaskID: id, Task: task, Err: err}
		}(i, id)
	}
	wg.Wait()

	return results
}
