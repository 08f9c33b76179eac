// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package fake

import (
	"time"

	"github.com/momentics/hioload-devsupport/api"
)

// Executor queues tasks until the test runs them on its own goroutine,
// standing in for the owning execution context.
type Executor struct {
	tasks chan func()
}

var _ api.Executor = (*Executor)(nil)

// NewExecutor creates a manual executor.
func NewExecutor() *Executor {
	return &Executor{tasks: make(chan func(), 256)}
}

func (e *Executor) Submit(task func()) error {
	select {
	case e.tasks <- task:
		return nil
	default:
		return api.ErrQueueFull
	}
}

// RunNext waits up to timeout for one task and runs it.
func (e *Executor) RunNext(timeout time.Duration) bool {
	select {
	case task := <-e.tasks:
		task()
		return true
	case <-time.After(timeout):
		return false
	}
}

// Drain runs queued tasks, including ones they submit, until none remain.
func (e *Executor) Drain() int {
	n := 0
	for {
		select {
		case task := <-e.tasks:
			task()
			n++
		default:
			return n
		}
	}
}

// Pending returns the number of queued tasks.
func (e *Executor) Pending() int {
	return len(e.tasks)
}
