// File: internal/concurrency/eventloop.go
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// EventLoop is the single serialized execution context that owns all
// dev-support state. Tasks run one at a time in FIFO submission order on the
// goroutine executing Run. Events originating elsewhere (store notifications,
// transport frames, poll completions) are re-dispatched here via Submit.

package concurrency

import (
	"log"
	"sync"

	"github.com/eapache/queue"

	"github.com/momentics/hioload-devsupport/api"
)

// TaskFunc is a unit of work run on the loop.
type TaskFunc func()

// EventLoop implements api.Executor over an unbounded-by-default ring queue.
type EventLoop struct {
	mu       sync.Mutex
	cond     *sync.Cond
	tasks    *queue.Queue // pending TaskFunc values
	capacity int          // 0 means unbounded
	closed   bool
	running  bool
	doneCh   chan struct{} // closed after Run() exits
	logf     func(format string, args ...any)
}

var _ api.Executor = (*EventLoop)(nil)

// NewEventLoop creates a loop. capacity bounds the number of pending tasks;
// zero or negative means unbounded.
func NewEventLoop(capacity int) *EventLoop {
	el := &EventLoop{
		tasks:    queue.New(),
		capacity: capacity,
		doneCh:   make(chan struct{}),
		logf:     log.Printf,
	}
	el.cond = sync.NewCond(&el.mu)
	return el
}

// SetLogf replaces the logger used for recovered task panics.
func (el *EventLoop) SetLogf(fn func(format string, args ...any)) {
	el.mu.Lock()
	el.logf = fn
	el.mu.Unlock()
}

// Submit enqueues a task. Safe to call from any goroutine, including from a
// task running on the loop.
func (el *EventLoop) Submit(task func()) error {
	if task == nil {
		return api.ErrInvalidArgument
	}
	el.mu.Lock()
	defer el.mu.Unlock()
	if el.closed {
		return api.ErrClosed
	}
	if el.capacity > 0 && el.tasks.Length() >= el.capacity {
		return api.ErrQueueFull
	}
	el.tasks.Add(TaskFunc(task))
	el.cond.Signal()
	return nil
}

// Call submits task and blocks until it has run. It must not be invoked from
// a task already running on the loop, and requires Run to be active.
func (el *EventLoop) Call(task func()) error {
	done := make(chan struct{})
	if err := el.Submit(func() {
		defer close(done)
		task()
	}); err != nil {
		return err
	}
	<-done
	return nil
}

// Pending returns the number of queued tasks.
func (el *EventLoop) Pending() int {
	el.mu.Lock()
	defer el.mu.Unlock()
	return el.tasks.Length()
}

// Run executes tasks until Stop is called. Tasks queued before Stop are
// drained before Run returns.
func (el *EventLoop) Run() {
	el.mu.Lock()
	if el.running || el.closed {
		el.mu.Unlock()
		return
	}
	el.running = true
	el.mu.Unlock()
	defer close(el.doneCh)

	for {
		el.mu.Lock()
		for el.tasks.Length() == 0 && !el.closed {
			el.cond.Wait()
		}
		if el.tasks.Length() == 0 {
			el.mu.Unlock()
			return
		}
		task := el.tasks.Remove().(TaskFunc)
		el.mu.Unlock()

		el.safeExecute(task)
	}
}

// Stop refuses new tasks, lets Run drain what is queued and waits for it to
// exit. Calling Stop on a loop that never ran returns immediately.
func (el *EventLoop) Stop() {
	el.mu.Lock()
	el.closed = true
	running := el.running
	el.cond.Broadcast()
	el.mu.Unlock()

	if running {
		<-el.doneCh
	}
}

func (el *EventLoop) safeExecute(task TaskFunc) {
	defer func() {
		if r := recover(); r != nil {
			el.mu.Lock()
			logf := el.logf
			el.mu.Unlock()
			logf("[devsupport] task panic recovered: %v", r)
		}
	}()
	task()
}
