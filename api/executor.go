// Package api
// Author: momentics
//
// Executor contract for the single serialized execution context.

package api

// Executor runs tasks one at a time, in submission order, on the context that
// owns all controller state. Callbacks arriving on other goroutines must be
// re-dispatched through Submit before touching that state.
type Executor interface {
	// Submit schedules task for execution.
	Submit(task func()) error
}
