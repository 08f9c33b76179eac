// File: internal/concurrency/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Concurrency primitives for hioload-devsupport. The EventLoop is the one
// designated execution context: all settings, routing and live reload state
// is touched only from tasks it runs, so none of that state needs locks.
package concurrency
