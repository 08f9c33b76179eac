// Package api
// Author: momentics
//
// Remote-debugging executor capability.

package api

// DebugExecutorProvider is an optional capability registered by a companion
// module that ships the remote-debugging executor. A nil provider means
// remote debugging is unavailable.
type DebugExecutorProvider interface {
	DebugExecutorClass() string
}

// DebugExecutorName adapts a constant class name to DebugExecutorProvider.
type DebugExecutorName string

func (n DebugExecutorName) DebugExecutorClass() string { return string(n) }
