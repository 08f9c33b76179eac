// control/hotreload.go
// Reload observers notified each time the controller reloads the host.

package control

import "sync"

// ReloadHooks is a registry of reload listeners.
type ReloadHooks struct {
	mu    sync.Mutex
	hooks []func()
}

// Register adds a new reload listener.
func (rh *ReloadHooks) Register(fn func()) {
	rh.mu.Lock()
	rh.hooks = append(rh.hooks, fn)
	rh.mu.Unlock()
}

// Trigger invokes all hooks synchronously in registration order.
func (rh *ReloadHooks) Trigger() {
	rh.mu.Lock()
	hooks := append([]func(){}, rh.hooks...)
	rh.mu.Unlock()
	for _, fn := range hooks {
		fn()
	}
}

// Reset drops every registered hook.
func (rh *ReloadHooks) Reset() {
	rh.mu.Lock()
	rh.hooks = nil
	rh.mu.Unlock()
}
