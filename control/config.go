// control/config.go
// Author: momentics <momentics@gmail.com>
//
// In-memory settings store with snapshot reads and change listeners.

package control

import (
	"context"
	"sync"

	"github.com/momentics/hioload-devsupport/api"
)

// ConfigStore is a dynamic key/value map with snapshot reads and listener
// support. It implements api.SettingsStore for hosts without durable storage
// and for tests: Save is the engine's own write and stays silent, SetConfig
// and Replace model edits made by someone else and notify listeners.
type ConfigStore struct {
	mu        sync.RWMutex
	config    map[string]any
	listeners map[int]func()
	nextID    int
}

var _ api.SettingsStore = (*ConfigStore)(nil)

// NewConfigStore initializes a new config store with empty data.
func NewConfigStore() *ConfigStore {
	return &ConfigStore{
		config:    make(map[string]any),
		listeners: make(map[int]func()),
	}
}

// GetSnapshot returns a copy of all config values.
func (cs *ConfigStore) GetSnapshot() map[string]any {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	copy := make(map[string]any, len(cs.config))
	for k, v := range cs.config {
		copy[k] = v
	}
	return copy
}

// SetConfig merges new values as an external edit and notifies listeners.
// A nil value removes the key.
func (cs *ConfigStore) SetConfig(newCfg map[string]any) {
	cs.mu.Lock()
	for k, v := range newCfg {
		if v == nil {
			delete(cs.config, k)
			continue
		}
		cs.config[k] = v
	}
	cs.mu.Unlock()
	cs.dispatchReload()
}

// Replace swaps the whole map as an external edit and notifies listeners.
func (cs *ConfigStore) Replace(cfg map[string]any) {
	cs.mu.Lock()
	cs.config = make(map[string]any, len(cfg))
	for k, v := range cfg {
		cs.config[k] = v
	}
	cs.mu.Unlock()
	cs.dispatchReload()
}

// OnReload registers a listener hook called on external changes.
func (cs *ConfigStore) OnReload(fn func()) (stop func()) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	id := cs.nextID
	cs.nextID++
	cs.listeners[id] = fn
	return func() {
		cs.mu.Lock()
		delete(cs.listeners, id)
		cs.mu.Unlock()
	}
}

// Load implements api.SettingsStore.
func (cs *ConfigStore) Load(ctx context.Context) (map[string]any, error) {
	return cs.GetSnapshot(), nil
}

// Save implements api.SettingsStore. It does not notify listeners.
func (cs *ConfigStore) Save(ctx context.Context, settings map[string]any) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.config = make(map[string]any, len(settings))
	for k, v := range settings {
		cs.config[k] = v
	}
	return nil
}

// Watch implements api.SettingsStore.
func (cs *ConfigStore) Watch(fn func()) func() {
	return cs.OnReload(fn)
}

// Close implements api.SettingsStore.
func (cs *ConfigStore) Close() error {
	cs.mu.Lock()
	cs.listeners = make(map[int]func())
	cs.mu.Unlock()
	return nil
}

// dispatchReload invokes all listeners synchronously, outside the lock.
func (cs *ConfigStore) dispatchReload() {
	cs.mu.RLock()
	fns := make([]func(), 0, len(cs.listeners))
	for _, fn := range cs.listeners {
		fns = append(fns, fn)
	}
	cs.mu.RUnlock()
	for _, fn := range fns {
		fn()
	}
}
