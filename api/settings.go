// File: api/settings.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Durable developer-settings storage contract.

package api

import "context"

// SettingsStore persists the whole developer settings map under a single
// namespaced key. It is pure data access: no change detection, no handlers.
type SettingsStore interface {
	// Load returns the persisted settings map, or an empty map when none exists.
	Load(ctx context.Context) (map[string]any, error)

	// Save replaces the persisted map and flushes it to durable storage.
	Save(ctx context.Context, settings map[string]any) error

	// Watch registers fn as the "preferences changed" signal. fn may be
	// invoked from any goroutine. The returned func unsubscribes.
	Watch(fn func()) (stop func())

	// Close releases resources held by the store.
	Close() error
}
