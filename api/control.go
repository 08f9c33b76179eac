// File: api/control.go
// Package api defines Control interface.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// Control exposes the runtime view of the dev-support controller:
// the current settings snapshot, counters and debug probes.
type Control interface {
	GetConfig() map[string]any
	SetConfig(cfg map[string]any) error
	Stats() map[string]any
	IncMetric(key string)
	RegisterDebugProbe(name string, fn func() any)
}
