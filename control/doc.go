// Package control
// Author: momentics <momentics@gmail.com>
//
// Runtime state handling for hioload-devsupport: an in-memory settings store
// with change listeners, counters, debug probes and reload observers.
//
// Provides concurrent-safe primitives including:
//   - Snapshot reads of the settings map and external-edit notification
//   - Metrics counters for protocol, persistence and live reload activity
//   - Debug probe registration and state export
//   - Reload observers
//
// This package is cross-platform and build-tag-partitioned as needed.
package control
