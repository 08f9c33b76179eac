// File: store/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package store provides durable api.SettingsStore backends.
//
// FileStore keeps every namespace in one JSON document guarded by an
// advisory lock and watches it for edits made by other processes.
// SQLiteStore keeps one row per namespace and detects foreign commits
// through PRAGMA data_version. Neither signals its own Save.
package store
