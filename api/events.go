// File: api/events.go
// Package api defines the named events broadcast to the running application.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// Event names dispatched through HostBridge.DispatchEvent.
const (
	EventToggleElementInspector = "toggleElementInspector"
	EventShowFPS                = "showFPS"
)
