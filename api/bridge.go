// File: api/bridge.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Host application surface consumed by the dev-support core.

package api

import "net/url"

// HostBridge is the running application as seen by the dev-support core.
type HostBridge interface {
	// Reload reinitializes the application from its bundle URL.
	Reload()

	// BundleURL returns the bundle location, including its "hot" query flag.
	BundleURL() *url.URL
	SetBundleURL(u *url.URL)

	// ScriptURL returns where the currently running script was loaded from,
	// or nil when no script has been loaded.
	ScriptURL() *url.URL

	// ExecutorClass returns the configured executor name ("" for the default).
	ExecutorClass() string
	SetExecutorClass(name string)

	IsProfiling() bool
	StartProfiling()
	// StopProfiling stops the profiler and passes the captured trace to done.
	StopProfiling(done func(trace []byte))

	// DispatchEvent broadcasts a named event to the running application.
	DispatchEvent(name string, body any)
}

// TraceReporter receives profiler traces captured on profiling stop.
type TraceReporter interface {
	ReportTrace(trace []byte)
}

// Alerter surfaces explanatory messages to the developer.
type Alerter interface {
	Alert(title, message string)
}
