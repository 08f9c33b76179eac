// File: facade/options.go
// Functional options injecting controller collaborators.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package facade

import "github.com/momentics/hioload-devsupport/api"

// Option customizes controller initialization.
type Option func(*options)

type options struct {
	store     api.SettingsStore
	executor  api.Executor
	poller    api.Poller
	channel   api.MessageChannel
	alerter   api.Alerter
	reporter  api.TraceReporter
	debugExec api.DebugExecutorProvider
	logf      func(format string, args ...any)
}

// WithStore supplies the settings store; the controller does not close it.
func WithStore(s api.SettingsStore) Option {
	return func(o *options) { o.store = s }
}

// WithExecutor replaces the owning execution context. Every state change is
// submitted to it; the controller does not start or stop it.
func WithExecutor(e api.Executor) Option {
	return func(o *options) { o.executor = e }
}

// WithPoller replaces the live reload HTTP poller.
func WithPoller(p api.Poller) Option {
	return func(o *options) { o.poller = p }
}

// WithChannel replaces the websocket proxy singleton.
func WithChannel(c api.MessageChannel) Option {
	return func(o *options) { o.channel = c }
}

// WithAlerter sets the collaborator showing explanatory messages.
func WithAlerter(a api.Alerter) Option {
	return func(o *options) { o.alerter = a }
}

// WithTraceReporter receives profiler traces.
func WithTraceReporter(r api.TraceReporter) Option {
	return func(o *options) { o.reporter = r }
}

// WithDebugExecutorProvider registers the remote-debugging capability.
func WithDebugExecutorProvider(p api.DebugExecutorProvider) Option {
	return func(o *options) { o.debugExec = p }
}

// WithLogf replaces the logger of every component.
func WithLogf(fn func(format string, args ...any)) Option {
	return func(o *options) { o.logf = fn }
}
