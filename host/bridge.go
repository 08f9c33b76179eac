// File: host/bridge.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Reference api.HostBridge for Go host processes.

package host

import (
	"bytes"
	"log"
	"net/url"
	"runtime/pprof"
	"sync"

	"github.com/momentics/hioload-devsupport/api"
)

// BridgeOption customizes a Bridge.
type BridgeOption func(*Bridge)

// WithReloadFunc sets the host's reload routine. It runs after the script URL
// has been switched to the current bundle URL.
func WithReloadFunc(fn func()) BridgeOption {
	return func(b *Bridge) { b.onReload = fn }
}

// WithEventSink receives events dispatched to the application.
func WithEventSink(fn func(name string, body any)) BridgeOption {
	return func(b *Bridge) { b.onEvent = fn }
}

// WithLogf replaces the logger.
func WithLogf(fn func(format string, args ...any)) BridgeOption {
	return func(b *Bridge) { b.logf = fn }
}

// Bridge keeps the host-side state the dev-support core reads and writes and
// profiles the process CPU with runtime/pprof.
type Bridge struct {
	mu        sync.Mutex
	bundle    *url.URL
	script    *url.URL
	executor  string
	reloads   int
	profiling bool
	profile   bytes.Buffer

	onReload func()
	onEvent  func(name string, body any)
	logf     func(format string, args ...any)
}

var _ api.HostBridge = (*Bridge)(nil)

// NewBridge creates a bridge for the bundle at bundle; nil means offline.
func NewBridge(bundle *url.URL, opts ...BridgeOption) *Bridge {
	b := &Bridge{bundle: cloneURL(bundle), logf: log.Printf}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func cloneURL(u *url.URL) *url.URL {
	if u == nil {
		return nil
	}
	c := *u
	if u.User != nil {
		user := *u.User
		c.User = &user
	}
	return &c
}

// Reload loads the script from the current bundle URL.
func (b *Bridge) Reload() {
	b.mu.Lock()
	b.script = cloneURL(b.bundle)
	b.reloads++
	fn := b.onReload
	b.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Reloads returns how many reloads were requested.
func (b *Bridge) Reloads() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.reloads
}

func (b *Bridge) BundleURL() *url.URL {
	b.mu.Lock()
	defer b.mu.Unlock()
	return cloneURL(b.bundle)
}

func (b *Bridge) SetBundleURL(u *url.URL) {
	b.mu.Lock()
	b.bundle = cloneURL(u)
	b.mu.Unlock()
}

func (b *Bridge) ScriptURL() *url.URL {
	b.mu.Lock()
	defer b.mu.Unlock()
	return cloneURL(b.script)
}

func (b *Bridge) ExecutorClass() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.executor
}

func (b *Bridge) SetExecutorClass(name string) {
	b.mu.Lock()
	b.executor = name
	b.mu.Unlock()
}

func (b *Bridge) IsProfiling() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.profiling
}

// StartProfiling starts a CPU profile. Only one CPU profile can run per
// process; a failure is logged and profiling stays off.
func (b *Bridge) StartProfiling() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.profiling {
		return
	}
	b.profile.Reset()
	if err := pprof.StartCPUProfile(&b.profile); err != nil {
		b.logf("[host] start profiling: %v", err)
		return
	}
	b.profiling = true
}

// StopProfiling stops the CPU profile and hands the encoded profile to done.
func (b *Bridge) StopProfiling(done func(trace []byte)) {
	b.mu.Lock()
	if !b.profiling {
		b.mu.Unlock()
		return
	}
	pprof.StopCPUProfile()
	b.profiling = false
	trace := append([]byte(nil), b.profile.Bytes()...)
	b.profile.Reset()
	b.mu.Unlock()
	if done != nil {
		done(trace)
	}
}

func (b *Bridge) DispatchEvent(name string, body any) {
	b.mu.Lock()
	fn := b.onEvent
	b.mu.Unlock()
	if fn != nil {
		fn(name, body)
	}
}
