// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package fake

import (
	"net/url"
	"sync"

	"github.com/momentics/hioload-devsupport/api"
)

// Event is one DispatchEvent call recorded by Bridge.
type Event struct {
	Name string
	Body any
}

// Bridge is a recording api.HostBridge.
type Bridge struct {
	mu           sync.Mutex
	bundle       *url.URL
	script       *url.URL
	executor     string
	profiling    bool
	trace        []byte
	reloads      int
	executorSets int
	events       []Event
	onReload     func()
}

var _ api.HostBridge = (*Bridge)(nil)

// NewBridge creates a bridge serving its bundle from bundleURL. An empty
// string leaves the bundle unset.
func NewBridge(bundleURL string) *Bridge {
	b := &Bridge{trace: []byte("trace")}
	if bundleURL != "" {
		b.bundle = MustParse(bundleURL)
	}
	return b
}

// MustParse parses raw or panics; for test fixtures only.
func MustParse(raw string) *url.URL {
	u, err := url.Parse(raw)
	if err != nil {
		panic(err)
	}
	return u
}

func (b *Bridge) Reload() {
	b.mu.Lock()
	b.reloads++
	fn := b.onReload
	b.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// OnReload installs a callback run after each Reload.
func (b *Bridge) OnReload(fn func()) {
	b.mu.Lock()
	b.onReload = fn
	b.mu.Unlock()
}

// Reloads returns the number of Reload calls.
func (b *Bridge) Reloads() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.reloads
}

func (b *Bridge) BundleURL() *url.URL {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.bundle == nil {
		return nil
	}
	u := *b.bundle
	return &u
}

func (b *Bridge) SetBundleURL(u *url.URL) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bundle = u
}

func (b *Bridge) ScriptURL() *url.URL {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.script
}

// SetScriptURL records where the running script was loaded from.
func (b *Bridge) SetScriptURL(raw string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if raw == "" {
		b.script = nil
		return
	}
	b.script = MustParse(raw)
}

func (b *Bridge) ExecutorClass() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.executor
}

func (b *Bridge) SetExecutorClass(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.executor = name
	b.executorSets++
}

// ExecutorSets returns the number of SetExecutorClass calls.
func (b *Bridge) ExecutorSets() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.executorSets
}

func (b *Bridge) IsProfiling() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.profiling
}

func (b *Bridge) StartProfiling() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.profiling = true
}

func (b *Bridge) StopProfiling(done func(trace []byte)) {
	b.mu.Lock()
	b.profiling = false
	trace := b.trace
	b.mu.Unlock()
	done(trace)
}

func (b *Bridge) DispatchEvent(name string, body any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, Event{Name: name, Body: body})
}

// Events returns a copy of dispatched events.
func (b *Bridge) Events() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Event(nil), b.events...)
}
