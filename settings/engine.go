// File: settings/engine.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Engine owns the canonical in-memory developer settings, reconciles them
// against externally edited persisted state, applies typed setters and
// persists every mutation. All methods must run on the owning execution
// context (see internal/concurrency.EventLoop); the engine holds no locks.

package settings

import (
	"context"
	"log"

	"github.com/momentics/hioload-devsupport/api"
	"github.com/momentics/hioload-devsupport/control"
	"github.com/momentics/hioload-devsupport/host"
	"github.com/momentics/hioload-devsupport/internal/normalize"
)

// LiveReloader is the live reload loop as seen by the engine.
type LiveReloader interface {
	// SetEnabled records the setting; true starts polling, false cancels.
	SetEnabled(enabled bool)
	// URL returns the derived on-change endpoint, "" when unknown.
	URL() string
}

// Config carries the engine's optional collaborators.
type Config struct {
	// ExecutorOverride is captured once at construction and shadows the
	// persisted executorClass until a setter changes the executor.
	ExecutorOverride string
	DebugExecutor    api.DebugExecutorProvider
	Reporter         api.TraceReporter
	Metrics          *control.MetricsRegistry
	// Reload requests a host reload; defaults to the bridge's Reload.
	Reload func()
	Logf   func(format string, args ...any)
}

// Engine is the settings synchronization engine.
type Engine struct {
	store  api.SettingsStore
	bridge api.HostBridge
	live   LiveReloader
	cfg    Config

	settings Snapshot
	toggles  map[string]*ToggleItem

	shakeToShow       bool
	profilingEnabled  bool
	liveReloadEnabled bool
	hotLoadingEnabled bool
	showFPS           bool
	executorClass     string
	executorOverride  string
}

// NewEngine creates an engine seeded from the store. A failed load leaves the
// snapshot empty; settings are convenience state, never fatal.
func NewEngine(store api.SettingsStore, bridge api.HostBridge, live LiveReloader, cfg Config) *Engine {
	if cfg.Logf == nil {
		cfg.Logf = log.Printf
	}
	if cfg.Reload == nil {
		cfg.Reload = bridge.Reload
	}
	e := &Engine{
		store:            store,
		bridge:           bridge,
		live:             live,
		cfg:              cfg,
		settings:         Snapshot{},
		toggles:          make(map[string]*ToggleItem),
		shakeToShow:      true,
		executorOverride: cfg.ExecutorOverride,
	}
	loaded, err := store.Load(context.Background())
	if err != nil {
		cfg.Logf("[settings] load failed, starting empty: %v", err)
	} else {
		e.settings = Snapshot(loaded).Clone()
	}
	return e
}

// Snapshot returns a copy of the current settings.
func (e *Engine) Snapshot() Snapshot {
	return e.settings.Clone()
}

// Get returns one setting value, nil when unset.
func (e *Engine) Get(key string) any {
	return e.settings[key]
}

// Register makes item visible to reconciliation and applies any value already
// present in the snapshot.
func (e *Engine) Register(item *ToggleItem) {
	if item == nil || item.Key == "" {
		return
	}
	e.toggles[item.Key] = item
	item.invoke = func() { e.Set(item.Key, !item.Selected()) }
	if v, ok := e.settings[item.Key]; ok {
		item.apply(v)
	}
}

// Toggle flips the registered toggle bound to key through Set.
func (e *Engine) Toggle(key string) error {
	item, ok := e.toggles[key]
	if !ok {
		return api.ErrNotFound
	}
	e.Set(key, !item.Selected())
	return nil
}

// Reload re-fetches the store and reconciles. It is the handler for the
// store's "preferences changed" signal.
func (e *Engine) Reload() {
	loaded, err := e.store.Load(context.Background())
	if err != nil {
		e.cfg.Logf("[settings] reload from store failed: %v", err)
		return
	}
	e.Reconcile(loaded)
}

// Reconcile replaces the in-memory map wholesale with external, fires
// handlers for toggles whose values changed, then re-applies every typed
// setter so their side effects run on each reconcile.
func (e *Engine) Reconcile(external map[string]any) {
	e.settings = Snapshot(external).Clone()
	if e.cfg.Metrics != nil {
		e.cfg.Metrics.Inc(control.MetricReconciles)
	}

	for key, item := range e.toggles {
		if v, ok := e.settings[key]; ok {
			item.apply(v)
		}
	}

	e.SetShakeToShow(e.boolSetting(KeyShakeToShow, true))
	e.SetProfilingEnabled(e.boolSetting(KeyProfilingEnabled, false))
	e.SetLiveReloadEnabled(e.boolSetting(KeyLiveReloadEnabled, false))
	e.SetHotLoadingEnabled(e.boolSetting(KeyHotLoadingEnabled, false))
	e.SetShowFPS(e.boolSetting(KeyShowFPS, false))

	executor := e.executorOverride
	if executor == "" {
		executor = normalize.String(e.settings[KeyExecutorClass])
	}
	e.SetExecutorClass(executor)
}

// Set updates one setting. A registered toggle for key fires first if the
// value changed; the map is then persisted only if the value differs from
// the current one. A nil value removes the key.
func (e *Engine) Set(key string, value any) {
	if item, ok := e.toggles[key]; ok {
		item.apply(value)
	}

	if normalize.Equal(e.settings[key], value) {
		return
	}
	e.settings = e.settings.With(key, value)
	e.persist()
}

func (e *Engine) persist() {
	err := e.store.Save(context.Background(), e.settings.Map())
	if e.cfg.Metrics != nil {
		if err != nil {
			e.cfg.Metrics.Inc(control.MetricSaveErrors)
		} else {
			e.cfg.Metrics.Inc(control.MetricSaves)
		}
	}
	if err != nil {
		e.cfg.Logf("[settings] persist failed: %v", err)
	}
}

func (e *Engine) boolSetting(key string, def bool) bool {
	v, ok := e.settings[key]
	if !ok || v == nil {
		return def
	}
	return normalize.Bool(v)
}

// SetShakeToShow records whether the menu opens on device shake.
func (e *Engine) SetShakeToShow(enabled bool) {
	e.shakeToShow = enabled
	e.Set(KeyShakeToShow, enabled)
}

// SetProfilingEnabled records the flag and, once the live reload URL is
// known, starts or stops the host profiler to match it.
func (e *Engine) SetProfilingEnabled(enabled bool) {
	e.profilingEnabled = enabled
	e.Set(KeyProfilingEnabled, enabled)

	if e.live.URL() == "" || enabled == e.bridge.IsProfiling() {
		return
	}
	if enabled {
		e.bridge.StartProfiling()
		return
	}
	e.bridge.StopProfiling(func(trace []byte) {
		if e.cfg.Reporter != nil {
			e.cfg.Reporter.ReportTrace(trace)
		}
	})
}

// SetLiveReloadEnabled records the flag and starts or cancels the poll loop.
func (e *Engine) SetLiveReloadEnabled(enabled bool) {
	e.liveReloadEnabled = enabled
	e.Set(KeyLiveReloadEnabled, enabled)
	e.live.SetEnabled(enabled)
}

// HotLoadingAvailable reports whether the bundle is network-served.
func (e *Engine) HotLoadingAvailable() bool {
	return host.IsServed(e.bridge.BundleURL())
}

// SetHotLoadingEnabled records the flag and rewrites the bundle URL's hot
// flag, reloading, when the effective state differs from the URL.
func (e *Engine) SetHotLoadingEnabled(enabled bool) {
	e.hotLoadingEnabled = enabled
	e.Set(KeyHotLoadingEnabled, enabled)

	actuallyEnabled := e.HotLoadingAvailable() && enabled
	bundle := e.bridge.BundleURL()
	if host.HotFlag(bundle) == actuallyEnabled {
		return
	}
	e.bridge.SetBundleURL(host.WithHotFlag(bundle, actuallyEnabled))
	e.cfg.Reload()
}

// SetShowFPS records the flag and notifies the application on transitions.
func (e *Engine) SetShowFPS(show bool) {
	changed := e.showFPS != show
	e.showFPS = show
	e.Set(KeyShowFPS, show)
	if changed {
		e.bridge.DispatchEvent(api.EventShowFPS, show)
	}
}

// SetExecutorClass changes the executor. A change clears the launch-time
// override and is persisted. The bridge is updated, and reloaded, whenever
// it disagrees, except that clearing the executor only replaces the
// debugging executor, never a custom one set directly on the bridge.
func (e *Engine) SetExecutorClass(name string) {
	if e.executorClass != name {
		e.executorClass = name
		e.executorOverride = ""
		var persisted any
		if name != "" {
			persisted = name
		}
		e.Set(KeyExecutorClass, persisted)
	}

	current := e.bridge.ExecutorClass()
	if current == name {
		return
	}
	if name == "" && current != e.DebugExecutorClass() {
		return
	}
	e.bridge.SetExecutorClass(name)
	e.cfg.Reload()
}

// DebugExecutorClass returns the registered debugging executor, "" when the
// capability is absent.
func (e *Engine) DebugExecutorClass() string {
	if e.cfg.DebugExecutor == nil {
		return ""
	}
	return e.cfg.DebugExecutor.DebugExecutorClass()
}

// ReapplyAfterLoad re-runs the load-order-sensitive setters once the host
// has finished loading a script.
func (e *Engine) ReapplyAfterLoad() {
	e.SetProfilingEnabled(e.profilingEnabled)
	e.SetLiveReloadEnabled(e.liveReloadEnabled)
	e.SetExecutorClass(e.executorClass)
}

func (e *Engine) ShakeToShow() bool       { return e.shakeToShow }
func (e *Engine) ProfilingEnabled() bool  { return e.profilingEnabled }
func (e *Engine) LiveReloadEnabled() bool { return e.liveReloadEnabled }
func (e *Engine) HotLoadingEnabled() bool { return e.hotLoadingEnabled }
func (e *Engine) ShowFPS() bool           { return e.showFPS }
func (e *Engine) ExecutorClass() string   { return e.executorClass }
