// File: facade/controller.go
// Unified facade for the dev-support core.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// DevController aggregates the settings engine, the command router and the
// live reload loop behind one object bound to a host application. It owns a
// single execution context (an EventLoop unless WithExecutor is given); every
// public method and every external callback (store change, transport frame,
// poll completion) is re-dispatched there before touching state.

package facade

import (
	"fmt"
	"log"
	"sync"

	"github.com/momentics/hioload-devsupport/adapters"
	"github.com/momentics/hioload-devsupport/api"
	"github.com/momentics/hioload-devsupport/control"
	"github.com/momentics/hioload-devsupport/internal/concurrency"
	"github.com/momentics/hioload-devsupport/internal/normalize"
	"github.com/momentics/hioload-devsupport/livereload"
	"github.com/momentics/hioload-devsupport/protocol"
	"github.com/momentics/hioload-devsupport/settings"
	"github.com/momentics/hioload-devsupport/store"
	"github.com/momentics/hioload-devsupport/transport"
)

// Alert shown when a debug reload is requested without a debugging executor.
const (
	AlertDebuggerTitle   = "Remote debugger unavailable"
	AlertDebuggerMessage = "No remote-debugging executor is registered with this host."
)

// DevController is the composition root.
type DevController struct {
	cfg    *Config
	bridge api.HostBridge

	exec      api.Executor
	loop      *concurrency.EventLoop // nil when the executor is injected
	store     api.SettingsStore
	ownsStore bool
	channel   api.MessageChannel
	alerter   api.Alerter
	logf      func(format string, args ...any)

	control *adapters.ControlAdapter
	hooks   *control.ReloadHooks

	engine *settings.Engine
	router *protocol.Router
	live   *livereload.Loop

	// Owned by the execution context.
	items         []settings.Item
	channelURL    string
	cancelChannel func()
	stopWatch     func()
	closed        bool

	shutdownOnce sync.Once
	shutdownErr  error
}

// Ensure compliance with api.GracefulShutdown.
var _ api.GracefulShutdown = (*DevController)(nil)

// New binds a controller to bridge. The settings engine is seeded from the
// store and reconciled on the execution context before any other event.
func New(bridge api.HostBridge, cfg *Config, opts ...Option) (*DevController, error) {
	if bridge == nil {
		return nil, api.ErrInvalidArgument
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := &options{logf: log.Printf}
	for _, opt := range opts {
		opt(o)
	}

	c := &DevController{
		cfg:     cfg,
		bridge:  bridge,
		exec:    o.executor,
		store:   o.store,
		channel: o.channel,
		alerter: o.alerter,
		logf:    o.logf,
		control: adapters.NewControlAdapter(),
		hooks:   &control.ReloadHooks{},
	}

	if c.store == nil {
		s, err := openStore(cfg, c.logf)
		if err != nil {
			return nil, err
		}
		c.store = s
		c.ownsStore = true
	}
	if c.exec == nil {
		c.loop = concurrency.NewEventLoop(cfg.QueueCapacity)
		c.loop.SetLogf(c.logf)
		go c.loop.Run()
		c.exec = c.loop
	}
	if c.channel == nil {
		c.channel = transport.Default()
	}
	poller := o.poller
	if poller == nil {
		poller = livereload.NewHTTPPoller()
	}
	debugExec := o.debugExec
	if debugExec == nil && cfg.DebugExecutorClass != "" {
		debugExec = api.DebugExecutorName(cfg.DebugExecutorClass)
	}

	metrics := c.control.Metrics()
	c.live = livereload.New(c.exec, poller, c.reload,
		livereload.WithErrorBackoff(cfg.LiveReloadErrorBackoff, cfg.LiveReloadMaxBackoff),
		livereload.WithMetrics(metrics),
		livereload.WithLogf(c.logf))

	c.engine = settings.NewEngine(c.store, bridge, c.live, settings.Config{
		ExecutorOverride: cfg.ExecutorOverride,
		DebugExecutor:    debugExec,
		Reporter:         o.reporter,
		Metrics:          metrics,
		Reload:           c.reload,
		Logf:             c.logf,
	})

	routerOpts := []protocol.RouterOption{protocol.WithMetrics(metrics)}
	if cfg.Verbose {
		routerOpts = append(routerOpts, protocol.WithLogf(c.logf))
	}
	c.router = protocol.NewRouter(routerOpts...)
	c.router.Handle(protocol.TargetBridge, protocol.ActionReload, c.handleReload)

	c.control.SetConfig(map[string]any{
		"settings_key":         cfg.SettingsKey,
		"settings_backend":     cfg.SettingsBackend,
		"debug_executor_class": cfg.DebugExecutorClass,
		"queue_capacity":       cfg.QueueCapacity,
	})
	c.registerProbes()

	err := c.exec.Submit(func() {
		c.engine.Reconcile(c.engine.Snapshot())
		c.connectChannel()
		c.stopWatch = c.store.Watch(c.onStoreChanged)
	})
	if err != nil {
		c.release()
		return nil, fmt.Errorf("facade: scheduling startup: %w", err)
	}
	return c, nil
}

func openStore(cfg *Config, logf func(format string, args ...any)) (api.SettingsStore, error) {
	switch cfg.SettingsBackend {
	case BackendFile:
		s, err := store.NewFileStore(cfg.SettingsPath, cfg.SettingsKey, store.WithFileLogf(logf))
		if err != nil {
			return nil, fmt.Errorf("facade: settings store: %w", err)
		}
		return s, nil
	case BackendSQLite:
		s, err := store.OpenSQLite(cfg.SettingsPath, cfg.SettingsKey,
			store.WithPollInterval(cfg.SQLitePollInterval), store.WithSQLiteLogf(logf))
		if err != nil {
			return nil, fmt.Errorf("facade: settings store: %w", err)
		}
		return s, nil
	default:
		return control.NewConfigStore(), nil
	}
}

func (c *DevController) registerProbes() {
	c.control.RegisterDebugProbe("settings", func() any { return c.engine.Snapshot().Map() })
	c.control.RegisterDebugProbe("items", func() any { return len(c.items) })
	c.control.RegisterDebugProbe("livereload.url", func() any { return c.live.URL() })
	c.control.RegisterDebugProbe("livereload.polling", func() any { return c.live.Polling() })
	c.control.RegisterDebugProbe("channel", func() any { return c.channelURL })
}

// submit runs fn on the execution context unless the controller is closed.
func (c *DevController) submit(fn func()) error {
	return c.exec.Submit(func() {
		if c.closed {
			return
		}
		fn()
	})
}

// call runs fn on the execution context and waits for it. It must not be
// used from the execution context itself.
func (c *DevController) call(fn func()) error {
	done := make(chan struct{})
	err := c.exec.Submit(func() {
		defer close(done)
		fn()
	})
	if err != nil {
		return err
	}
	<-done
	return nil
}

// reload runs on the execution context.
func (c *DevController) reload() {
	c.control.IncMetric(control.MetricReloads)
	c.hooks.Trigger()
	c.bridge.Reload()
}

func (c *DevController) handleReload(msg *protocol.CommandMessage) {
	if msg.Bool(protocol.OptionDebug) {
		if class := c.engine.DebugExecutorClass(); class != "" {
			c.bridge.SetExecutorClass(class)
		} else {
			c.alert(AlertDebuggerTitle, AlertDebuggerMessage)
		}
	}
	c.reload()
}

func (c *DevController) alert(title, message string) {
	if c.alerter == nil {
		c.logf("[devsupport] %s: %s", title, message)
		return
	}
	c.alerter.Alert(title, message)
}

func (c *DevController) onStoreChanged() {
	if err := c.submit(c.engine.Reload); err != nil {
		c.logf("[devsupport] dropping settings change: %v", err)
	}
}

func (c *DevController) onFrame(frame []byte, binary bool) {
	err := c.submit(func() {
		c.router.HandleFrame(frame, binary)
	})
	if err != nil {
		c.logf("[devsupport] dropping frame: %v", err)
	}
}

// connectChannel registers with the proxy for the current bundle origin,
// replacing a registration made for a different origin.
func (c *DevController) connectChannel() {
	u := transport.ShellURL(c.bridge.BundleURL())
	target := ""
	if u != nil {
		target = u.String()
	}
	if target == c.channelURL {
		return
	}
	c.disconnectChannel()
	if target == "" {
		return
	}
	cancel, err := c.channel.Register(target, c.onFrame)
	if err != nil {
		c.logf("[devsupport] websocket proxy registration for %s failed: %v", target, err)
		return
	}
	c.channelURL = target
	c.cancelChannel = cancel
}

func (c *DevController) disconnectChannel() {
	if c.cancelChannel != nil {
		c.cancelChannel()
		c.cancelChannel = nil
	}
	c.channelURL = ""
}

// AddItem appends item to the extension list. A toggle immediately picks up
// any value already persisted under its key.
func (c *DevController) AddItem(item settings.Item) error {
	if item == nil {
		return api.ErrInvalidArgument
	}
	return c.submit(func() {
		c.items = append(c.items, item)
		if toggle, ok := item.(*settings.ToggleItem); ok {
			c.engine.Register(toggle)
		}
	})
}

// Invoke activates item as if selected from the menu.
func (c *DevController) Invoke(item settings.Item) error {
	if item == nil {
		return api.ErrInvalidArgument
	}
	return c.submit(item.Invoke)
}

// Items returns a copy of the extension list.
func (c *DevController) Items() []settings.Item {
	var out []settings.Item
	c.call(func() { out = append([]settings.Item(nil), c.items...) })
	return out
}

// Reload asks the host to reload.
func (c *DevController) Reload() error {
	return c.submit(c.reload)
}

// RegisterReloadHook adds fn to the observers run before each reload.
func (c *DevController) RegisterReloadHook(fn func()) {
	c.hooks.Register(fn)
}

// ToggleSetting flips the registered toggle bound to key.
func (c *DevController) ToggleSetting(key string) error {
	var err error
	if callErr := c.call(func() {
		if c.closed {
			err = api.ErrClosed
			return
		}
		err = c.engine.Toggle(key)
	}); callErr != nil {
		return callErr
	}
	return err
}

// ToggleElementInspector flips the persisted inspector flag and asks the
// application to toggle its inspector.
func (c *DevController) ToggleElementInspector() error {
	return c.submit(func() {
		show := !normalize.Bool(c.engine.Get(settings.KeyShowInspector))
		c.engine.Set(settings.KeyShowInspector, show)
		c.bridge.DispatchEvent(api.EventToggleElementInspector, nil)
	})
}

// ToggleRemoteDebugging switches between the debugging executor and the
// default one. Without a registered provider the developer is told why.
func (c *DevController) ToggleRemoteDebugging() error {
	return c.submit(func() {
		class := c.engine.DebugExecutorClass()
		if class == "" {
			c.alert(AlertDebuggerTitle, AlertDebuggerMessage)
			return
		}
		if c.engine.ExecutorClass() == class {
			c.engine.SetExecutorClass("")
			return
		}
		c.engine.SetExecutorClass(class)
	})
}

func (c *DevController) SetShakeToShow(enabled bool) error {
	return c.submit(func() { c.engine.SetShakeToShow(enabled) })
}

func (c *DevController) SetProfilingEnabled(enabled bool) error {
	return c.submit(func() { c.engine.SetProfilingEnabled(enabled) })
}

func (c *DevController) SetLiveReloadEnabled(enabled bool) error {
	return c.submit(func() { c.engine.SetLiveReloadEnabled(enabled) })
}

func (c *DevController) SetHotLoadingEnabled(enabled bool) error {
	return c.submit(func() { c.engine.SetHotLoadingEnabled(enabled) })
}

func (c *DevController) SetShowFPS(show bool) error {
	return c.submit(func() { c.engine.SetShowFPS(show) })
}

func (c *DevController) SetExecutorClass(name string) error {
	return c.submit(func() { c.engine.SetExecutorClass(name) })
}

// Set writes one arbitrary setting.
func (c *DevController) Set(key string, value any) error {
	return c.submit(func() { c.engine.Set(key, value) })
}

// Settings returns a copy of the current settings.
func (c *DevController) Settings() (settings.Snapshot, error) {
	var snap settings.Snapshot
	err := c.call(func() { snap = c.engine.Snapshot() })
	return snap, err
}

// ScriptLoaded is the host's "script finished loading" hook. It derives the
// live reload endpoint, re-applies the load-order-sensitive settings and
// re-raises the inspector when it was left open.
func (c *DevController) ScriptLoaded() error {
	return c.submit(func() {
		c.live.ScriptLoaded(c.bridge.ScriptURL())
		c.engine.ReapplyAfterLoad()
		if normalize.Bool(c.engine.Get(settings.KeyShowInspector)) {
			c.bridge.DispatchEvent(api.EventToggleElementInspector, nil)
		}
		c.connectChannel()
	})
}

// Stats returns counters, configuration and debug probe output.
func (c *DevController) Stats() map[string]any {
	var stats map[string]any
	if err := c.call(func() { stats = c.control.Stats() }); err != nil {
		return c.control.Metrics().GetSnapshot()
	}
	for k, v := range c.control.GetConfig() {
		stats["config."+k] = v
	}
	return stats
}

// Shutdown cancels polling, detaches the store and transport subscriptions,
// clears the item list and stops owned resources. Later calls are no-ops.
func (c *DevController) Shutdown() error {
	c.shutdownOnce.Do(func() {
		err := c.call(func() {
			c.closed = true
			c.live.Close()
			if c.stopWatch != nil {
				c.stopWatch()
				c.stopWatch = nil
			}
			c.disconnectChannel()
			c.items = nil
			c.hooks.Reset()
		})
		if err != nil {
			c.logf("[devsupport] shutdown on execution context failed: %v", err)
		}
		c.shutdownErr = c.release()
	})
	return c.shutdownErr
}

func (c *DevController) release() error {
	var err error
	if c.ownsStore {
		err = c.store.Close()
	}
	if c.loop != nil {
		c.loop.Stop()
	}
	return err
}
