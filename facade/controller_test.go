package facade_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/momentics/hioload-devsupport/api"
	"github.com/momentics/hioload-devsupport/control"
	"github.com/momentics/hioload-devsupport/facade"
	"github.com/momentics/hioload-devsupport/fake"
	"github.com/momentics/hioload-devsupport/livereload"
	"github.com/momentics/hioload-devsupport/settings"
	"github.com/momentics/hioload-devsupport/store"
)

const (
	bundleURL = "http://localhost:8081/index.bundle?platform=ios&dev=true"
	shellURL  = "http://localhost:8081/message?role=shell"
	debugExec = "RCTWebSocketExecutor"
)

type env struct {
	bridge  *fake.Bridge
	store   *fake.Store
	channel *fake.Channel
	poller  *fake.Poller
	alerter *fake.Alerter
	ctrl    *facade.DevController
}

func newEnv(t *testing.T, bundle string, initial map[string]any, mutate func(*facade.Config), opts ...facade.Option) *env {
	t.Helper()
	e := &env{
		bridge:  fake.NewBridge(bundle),
		store:   fake.NewStore(initial),
		channel: fake.NewChannel(),
		poller:  fake.NewPoller(),
		alerter: &fake.Alerter{},
	}
	cfg := facade.DefaultConfig()
	if mutate != nil {
		mutate(cfg)
	}
	opts = append([]facade.Option{
		facade.WithStore(e.store),
		facade.WithChannel(e.channel),
		facade.WithPoller(e.poller),
		facade.WithAlerter(e.alerter),
		facade.WithLogf(t.Logf),
	}, opts...)
	ctrl, err := facade.New(e.bridge, cfg, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	e.ctrl = ctrl
	t.Cleanup(func() { ctrl.Shutdown() })
	e.sync(t)
	return e
}

// sync waits until every task queued so far has run.
func (e *env) sync(t *testing.T) settings.Snapshot {
	t.Helper()
	snap, err := e.ctrl.Settings()
	if err != nil {
		t.Fatalf("Settings: %v", err)
	}
	return snap
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not reached")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func withDebugger(cfg *facade.Config) { cfg.DebugExecutorClass = debugExec }

func TestDebugReloadCommand(t *testing.T) {
	e := newEnv(t, bundleURL, nil, withDebugger)
	if !e.channel.Active(shellURL) {
		t.Fatalf("expected registration for %s, got %v", shellURL, e.channel.URLs())
	}

	e.channel.Deliver(shellURL, []byte(`{"version":1,"target":"bridge","action":"reload","options":{"debug":true}}`))
	snap := e.sync(t)
	if got := e.bridge.ExecutorClass(); got != debugExec {
		t.Fatalf("executor = %q, want %q", got, debugExec)
	}
	if e.bridge.Reloads() != 1 {
		t.Fatalf("reloads = %d, want 1", e.bridge.Reloads())
	}
	if _, ok := snap[settings.KeyExecutorClass]; ok {
		t.Fatal("debug reload must not persist the executor")
	}

	sets := e.bridge.ExecutorSets()
	e.channel.Deliver(shellURL, []byte(`{"version":1,"target":"bridge","action":"reload","options":{"debug":false}}`))
	e.sync(t)
	if e.bridge.Reloads() != 2 || e.bridge.ExecutorSets() != sets {
		t.Fatalf("plain reload: reloads=%d executor sets=%d", e.bridge.Reloads(), e.bridge.ExecutorSets())
	}
}

func TestDebugReloadWithoutProvider(t *testing.T) {
	e := newEnv(t, bundleURL, nil, nil)
	e.channel.Deliver(shellURL, []byte(`{"version":1,"target":"bridge","action":"reload","options":{"debug":true}}`))
	e.sync(t)

	alerts := e.alerter.Alerts()
	if len(alerts) != 1 || alerts[0].Title != facade.AlertDebuggerTitle {
		t.Fatalf("alerts = %+v", alerts)
	}
	if e.bridge.Reloads() != 1 || e.bridge.ExecutorClass() != "" {
		t.Fatalf("reloads=%d executor=%q", e.bridge.Reloads(), e.bridge.ExecutorClass())
	}
}

func TestVersionGatingAndMalformedFrames(t *testing.T) {
	e := newEnv(t, bundleURL, nil, withDebugger)
	frames := []string{
		`{"version":2,"target":"bridge","action":"reload","options":{"debug":true}}`,
		`{"version":1,"target":"bridge"`,
		`{"target":"bridge","action":"reload"}`,
		`{"version":1,"target":"inspector","action":"open"}`,
	}
	for _, f := range frames {
		e.channel.Deliver(shellURL, []byte(f))
	}
	e.sync(t)

	if e.bridge.Reloads() != 0 || e.bridge.ExecutorSets() != 0 {
		t.Fatalf("no state change expected: reloads=%d executor sets=%d", e.bridge.Reloads(), e.bridge.ExecutorSets())
	}
	stats := e.ctrl.Stats()
	if stats[control.MetricCommandsDropped] != int64(3) {
		t.Fatalf("dropped = %v, want 3", stats[control.MetricCommandsDropped])
	}
}

func TestAddItemPicksUpPersistedValue(t *testing.T) {
	e := newEnv(t, bundleURL, map[string]any{"flag": true}, nil)

	var fired []bool
	toggle := settings.NewToggle("flag", "Enable flag", "Disable flag", "", func(on bool) { fired = append(fired, on) })
	if err := e.ctrl.AddItem(toggle); err != nil {
		t.Fatal(err)
	}
	e.ctrl.AddItem(settings.NewButton("Noop", nil))
	e.sync(t)

	if len(fired) != 1 || !fired[0] {
		t.Fatalf("handler calls = %v, want [true]", fired)
	}
	if items := e.ctrl.Items(); len(items) != 2 || items[0] != settings.Item(toggle) {
		t.Fatalf("items = %v", items)
	}
	if err := e.ctrl.AddItem(nil); !errors.Is(err, api.ErrInvalidArgument) {
		t.Fatalf("AddItem(nil) = %v", err)
	}
}

func TestExternalEditReconciles(t *testing.T) {
	e := newEnv(t, bundleURL, nil, nil)
	var fired []bool
	e.ctrl.AddItem(settings.NewToggle("flag", "Flag", "", "", func(on bool) { fired = append(fired, on) }))
	e.sync(t)

	e.store.Edit(map[string]any{"flag": true})
	e.sync(t)
	e.store.Edit(map[string]any{"flag": true})
	e.sync(t)
	e.store.Edit(map[string]any{"flag": false, "unknownFutureKey": 3})
	snap := e.sync(t)

	if len(fired) != 2 || !fired[0] || fired[1] {
		t.Fatalf("handler calls = %v, want [true false]", fired)
	}
	if snap["unknownFutureKey"] != 3 {
		t.Fatalf("unknown keys must be carried, got %v", snap)
	}
}

func TestToggleSetting(t *testing.T) {
	e := newEnv(t, bundleURL, nil, nil)
	var fired []bool
	e.ctrl.AddItem(settings.NewToggle("flag", "Flag", "", "", func(on bool) { fired = append(fired, on) }))

	if err := e.ctrl.ToggleSetting("flag"); err != nil {
		t.Fatal(err)
	}
	if err := e.ctrl.ToggleSetting("flag"); err != nil {
		t.Fatal(err)
	}
	if len(fired) != 2 || !fired[0] || fired[1] {
		t.Fatalf("handler calls = %v", fired)
	}
	if e.store.Data()["flag"] != false {
		t.Fatalf("persisted = %v", e.store.Data())
	}
	if err := e.ctrl.ToggleSetting("missing"); !errors.Is(err, api.ErrNotFound) {
		t.Fatalf("ToggleSetting(missing) = %v", err)
	}
}

func TestScriptLoadedStartsLiveReload(t *testing.T) {
	e := newEnv(t, bundleURL, map[string]any{settings.KeyLiveReloadEnabled: true}, nil)
	if _, ok := e.poller.Next(50 * time.Millisecond); ok {
		t.Fatal("no poll before the script has loaded")
	}

	e.bridge.SetScriptURL(bundleURL)
	e.ctrl.ScriptLoaded()
	call, ok := e.poller.Next(time.Second)
	if !ok {
		t.Fatal("expected a poll after script load")
	}
	if call.URL != "http://localhost:8081/onchange" {
		t.Fatalf("poll url = %s", call.URL)
	}

	call.Respond(livereload.StatusChanged, nil)
	eventually(t, func() bool { return e.bridge.Reloads() == 1 })
	if got := e.ctrl.Stats()[control.MetricReloads]; got != int64(1) {
		t.Fatalf("reload metric = %v", got)
	}
}

func TestLiveReloadDisabledDuringPoll(t *testing.T) {
	e := newEnv(t, bundleURL, map[string]any{settings.KeyLiveReloadEnabled: true}, nil)
	e.bridge.SetScriptURL(bundleURL)
	e.ctrl.ScriptLoaded()
	call, ok := e.poller.Next(time.Second)
	if !ok {
		t.Fatal("expected a poll")
	}

	e.ctrl.SetLiveReloadEnabled(false)
	e.sync(t)
	if call.Ctx.Err() == nil {
		t.Fatal("disabling must cancel the in-flight poll")
	}
	call.Respond(livereload.StatusChanged, nil)
	e.sync(t)
	if _, ok := e.poller.Next(50 * time.Millisecond); ok {
		t.Fatal("no re-poll after disable")
	}
	if e.bridge.Reloads() != 0 {
		t.Fatalf("reloads = %d", e.bridge.Reloads())
	}
}

func TestHotLoadingRequiresServedBundle(t *testing.T) {
	e := newEnv(t, "file:///app/main.jsbundle", nil, nil)
	if len(e.channel.URLs()) != 0 {
		t.Fatalf("offline bundle must not register, got %v", e.channel.URLs())
	}
	e.ctrl.SetHotLoadingEnabled(true)
	snap := e.sync(t)
	if e.bridge.BundleURL().String() != "file:///app/main.jsbundle" || e.bridge.Reloads() != 0 {
		t.Fatalf("bundle=%s reloads=%d", e.bridge.BundleURL(), e.bridge.Reloads())
	}
	if snap[settings.KeyHotLoadingEnabled] != true {
		t.Fatal("preference is still recorded")
	}

	served := newEnv(t, bundleURL, nil, nil)
	served.ctrl.SetHotLoadingEnabled(true)
	served.sync(t)
	if !strings.Contains(served.bridge.BundleURL().RawQuery, "hot=true") || served.bridge.Reloads() != 1 {
		t.Fatalf("bundle=%s reloads=%d", served.bridge.BundleURL(), served.bridge.Reloads())
	}
}

func TestElementInspector(t *testing.T) {
	e := newEnv(t, bundleURL, nil, nil)
	e.ctrl.ToggleElementInspector()
	snap := e.sync(t)
	if snap[settings.KeyShowInspector] != true {
		t.Fatalf("showInspector = %v", snap[settings.KeyShowInspector])
	}

	e.ctrl.ScriptLoaded()
	e.sync(t)
	n := 0
	for _, ev := range e.bridge.Events() {
		if ev.Name == api.EventToggleElementInspector {
			n++
		}
	}
	if n != 2 {
		t.Fatalf("inspector events = %d, want 2", n)
	}
}

func TestExecutorOverrideAndRemoteDebugging(t *testing.T) {
	e := newEnv(t, bundleURL, map[string]any{settings.KeyExecutorClass: "Persisted"}, func(cfg *facade.Config) {
		cfg.ExecutorOverride = "Override"
		withDebugger(cfg)
	})
	if got := e.bridge.ExecutorClass(); got != "Override" {
		t.Fatalf("executor = %q, want override", got)
	}

	e.ctrl.ToggleRemoteDebugging()
	snap := e.sync(t)
	if e.bridge.ExecutorClass() != debugExec || snap[settings.KeyExecutorClass] != debugExec {
		t.Fatalf("executor=%q persisted=%v", e.bridge.ExecutorClass(), snap[settings.KeyExecutorClass])
	}
	e.ctrl.ToggleRemoteDebugging()
	snap = e.sync(t)
	if e.bridge.ExecutorClass() != "" {
		t.Fatalf("executor = %q, want default", e.bridge.ExecutorClass())
	}
	if _, ok := snap[settings.KeyExecutorClass]; ok {
		t.Fatal("clearing the executor removes the key")
	}
}

func TestReloadHooks(t *testing.T) {
	e := newEnv(t, bundleURL, nil, nil)
	called := 0
	e.ctrl.RegisterReloadHook(func() { called++ })
	e.ctrl.Reload()
	e.sync(t)
	if called != 1 || e.bridge.Reloads() != 1 {
		t.Fatalf("hook=%d reloads=%d", called, e.bridge.Reloads())
	}
}

func TestStatsProbes(t *testing.T) {
	e := newEnv(t, bundleURL, nil, nil)
	stats := e.ctrl.Stats()
	if stats["debug.channel"] != shellURL {
		t.Fatalf("channel probe = %v", stats["debug.channel"])
	}
	if stats["config.settings_key"] != settings.DefaultNamespace {
		t.Fatalf("config = %v", stats["config.settings_key"])
	}
	if _, ok := stats["debug.settings"].(map[string]any); !ok {
		t.Fatalf("settings probe = %T", stats["debug.settings"])
	}
}

func TestShutdownDetaches(t *testing.T) {
	e := newEnv(t, bundleURL, map[string]any{settings.KeyLiveReloadEnabled: true}, nil)
	e.ctrl.AddItem(settings.NewButton("Noop", nil))
	e.bridge.SetScriptURL(bundleURL)
	e.ctrl.ScriptLoaded()
	call, ok := e.poller.Next(time.Second)
	if !ok {
		t.Fatal("expected a poll")
	}
	if e.store.Watchers() != 1 {
		t.Fatalf("watchers = %d", e.store.Watchers())
	}

	if err := e.ctrl.Shutdown(); err != nil {
		t.Fatal(err)
	}
	if call.Ctx.Err() == nil {
		t.Fatal("in-flight poll must be cancelled")
	}
	if e.channel.Active(shellURL) || e.store.Watchers() != 0 {
		t.Fatal("subscriptions must be detached")
	}
	if len(e.ctrl.Items()) != 0 {
		t.Fatal("items must be cleared")
	}
	if err := e.ctrl.AddItem(settings.NewButton("Late", nil)); !errors.Is(err, api.ErrClosed) {
		t.Fatalf("AddItem after shutdown = %v", err)
	}
	if err := e.ctrl.Shutdown(); err != nil {
		t.Fatal(err)
	}
}

func TestFileBackendPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	cfg := facade.DefaultConfig()
	cfg.SettingsBackend = facade.BackendFile
	cfg.SettingsPath = path

	ctrl, err := facade.New(fake.NewBridge(bundleURL), cfg,
		facade.WithChannel(fake.NewChannel()),
		facade.WithPoller(fake.NewPoller()),
		facade.WithLogf(t.Logf))
	if err != nil {
		t.Fatal(err)
	}
	ctrl.SetShowFPS(true)
	if _, err := ctrl.Settings(); err != nil {
		t.Fatal(err)
	}
	if err := ctrl.Shutdown(); err != nil {
		t.Fatal(err)
	}

	s, err := store.NewFileStore(path, settings.DefaultNamespace)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	got, err := s.Load(context.Background())
	if err != nil || got[settings.KeyShowFPS] != true {
		t.Fatalf("persisted = %v, %v", got, err)
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devsupport.toml")
	data := `
settings_backend = "sqlite"
settings_path = "/tmp/dev.db"
debug_executor_class = "RCTWebSocketExecutor"
live_reload_error_backoff = "250ms"
live_reload_max_backoff = "5s"
verbose = true
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(facade.EnvExecutorOverride, "CustomExecutor")

	cfg, err := facade.LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.SettingsBackend != facade.BackendSQLite || cfg.SettingsPath != "/tmp/dev.db" {
		t.Fatalf("backend=%q path=%q", cfg.SettingsBackend, cfg.SettingsPath)
	}
	if cfg.LiveReloadErrorBackoff != 250*time.Millisecond || cfg.LiveReloadMaxBackoff != 5*time.Second {
		t.Fatalf("backoff=%v max=%v", cfg.LiveReloadErrorBackoff, cfg.LiveReloadMaxBackoff)
	}
	if cfg.ExecutorOverride != "CustomExecutor" || !cfg.Verbose {
		t.Fatalf("override=%q verbose=%v", cfg.ExecutorOverride, cfg.Verbose)
	}
	if cfg.SettingsKey != settings.DefaultNamespace {
		t.Fatalf("defaults must survive, key=%q", cfg.SettingsKey)
	}

	missing, err := facade.LoadConfig(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil || missing.SettingsBackend != facade.BackendMemory {
		t.Fatalf("missing file = %+v, %v", missing, err)
	}

	yamlPath := filepath.Join(t.TempDir(), "devsupport.yaml")
	yamlData := "settings_backend: file\nsettings_path: /tmp/dev.json\nlive_reload_error_backoff: 100ms\n"
	if err := os.WriteFile(yamlPath, []byte(yamlData), 0o600); err != nil {
		t.Fatal(err)
	}
	fromYAML, err := facade.LoadConfig(yamlPath)
	if err != nil {
		t.Fatal(err)
	}
	if fromYAML.SettingsBackend != facade.BackendFile || fromYAML.LiveReloadErrorBackoff != 100*time.Millisecond {
		t.Fatalf("yaml backend=%q backoff=%v", fromYAML.SettingsBackend, fromYAML.LiveReloadErrorBackoff)
	}

	bad := filepath.Join(t.TempDir(), "bad.toml")
	os.WriteFile(bad, []byte(`settings_backend = "redis"`), 0o600)
	if _, err := facade.LoadConfig(bad); err == nil {
		t.Fatal("expected validation error")
	}
}
