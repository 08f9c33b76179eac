// File: facade/config.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Controller configuration: defaults, TOML or YAML file loading and
// environment overrides (env > file > defaults).

package facade

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/momentics/hioload-devsupport/settings"
)

// Settings backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Environment overrides.
const (
	EnvExecutorOverride = "DEVSUPPORT_EXECUTOR_OVERRIDE"
	EnvBundleURL        = "DEVSUPPORT_BUNDLE_URL"
	EnvSettingsPath     = "DEVSUPPORT_SETTINGS_PATH"
)

// Config holds parameters immutable per controller.
type Config struct {
	SettingsKey        string        `toml:"settings_key" yaml:"settings_key"`                 // Namespace of the settings map in the store
	SettingsBackend    string        `toml:"settings_backend" yaml:"settings_backend"`         // memory, file or sqlite
	SettingsPath       string        `toml:"settings_path" yaml:"settings_path"`               // File or database path for durable backends
	SQLitePollInterval time.Duration `toml:"sqlite_poll_interval" yaml:"sqlite_poll_interval"` // data_version polling period

	// ExecutorOverride is read once at construction and shadows the
	// persisted executor until the executor is changed.
	ExecutorOverride string `toml:"executor_override" yaml:"executor_override"`
	// DebugExecutorClass registers a remote-debugging executor provider under
	// this name when none is passed with WithDebugExecutorProvider. Empty
	// leaves remote debugging unavailable.
	DebugExecutorClass string `toml:"debug_executor_class" yaml:"debug_executor_class"`

	LiveReloadErrorBackoff time.Duration `toml:"live_reload_error_backoff" yaml:"live_reload_error_backoff"` // 0 re-polls immediately after errors
	LiveReloadMaxBackoff   time.Duration `toml:"live_reload_max_backoff" yaml:"live_reload_max_backoff"`

	QueueCapacity int    `toml:"queue_capacity" yaml:"queue_capacity"` // Owning event loop capacity, 0 unbounded
	BundleURL     string `toml:"bundle_url" yaml:"bundle_url"`         // Used by hosts building a host.Bridge
	TraceDir      string `toml:"trace_dir" yaml:"trace_dir"`           // Used by hosts building a host.FileTraceReporter
	Verbose       bool   `toml:"verbose" yaml:"verbose"`               // Log dropped protocol frames
}

// DefaultConfig returns default configuration values.
func DefaultConfig() *Config {
	return &Config{
		SettingsKey:        settings.DefaultNamespace,
		SettingsBackend:    BackendMemory,
		SQLitePollInterval: 500 * time.Millisecond,
		QueueCapacity:      1024,
		TraceDir:           os.TempDir(),
	}
}

// LoadConfig reads a TOML file (YAML for .yaml and .yml) over the defaults,
// then applies environment overrides. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := decodeConfig(path, data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config %s: %w", path, err)
			}
		case !errors.Is(err, fs.ErrNotExist):
			return nil, err
		}
	}

	if v := os.Getenv(EnvExecutorOverride); v != "" {
		cfg.ExecutorOverride = v
	}
	if v := os.Getenv(EnvBundleURL); v != "" {
		cfg.BundleURL = v
	}
	if v := os.Getenv(EnvSettingsPath); v != "" {
		cfg.SettingsPath = v
	}
	return cfg, cfg.Validate()
}

func decodeConfig(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	default:
		return toml.Unmarshal(data, cfg)
	}
}

// Validate checks field combinations.
func (c *Config) Validate() error {
	if c.SettingsKey == "" {
		return fmt.Errorf("settings_key must not be empty")
	}
	switch c.SettingsBackend {
	case "", BackendMemory:
	case BackendFile, BackendSQLite:
		if c.SettingsPath == "" {
			return fmt.Errorf("settings_backend %q requires settings_path", c.SettingsBackend)
		}
	default:
		return fmt.Errorf("unknown settings_backend %q", c.SettingsBackend)
	}
	if c.QueueCapacity < 0 {
		return fmt.Errorf("queue_capacity must not be negative")
	}
	return nil
}
