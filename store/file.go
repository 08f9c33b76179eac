// File: store/file.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// JSON file backend. The document maps namespace -> settings object; Save
// rewrites only its own namespace, through a temp file, fsync and rename,
// under an exclusive lock on a sidecar ".lock" file.

package store

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/momentics/hioload-devsupport/api"
)

// DefaultDebounce coalesces bursts of filesystem events into one signal.
const DefaultDebounce = 50 * time.Millisecond

// FileOption customizes a FileStore.
type FileOption func(*FileStore)

// WithDebounce sets the quiet period before a change is signalled.
func WithDebounce(d time.Duration) FileOption {
	return func(s *FileStore) { s.debounce = d }
}

// WithFileLogf replaces the logger.
func WithFileLogf(fn func(format string, args ...any)) FileOption {
	return func(s *FileStore) { s.logf = fn }
}

// FileStore persists one namespace of a shared JSON settings document.
type FileStore struct {
	path      string
	namespace string
	debounce  time.Duration
	logf      func(format string, args ...any)

	listeners listeners

	// writeMu orders a Save's write and digest update against check.
	writeMu sync.Mutex

	mu      sync.Mutex
	digest  [sha256.Size]byte // namespace content last written or seen
	watcher *fsnotify.Watcher
	timer   *time.Timer
	closed  bool
	done    chan struct{}
}

var _ api.SettingsStore = (*FileStore)(nil)

// NewFileStore opens the document at path for namespace. The file is created
// on first Save; its directory must exist.
func NewFileStore(path, namespace string, opts ...FileOption) (*FileStore, error) {
	if path == "" || namespace == "" {
		return nil, api.ErrInvalidArgument
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("store: resolve %s: %w", path, err)
	}
	s := &FileStore{
		path:      abs,
		namespace: namespace,
		debounce:  DefaultDebounce,
		logf:      log.Printf,
	}
	for _, opt := range opts {
		opt(s)
	}
	if raw, err := s.readNamespace(); err == nil {
		s.digest = sha256.Sum256(raw)
	}
	return s, nil
}

// Path returns the document location.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) lockPath() string { return s.path + ".lock" }

// readDocument returns the parsed document; a missing file is empty.
func (s *FileStore) readDocument() (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]json.RawMessage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: read %s: %w", s.path, err)
	}
	doc := map[string]json.RawMessage{}
	if len(bytes.TrimSpace(data)) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, api.NewError(api.ErrCodePersistence, "store: decode document").
			Wrap(err).WithContext("path", s.path)
	}
	return doc, nil
}

func (s *FileStore) readNamespace() (json.RawMessage, error) {
	unlock, err := lockFile(s.lockPath(), false)
	if err != nil {
		return nil, err
	}
	defer unlock()
	doc, err := s.readDocument()
	if err != nil {
		return nil, err
	}
	return canonical(doc[s.namespace]), nil
}

// canonical compacts raw so digests ignore formatting.
func canonical(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return raw
	}
	return buf.Bytes()
}

// Load implements api.SettingsStore.
func (s *FileStore) Load(ctx context.Context) (map[string]any, error) {
	raw, err := s.readNamespace()
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if len(raw) == 0 || string(raw) == "null" {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, api.NewError(api.ErrCodePersistence, "store: decode namespace").
			Wrap(err).WithContext("namespace", s.namespace)
	}
	return out, nil
}

// Save implements api.SettingsStore.
func (s *FileStore) Save(ctx context.Context, settings map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	encoded, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("store: encode settings: %w", err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	unlock, err := lockFile(s.lockPath(), true)
	if err != nil {
		return err
	}
	defer unlock()

	doc, err := s.readDocument()
	if err != nil {
		return err
	}
	doc[s.namespace] = encoded
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("store: encode document: %w", err)
	}

	if err := writeDocument(s.path, data); err != nil {
		return err
	}
	s.mu.Lock()
	s.digest = sha256.Sum256(canonical(encoded))
	s.mu.Unlock()
	return nil
}

var writeDocument = writeAtomic

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("store: create temp: %w", err)
	}
	name := tmp.Name()
	cleanup := func() { os.Remove(name) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("store: write %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("store: sync %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("store: close %s: %w", name, err)
	}
	if err := os.Chmod(name, 0o600); err != nil {
		cleanup()
		return fmt.Errorf("store: chmod %s: %w", name, err)
	}
	if err := os.Rename(name, path); err != nil {
		cleanup()
		return fmt.Errorf("store: rename %s: %w", path, err)
	}
	return nil
}

// Watch implements api.SettingsStore. The first subscriber starts an
// fsnotify watch on the document's directory; fn fires after edits by other
// writers that change this namespace.
func (s *FileStore) Watch(fn func()) func() {
	stop, first := s.listeners.add(fn)
	if first {
		if err := s.startWatcher(); err != nil {
			s.logf("[store] watch %s unavailable: %v", s.path, err)
		}
	}
	return stop
}

func (s *FileStore) startWatcher() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return api.ErrClosed
	}
	if s.watcher != nil {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// The directory is watched because Save replaces the file by rename.
	if err := w.Add(filepath.Dir(s.path)); err != nil {
		w.Close()
		return err
	}
	s.watcher = w
	s.done = make(chan struct{})
	go s.watchLoop(w, s.done)
	return nil
}

func (s *FileStore) watchLoop(w *fsnotify.Watcher, done chan struct{}) {
	defer close(done)
	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != s.path {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) || ev.Has(fsnotify.Remove) {
				s.schedule()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			s.logf("[store] watch %s: %v", s.path, err)
		}
	}
}

func (s *FileStore) schedule() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, s.check)
}

// check signals listeners when the namespace differs from what this store
// last wrote or observed.
func (s *FileStore) check() {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	raw, err := s.readNamespace()
	if err != nil {
		s.logf("[store] re-read %s: %v", s.path, err)
		return
	}
	sum := sha256.Sum256(raw)

	s.mu.Lock()
	if s.closed || sum == s.digest {
		s.mu.Unlock()
		return
	}
	s.digest = sum
	s.mu.Unlock()

	s.listeners.notify()
}

// Close implements api.SettingsStore.
func (s *FileStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
	}
	w, done := s.watcher, s.done
	s.watcher = nil
	s.mu.Unlock()

	s.listeners.reset()
	if w == nil {
		return nil
	}
	err := w.Close()
	<-done
	return err
}
