// File: store/sqlite.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// SQLite backend on modernc.org/sqlite. One row per namespace holds the JSON
// encoded settings map. Foreign commits are detected by polling
// PRAGMA data_version on a dedicated connection.

package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/momentics/hioload-devsupport/api"
)

// DefaultPollInterval is the data_version polling period.
const DefaultPollInterval = 500 * time.Millisecond

// SQLiteOption customizes a SQLiteStore.
type SQLiteOption func(*SQLiteStore)

// WithPollInterval sets the change detection period.
func WithPollInterval(d time.Duration) SQLiteOption {
	return func(s *SQLiteStore) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithSQLiteLogf replaces the logger.
func WithSQLiteLogf(fn func(format string, args ...any)) SQLiteOption {
	return func(s *SQLiteStore) { s.logf = fn }
}

// SQLiteStore persists one namespace in a SQLite database.
type SQLiteStore struct {
	db        *sql.DB
	namespace string
	interval  time.Duration
	logf      func(format string, args ...any)

	listeners listeners

	// writeMu orders a Save's commit and digest update against poll.
	writeMu sync.Mutex

	mu     sync.Mutex
	digest [sha256.Size]byte
	cancel context.CancelFunc
	done   chan struct{}
	closed bool
}

var _ api.SettingsStore = (*SQLiteStore)(nil)

// OpenSQLite opens or creates the database at path.
func OpenSQLite(path, namespace string, opts ...SQLiteOption) (*SQLiteStore, error) {
	if path == "" || namespace == "" {
		return nil, api.ErrInvalidArgument
	}
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: opening database: %w", err)
	}
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS dev_settings (
		namespace TEXT PRIMARY KEY,
		data TEXT NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("store: creating table: %w", err)
	}

	s := &SQLiteStore{
		db:        db,
		namespace: namespace,
		interval:  DefaultPollInterval,
		logf:      log.Printf,
	}
	for _, opt := range opts {
		opt(s)
	}
	if raw, err := s.read(context.Background(), db); err == nil {
		s.digest = sha256.Sum256(raw)
	}
	return s, nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLiteStore) read(ctx context.Context, q queryer) ([]byte, error) {
	var data string
	err := q.QueryRowContext(ctx,
		`SELECT data FROM dev_settings WHERE namespace = ?`, s.namespace).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: reading namespace %q: %w", s.namespace, err)
	}
	return []byte(data), nil
}

// Load implements api.SettingsStore.
func (s *SQLiteStore) Load(ctx context.Context) (map[string]any, error) {
	raw, err := s.read(ctx, s.db)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, api.NewError(api.ErrCodePersistence, "store: decoding namespace").
			Wrap(err).WithContext("namespace", s.namespace)
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

// Save implements api.SettingsStore.
func (s *SQLiteStore) Save(ctx context.Context, settings map[string]any) error {
	encoded, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("store: encoding settings: %w", err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO dev_settings (namespace, data) VALUES (?, ?)
		 ON CONFLICT(namespace) DO UPDATE SET data = excluded.data`,
		s.namespace, string(encoded))
	if err != nil {
		return fmt.Errorf("store: writing namespace %q: %w", s.namespace, err)
	}
	s.mu.Lock()
	s.digest = sha256.Sum256(encoded)
	s.mu.Unlock()
	return nil
}

// Watch implements api.SettingsStore. The first subscriber starts polling.
func (s *SQLiteStore) Watch(fn func()) func() {
	stop, first := s.listeners.add(fn)
	if first {
		if err := s.startPolling(); err != nil {
			s.logf("[store] sqlite watch unavailable: %v", err)
		}
	}
	return stop
}

func (s *SQLiteStore) startPolling() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return api.ErrClosed
	}
	if s.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	conn, err := s.db.Conn(ctx)
	if err != nil {
		cancel()
		return err
	}
	version, err := dataVersion(ctx, conn)
	if err != nil {
		conn.Close()
		cancel()
		return err
	}
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.poll(ctx, conn, version, s.done)
	return nil
}

func dataVersion(ctx context.Context, conn *sql.Conn) (int64, error) {
	var v int64
	if err := conn.QueryRowContext(ctx, `PRAGMA data_version`).Scan(&v); err != nil {
		return 0, fmt.Errorf("store: data_version: %w", err)
	}
	return v, nil
}

// poll watches data_version on conn; it changes whenever another connection
// commits, including this store's own pool, so content digests decide.
func (s *SQLiteStore) poll(ctx context.Context, conn *sql.Conn, version int64, done chan struct{}) {
	defer close(done)
	defer conn.Close()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		v, err := dataVersion(ctx, conn)
		if err != nil {
			if ctx.Err() == nil {
				s.logf("[store] %v", err)
			}
			continue
		}
		if v == version {
			continue
		}
		version = v

		if s.changed(ctx, conn) {
			s.listeners.notify()
		}
	}
}

// changed re-reads the namespace and records its digest when it differs
// from the last one written or seen.
func (s *SQLiteStore) changed(ctx context.Context, conn *sql.Conn) bool {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	raw, err := s.read(ctx, conn)
	if err != nil {
		if ctx.Err() == nil {
			s.logf("[store] %v", err)
		}
		return false
	}
	sum := sha256.Sum256(raw)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || sum == s.digest {
		return false
	}
	s.digest = sum
	return true
}

// Close implements api.SettingsStore.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	s.listeners.reset()
	if cancel != nil {
		cancel()
		<-done
	}
	return s.db.Close()
}
