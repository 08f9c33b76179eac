// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package fake

import (
	"context"
	"sync"

	"github.com/momentics/hioload-devsupport/api"
)

// Store is an in-memory api.SettingsStore counting writes, with optional
// error injection and an Edit helper simulating an external edit.
type Store struct {
	mu       sync.Mutex
	data     map[string]any
	saves    int
	LoadErr  error
	SaveErr  error
	watchers map[int]func()
	nextID   int
}

var _ api.SettingsStore = (*Store)(nil)

// NewStore creates a store seeded with initial.
func NewStore(initial map[string]any) *Store {
	s := &Store{data: map[string]any{}, watchers: map[int]func(){}}
	for k, v := range initial {
		s.data[k] = v
	}
	return s
}

func (s *Store) Load(ctx context.Context) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.LoadErr != nil {
		return nil, s.LoadErr
	}
	out := make(map[string]any, len(s.data))
	for k, v := range s.data {
		out[k] = v
	}
	return out, nil
}

func (s *Store) Save(ctx context.Context, settings map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	if s.SaveErr != nil {
		return s.SaveErr
	}
	s.data = make(map[string]any, len(settings))
	for k, v := range settings {
		s.data[k] = v
	}
	return nil
}

func (s *Store) Watch(fn func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.watchers[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.watchers, id)
		s.mu.Unlock()
	}
}

func (s *Store) Close() error { return nil }

// Saves returns the number of Save calls.
func (s *Store) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// Watchers returns the number of active subscriptions.
func (s *Store) Watchers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.watchers)
}

// Data returns a copy of the persisted map.
func (s *Store) Data() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]any, len(s.data))
	for k, v := range s.data {
		out[k] = v
	}
	return out
}

// Edit replaces the persisted map as another process would, then fires the
// change signal.
func (s *Store) Edit(data map[string]any) {
	s.mu.Lock()
	s.data = make(map[string]any, len(data))
	for k, v := range data {
		s.data[k] = v
	}
	fns := make([]func(), 0, len(s.watchers))
	for _, fn := range s.watchers {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}
