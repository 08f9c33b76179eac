// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package store

import "sync"

// listeners is the change callback set shared by the backends.
type listeners struct {
	mu     sync.Mutex
	fns    map[int]func()
	nextID int
}

func (l *listeners) add(fn func()) (stop func(), first bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fns == nil {
		l.fns = make(map[int]func())
	}
	id := l.nextID
	l.nextID++
	l.fns[id] = fn
	return func() {
		l.mu.Lock()
		delete(l.fns, id)
		l.mu.Unlock()
	}, len(l.fns) == 1
}

func (l *listeners) reset() {
	l.mu.Lock()
	l.fns = nil
	l.mu.Unlock()
}

// notify calls every listener outside the lock.
func (l *listeners) notify() {
	l.mu.Lock()
	fns := make([]func(), 0, len(l.fns))
	for _, fn := range l.fns {
		fns = append(fns, fn)
	}
	l.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}
