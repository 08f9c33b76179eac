// File: settings/snapshot.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Immutable settings snapshots. Every mutation produces a fresh map so the
// engine, the store and callers never share a map value.

package settings

// Snapshot is a settings map treated as immutable once published.
type Snapshot map[string]any

// Clone returns a copy of s, never nil. Nested maps and slices are copied too.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for k, v := range s {
		out[k] = cloneValue(v)
	}
	return out
}

// With returns a copy of s with key set to v, or removed when v is nil.
func (s Snapshot) With(key string, v any) Snapshot {
	out := s.Clone()
	if v == nil {
		delete(out, key)
	} else {
		out[key] = cloneValue(v)
	}
	return out
}

// Map returns a plain map copy suitable for handing to a store.
func (s Snapshot) Map() map[string]any {
	return map[string]any(s.Clone())
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return map[string]any(Snapshot(t).Clone())
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	}
	return v
}
