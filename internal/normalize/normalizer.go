// File: internal/normalize/normalizer.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Value normalization for persisted developer settings. Values reach the
// engine from several codecs (JSON decodes numbers as float64, SQLite blobs
// may yield int64, callers pass int or bool), so change detection compares
// normalized forms rather than raw Go values.
//
// Example usage:
//
//   if !normalize.Equal(prev, next) {
//       fire(next)
//   }

package normalize

import (
	"reflect"
)

// Value converts v into a canonical representation:
//   - every integer, unsigned and float kind becomes float64
//   - typed nil pointers, maps and slices become untyped nil
//   - map[string]T becomes map[string]any, []T becomes []any, recursively
//
// Other values are returned unchanged.
func Value(v any) any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return Value(rv.Elem().Interface())
	case reflect.Map:
		if rv.IsNil() {
			return nil
		}
		if rv.Type().Key().Kind() != reflect.String {
			return v
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = Value(iter.Value().Interface())
		}
		return out
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return nil
		}
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out[i] = Value(rv.Index(i).Interface())
		}
		return out
	}
	return v
}

// Equal reports value-equality of a and b after normalization.
func Equal(a, b any) bool {
	return reflect.DeepEqual(Value(a), Value(b))
}

// Bool interprets a persisted value as a boolean flag. Missing or malformed
// values read as false.
func Bool(v any) bool {
	switch t := Value(v).(type) {
	case bool:
		return t
	case float64:
		return t != 0
	}
	return false
}

// String interprets a persisted value as a string; anything else reads as "".
func String(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
