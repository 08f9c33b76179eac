package normalize_test

import (
	"testing"

	"github.com/momentics/hioload-devsupport/internal/normalize"
)

func TestEqual(t *testing.T) {
	var nilMap map[string]int
	cases := []struct {
		name string
		a, b any
		want bool
	}{
		{"bools", true, true, true},
		{"bool differs", true, false, false},
		{"int vs float", 1, float64(1), true},
		{"int64 vs uint8", int64(7), uint8(7), true},
		{"numbers differ", 1, 1.5, false},
		{"nil vs typed nil", nil, nilMap, true},
		{"string", "a", "a", true},
		{"string vs bool", "true", true, false},
		{"nested maps", map[string]any{"x": 1}, map[string]float64{"x": 1}, true},
		{"slices", []int{1, 2}, []any{1.0, 2.0}, true},
		{"slices differ", []int{1, 2}, []int{2, 1}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := normalize.Equal(tc.a, tc.b); got != tc.want {
				t.Errorf("Equal(%#v, %#v) = %v, want %v", tc.a, tc.b, got, tc.want)
			}
		})
	}
}

func TestBoolAndString(t *testing.T) {
	if !normalize.Bool(true) || normalize.Bool(false) || normalize.Bool(nil) {
		t.Error("Bool mis-read plain booleans")
	}
	if !normalize.Bool(1) || normalize.Bool(0.0) {
		t.Error("Bool mis-read numeric flags")
	}
	if normalize.Bool("yes") {
		t.Error("malformed value must read as false")
	}
	if normalize.String(3) != "" || normalize.String("x") != "x" {
		t.Error("String mis-read")
	}
}
