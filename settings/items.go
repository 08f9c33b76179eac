// File: settings/items.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Developer menu items: stateless buttons and persisted toggles.

package settings

import "github.com/momentics/hioload-devsupport/internal/normalize"

// Item is an entry exposed to the menu collaborator for rendering.
type Item interface {
	DisplayTitle() string
	Invoke()
}

// ButtonItem fires its handler unconditionally on every invocation.
type ButtonItem struct {
	Title   string
	handler func()
}

// NewButton creates a stateless button item.
func NewButton(title string, handler func()) *ButtonItem {
	return &ButtonItem{Title: title, handler: handler}
}

func (b *ButtonItem) DisplayTitle() string { return b.Title }

// Invoke calls the handler.
func (b *ButtonItem) Invoke() {
	if b.handler != nil {
		b.handler()
	}
}

// ToggleItem is a named persisted setting with a change handler. The handler
// fires only on transitions, and sees the new state.
type ToggleItem struct {
	Key           string
	Title         string
	SelectedTitle string
	Hotkey        string

	value   any
	handler func(selected bool)
	// invoke flips the toggle through the owning engine; set on registration.
	invoke func()
}

// NewToggle creates a toggle item bound to key.
func NewToggle(key, title, selectedTitle, hotkey string, handler func(selected bool)) *ToggleItem {
	return &ToggleItem{
		Key:           key,
		Title:         title,
		SelectedTitle: selectedTitle,
		Hotkey:        hotkey,
		handler:       handler,
	}
}

// Value returns the last applied value, nil when never set.
func (t *ToggleItem) Value() any { return t.value }

// Selected reports the boolean reading of the current value.
func (t *ToggleItem) Selected() bool { return normalize.Bool(t.value) }

// DisplayTitle returns SelectedTitle while selected, when one is provided.
func (t *ToggleItem) DisplayTitle() string {
	if t.Selected() && t.SelectedTitle != "" {
		return t.SelectedTitle
	}
	return t.Title
}

// Invoke flips the toggle. Unregistered toggles flip in memory only.
func (t *ToggleItem) Invoke() {
	if t.invoke != nil {
		t.invoke()
		return
	}
	t.apply(!t.Selected())
}

// apply records v and fires the handler iff v differs from the current value.
// The value is updated before the handler runs so a re-entrant apply with the
// same value is a no-op.
func (t *ToggleItem) apply(v any) bool {
	if normalize.Equal(t.value, v) {
		return false
	}
	t.value = v
	if t.handler != nil {
		t.handler(normalize.Bool(v))
	}
	return true
}
