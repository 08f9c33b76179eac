// File: protocol/message.go
// Package protocol implements the dev-server command protocol.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// A command message names a target, an action on it and free-form options.
// Messages are advisory and unacknowledged: anything that does not decode or
// carries an unsupported version is dropped so client and server may skew.

package protocol

import (
	"strconv"
	"strings"
)

// Well-known targets and actions.
const (
	TargetBridge = "bridge"
	ActionReload = "reload"

	// OptionDebug requests the remote-debugging executor before reloading.
	OptionDebug = "debug"
)

// SupportedVersions lists the protocol versions this client dispatches.
var SupportedVersions = []int{1}

// MaxFramePayload bounds a single inbound frame.
const MaxFramePayload = 1 << 20 // 1 MiB

// CommandMessage is one decoded inbound frame.
type CommandMessage struct {
	Version int
	Target  string
	Action  string
	Options map[string]any
}

// Bool reads a boolean option. Non-zero numbers count as true and strings
// are parsed with strconv.ParseBool; missing or unparsable values read as
// false.
func (m *CommandMessage) Bool(name string) bool {
	switch v := m.Options[name].(type) {
	case bool:
		return v
	case float64:
		return v != 0
	case int64:
		return v != 0
	case uint64:
		return v != 0
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		return err == nil && b
	case nil:
		return false
	}
	return true
}

// Supported reports whether v is one of SupportedVersions.
func Supported(v int) bool {
	for _, s := range SupportedVersions {
		if s == v {
			return true
		}
	}
	return false
}
