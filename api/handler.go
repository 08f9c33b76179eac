// File: api/handler.go
// Package api defines inbound frame handlers.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// FrameHandler receives one inbound transport frame. binary reports whether
// the frame arrived as a binary websocket message.
type FrameHandler func(frame []byte, binary bool)
