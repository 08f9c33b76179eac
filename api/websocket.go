// File: api/websocket.go
// Author: momentics <momentics@gmail.com>
//
// Defines the pre-established duplex message channel used by the command protocol.

package api

// MessageChannel is the websocket-proxy contract. Register attaches handler to
// the connection identified by url; the returned cancel func detaches it.
type MessageChannel interface {
	Register(url string, handler FrameHandler) (cancel func(), err error)
}
