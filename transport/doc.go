// File: transport/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package transport connects the command protocol to the development server's
// websocket proxy. The proxy is a process-wide named singleton holding one
// connection per registered URL; frames are handed to the registered handler
// on the connection's reader goroutine.
package transport
