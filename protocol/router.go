// File: protocol/router.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Router dispatches decoded commands to registered (target, action) handlers.
// It must run on the owning execution context; the transport re-dispatches
// frames there before calling HandleFrame.

package protocol

import (
	"errors"
	"log"

	"github.com/momentics/hioload-devsupport/api"
	"github.com/momentics/hioload-devsupport/control"
)

// HandlerFunc performs one command.
type HandlerFunc func(msg *CommandMessage)

type route struct {
	target, action string
}

// Router is the command dispatcher.
type Router struct {
	handlers map[route]HandlerFunc
	metrics  *control.MetricsRegistry
	logf     func(format string, args ...any)
	verbose  bool
}

// RouterOption customizes a Router.
type RouterOption func(*Router)

// WithMetrics counts dispatched and dropped messages.
func WithMetrics(m *control.MetricsRegistry) RouterOption {
	return func(r *Router) { r.metrics = m }
}

// WithLogf logs every dropped frame through fn.
func WithLogf(fn func(format string, args ...any)) RouterOption {
	return func(r *Router) {
		r.logf = fn
		r.verbose = true
	}
}

// NewRouter creates an empty router.
func NewRouter(opts ...RouterOption) *Router {
	r := &Router{
		handlers: make(map[route]HandlerFunc),
		logf:     log.Printf,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Handle registers fn for (target, action), replacing any previous handler.
func (r *Router) Handle(target, action string, fn HandlerFunc) {
	r.handlers[route{target, action}] = fn
}

// HandleFrame decodes and dispatches one frame. The returned error is
// informational; protocol errors never propagate to the sender.
func (r *Router) HandleFrame(frame []byte, binary bool) error {
	msg, err := Decode(frame, binary)
	if err != nil {
		r.drop(err)
		return err
	}
	r.Dispatch(msg)
	return nil
}

// Dispatch runs the handler for a decoded message. Unsupported versions and
// unknown (target, action) pairs are no-ops. It reports whether a handler ran.
func (r *Router) Dispatch(msg *CommandMessage) bool {
	if msg == nil || !Supported(msg.Version) {
		return false
	}
	fn, ok := r.handlers[route{msg.Target, msg.Action}]
	if !ok {
		return false
	}
	if r.metrics != nil {
		r.metrics.Inc(control.MetricCommandsDispatched)
	}
	fn(msg)
	return true
}

func (r *Router) drop(err error) {
	if r.metrics != nil {
		r.metrics.Inc(control.MetricCommandsDropped)
	}
	if r.verbose {
		var kind string
		switch {
		case errors.Is(err, api.ErrUnsupportedVersion):
			kind = "unsupported"
		default:
			kind = "malformed"
		}
		r.logf("[router] dropped %s frame: %v", kind, err)
	}
}
