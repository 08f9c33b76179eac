// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package fake

import (
	"sync"

	"github.com/momentics/hioload-devsupport/api"
)

// Channel is an api.MessageChannel whose frames are injected by the test.
type Channel struct {
	mu       sync.Mutex
	handlers map[string]api.FrameHandler
	urls     []string
	Err      error
}

var _ api.MessageChannel = (*Channel)(nil)

// NewChannel creates an empty channel.
func NewChannel() *Channel {
	return &Channel{handlers: make(map[string]api.FrameHandler)}
}

func (c *Channel) Register(url string, h api.FrameHandler) (func(), error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	c.handlers[url] = h
	c.urls = append(c.urls, url)
	return func() {
		c.mu.Lock()
		delete(c.handlers, url)
		c.mu.Unlock()
	}, nil
}

// URLs returns every URL registered so far.
func (c *Channel) URLs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.urls...)
}

// Active reports whether a handler is attached to url.
func (c *Channel) Active(url string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.handlers[url]
	return ok
}

// Deliver sends a text frame to the handler registered for url.
func (c *Channel) Deliver(url string, frame []byte) bool {
	return c.deliver(url, frame, false)
}

// DeliverBinary sends a binary frame to the handler registered for url.
func (c *Channel) DeliverBinary(url string, frame []byte) bool {
	return c.deliver(url, frame, true)
}

func (c *Channel) deliver(url string, frame []byte, binary bool) bool {
	c.mu.Lock()
	h, ok := c.handlers[url]
	c.mu.Unlock()
	if !ok {
		return false
	}
	h(frame, binary)
	return true
}
