// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package fake

import (
	"context"
	"sync"
	"time"

	"github.com/momentics/hioload-devsupport/api"
)

// PollCall is one in-flight request observed by Poller.
type PollCall struct {
	URL   string
	Ctx   context.Context
	reply chan pollResult
}

type pollResult struct {
	status int
	err    error
}

// Respond completes the request.
func (c *PollCall) Respond(status int, err error) {
	c.reply <- pollResult{status: status, err: err}
}

// Poller hands each request to the test and blocks until Respond or until the
// request context is cancelled.
type Poller struct {
	mu    sync.Mutex
	count int
	calls chan *PollCall
}

var _ api.Poller = (*Poller)(nil)

// NewPoller creates a scripted poller.
func NewPoller() *Poller {
	return &Poller{calls: make(chan *PollCall, 64)}
}

func (p *Poller) Poll(ctx context.Context, url string) (int, error) {
	call := &PollCall{URL: url, Ctx: ctx, reply: make(chan pollResult, 1)}
	p.mu.Lock()
	p.count++
	p.mu.Unlock()
	p.calls <- call
	select {
	case r := <-call.reply:
		return r.status, r.err
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Next waits up to timeout for the next request.
func (p *Poller) Next(timeout time.Duration) (*PollCall, bool) {
	select {
	case c := <-p.calls:
		return c, true
	case <-time.After(timeout):
		return nil, false
	}
}

// Count returns the number of requests issued so far.
func (p *Poller) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.count
}
