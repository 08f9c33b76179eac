// File: transport/proxy.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Websocket proxy client. Each registration owns a reader goroutine that
// dials, delivers frames and redials with capped backoff until cancelled.

package transport

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/momentics/hioload-devsupport/api"
)

const (
	defaultMinBackoff = 250 * time.Millisecond
	defaultMaxBackoff = 10 * time.Second
)

// ProxyOption customizes a Proxy.
type ProxyOption func(*Proxy)

// WithDialer replaces the websocket dialer.
func WithDialer(d *websocket.Dialer) ProxyOption {
	return func(p *Proxy) { p.dialer = d }
}

// WithReconnectBackoff bounds the redial delay.
func WithReconnectBackoff(min, max time.Duration) ProxyOption {
	return func(p *Proxy) {
		p.minBackoff = min
		p.maxBackoff = max
		if p.maxBackoff < p.minBackoff {
			p.maxBackoff = p.minBackoff
		}
	}
}

// WithLogf replaces the logger.
func WithLogf(fn func(format string, args ...any)) ProxyOption {
	return func(p *Proxy) { p.logf = fn }
}

// Proxy is the websocket-proxy singleton implementing api.MessageChannel.
type Proxy struct {
	dialer     *websocket.Dialer
	minBackoff time.Duration
	maxBackoff time.Duration
	logf       func(format string, args ...any)

	mu     sync.Mutex
	nextID uint64
	regs   map[uint64]*registration
	closed bool
}

var _ api.MessageChannel = (*Proxy)(nil)

var (
	defaultOnce  sync.Once
	defaultProxy *Proxy
)

// Default returns the process-wide proxy.
func Default() *Proxy {
	defaultOnce.Do(func() {
		defaultProxy = NewProxy()
	})
	return defaultProxy
}

// NewProxy creates a standalone proxy client.
func NewProxy(opts ...ProxyOption) *Proxy {
	p := &Proxy{
		dialer:     websocket.DefaultDialer,
		minBackoff: defaultMinBackoff,
		maxBackoff: defaultMaxBackoff,
		logf:       log.Printf,
		regs:       make(map[uint64]*registration),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type registration struct {
	url     string
	handler api.FrameHandler
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}

	mu   sync.Mutex
	conn *websocket.Conn
}

// Register attaches handler to the connection for url and starts its reader.
// The returned cancel detaches the handler and closes the connection.
func (p *Proxy) Register(url string, handler api.FrameHandler) (func(), error) {
	if handler == nil {
		return nil, api.ErrInvalidArgument
	}
	target, err := dialURL(url)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	reg := &registration{
		url:     target,
		handler: handler,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		cancel()
		return nil, api.ErrClosed
	}
	p.nextID++
	id := p.nextID
	p.regs[id] = reg
	p.mu.Unlock()

	go p.run(reg)

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.regs, id)
			p.mu.Unlock()
			reg.stop()
		})
	}, nil
}

// Active returns the number of live registrations.
func (p *Proxy) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.regs)
}

// Close cancels every registration and rejects new ones.
func (p *Proxy) Close() error {
	p.mu.Lock()
	regs := p.regs
	p.regs = make(map[uint64]*registration)
	p.closed = true
	p.mu.Unlock()

	for _, reg := range regs {
		reg.stop()
		<-reg.done
	}
	return nil
}

func (r *registration) stop() {
	r.cancel()
	r.mu.Lock()
	if r.conn != nil {
		r.conn.Close()
	}
	r.mu.Unlock()
}

func (p *Proxy) run(reg *registration) {
	defer close(reg.done)

	backoff := p.minBackoff
	for reg.ctx.Err() == nil {
		conn, _, err := p.dialer.DialContext(reg.ctx, reg.url, nil)
		if err != nil {
			if reg.ctx.Err() != nil {
				return
			}
			p.logf("[transport] dial %s failed: %v", reg.url, err)
			if !sleep(reg.ctx, backoff) {
				return
			}
			backoff = next(backoff, p.maxBackoff)
			continue
		}
		backoff = p.minBackoff

		reg.mu.Lock()
		if reg.ctx.Err() != nil {
			reg.mu.Unlock()
			conn.Close()
			return
		}
		reg.conn = conn
		reg.mu.Unlock()

		err = p.read(reg, conn)

		reg.mu.Lock()
		reg.conn = nil
		reg.mu.Unlock()
		conn.Close()

		if reg.ctx.Err() != nil {
			return
		}
		p.logf("[transport] connection to %s lost: %v", reg.url, err)
		if !sleep(reg.ctx, backoff) {
			return
		}
	}
}

func (p *Proxy) read(reg *registration, conn *websocket.Conn) error {
	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if reg.ctx.Err() != nil {
			return reg.ctx.Err()
		}
		switch kind {
		case websocket.TextMessage:
			reg.handler(data, false)
		case websocket.BinaryMessage:
			reg.handler(data, true)
		}
	}
}

func next(cur, max time.Duration) time.Duration {
	cur *= 2
	if cur > max {
		return max
	}
	return cur
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
