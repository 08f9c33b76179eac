// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package livereload

import (
	"context"
	"log"
	"net/url"
	"time"

	"github.com/momentics/hioload-devsupport/api"
	"github.com/momentics/hioload-devsupport/control"
)

// Option customizes a Loop.
type Option func(*Loop)

// WithErrorBackoff delays re-polls after transport errors, doubling from min
// up to max. Non-error responses always re-poll immediately. Zero min keeps
// the immediate retry.
func WithErrorBackoff(min, max time.Duration) Option {
	return func(l *Loop) {
		l.minBackoff = min
		l.maxBackoff = max
		if l.maxBackoff < l.minBackoff {
			l.maxBackoff = l.minBackoff
		}
	}
}

// WithMetrics counts issued polls.
func WithMetrics(m *control.MetricsRegistry) Option {
	return func(l *Loop) { l.metrics = m }
}

// WithLogf replaces the warning logger.
func WithLogf(fn func(format string, args ...any)) Option {
	return func(l *Loop) { l.logf = fn }
}

type inflight struct {
	id     uint64
	cancel context.CancelFunc
}

// Loop is the live reload long-poll cycle. All methods except the poll
// goroutine itself run on the owning executor; completions are re-dispatched
// there through exec.Submit.
type Loop struct {
	exec    api.Executor
	poller  api.Poller
	reload  func()
	metrics *control.MetricsRegistry
	logf    func(format string, args ...any)

	scriptLoaded bool
	enabled      bool
	url          string

	current *inflight
	nextID  uint64
	// restartID is the aborted poll whose completion issues the replacement.
	restartID uint64

	minBackoff time.Duration
	maxBackoff time.Duration
	backoff    time.Duration
	retry      *time.Timer
}

// New creates an idle loop. reload is invoked when the server reports a change.
func New(exec api.Executor, poller api.Poller, reload func(), opts ...Option) *Loop {
	l := &Loop{
		exec:   exec,
		poller: poller,
		reload: reload,
		logf:   log.Printf,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// ScriptLoaded records that the host finished loading a script from script
// and derives the endpoint from it. A nil script leaves live reload inactive.
func (l *Loop) ScriptLoaded(script *url.URL) {
	l.scriptLoaded = true
	l.url = ""
	if script == nil {
		l.logf("[livereload] script URL has not been set, live reload unavailable")
		return
	}
	if u := OnChangeURL(script); u != nil {
		l.url = u.String()
	}
}

// URL returns the derived on-change endpoint, "" when unknown.
func (l *Loop) URL() string { return l.url }

// Enabled reports the live reload setting as last recorded.
func (l *Loop) Enabled() bool { return l.enabled }

// Polling reports whether a request is in flight.
func (l *Loop) Polling() bool { return l.current != nil }

// SetEnabled records the setting; true calls Start, false calls Cancel.
func (l *Loop) SetEnabled(enabled bool) {
	l.enabled = enabled
	if enabled {
		l.Start()
		return
	}
	l.Cancel()
}

// Start issues a poll when a script has loaded, live reload is enabled and
// the endpoint is known. With a poll already in flight Start cancels it
// instead; the cancelled poll's completion then issues the replacement.
func (l *Loop) Start() {
	if !l.scriptLoaded || !l.enabled || l.url == "" {
		return
	}
	if l.current != nil {
		l.restartID = l.current.id
		l.abort()
		return
	}
	l.stopRetry()
	l.issue()
}

// Cancel aborts the in-flight request and any pending retry. Safe when idle.
func (l *Loop) Cancel() {
	l.restartID = 0
	l.abort()
	l.stopRetry()
	l.backoff = 0
}

// Close disables the loop permanently for teardown.
func (l *Loop) Close() {
	l.enabled = false
	l.Cancel()
}

func (l *Loop) abort() {
	if l.current != nil {
		l.current.cancel()
		l.current = nil
	}
}

func (l *Loop) stopRetry() {
	if l.retry != nil {
		l.retry.Stop()
		l.retry = nil
	}
}

func (l *Loop) issue() {
	l.nextID++
	id := l.nextID
	l.restartID = 0
	ctx, cancel := context.WithCancel(context.Background())
	l.current = &inflight{id: id, cancel: cancel}
	if l.metrics != nil {
		l.metrics.Inc(control.MetricPolls)
	}

	target := l.url
	go func() {
		status, err := l.poller.Poll(ctx, target)
		if subErr := l.exec.Submit(func() { l.complete(id, status, err) }); subErr != nil {
			cancel()
		}
	}()
}

// complete handles a poll result on the owning context. Only the in-flight
// poll is judged on its result. A poll aborted by Start only issues its
// replacement; any other aborted or superseded poll is discarded, as is
// everything arriving after live reload was disabled.
func (l *Loop) complete(id uint64, status int, err error) {
	switch {
	case l.current != nil && l.current.id == id:
		l.current.cancel()
		l.current = nil
	case l.current == nil && id == l.restartID:
		l.restartID = 0
		l.Start()
		return
	default:
		return
	}
	if !l.enabled {
		return
	}

	if err == nil && status == StatusChanged {
		l.backoff = 0
		l.reload()
		return
	}

	if err != nil && l.minBackoff > 0 {
		l.scheduleRetry()
		return
	}
	l.backoff = 0
	l.Start()
}

func (l *Loop) scheduleRetry() {
	if l.backoff == 0 {
		l.backoff = l.minBackoff
	} else {
		l.backoff *= 2
		if l.backoff > l.maxBackoff {
			l.backoff = l.maxBackoff
		}
	}
	l.stopRetry()
	var timer *time.Timer
	timer = time.AfterFunc(l.backoff, func() {
		l.exec.Submit(func() {
			if l.retry != timer {
				return
			}
			l.retry = nil
			l.Start()
		})
	})
	l.retry = timer
}
