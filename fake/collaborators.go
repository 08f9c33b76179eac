// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package fake

import "sync"

// Alert is one recorded Alerter message.
type Alert struct {
	Title, Message string
}

// Alerter records alerts.
type Alerter struct {
	mu     sync.Mutex
	alerts []Alert
}

func (a *Alerter) Alert(title, message string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.alerts = append(a.alerts, Alert{Title: title, Message: message})
}

// Alerts returns a copy of recorded alerts.
func (a *Alerter) Alerts() []Alert {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Alert(nil), a.alerts...)
}

// Reporter records reported traces.
type Reporter struct {
	mu     sync.Mutex
	traces [][]byte
}

func (r *Reporter) ReportTrace(trace []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.traces = append(r.traces, trace)
}

// Traces returns a copy of reported traces.
func (r *Reporter) Traces() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]byte(nil), r.traces...)
}

// LiveReload records engine calls in place of the live reload loop.
type LiveReload struct {
	Endpoint string
	Calls    []bool
}

func (l *LiveReload) SetEnabled(enabled bool) { l.Calls = append(l.Calls, enabled) }
func (l *LiveReload) URL() string             { return l.Endpoint }
