// Package api
// Author: momentics
//
// Function adapters for host-supplied collaborators.

package api

// AlerterFunc adapts a function to Alerter.
type AlerterFunc func(title, message string)

func (f AlerterFunc) Alert(title, message string) { f(title, message) }

// TraceReporterFunc adapts a function to TraceReporter.
type TraceReporterFunc func(trace []byte)

func (f TraceReporterFunc) ReportTrace(trace []byte) { f(trace) }
