// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types and error handling utilities for hioload-devsupport.

package api

import "fmt"

// Common errors used across the module.
var (
	ErrClosed             = fmt.Errorf("component is closed")
	ErrInvalidArgument    = fmt.Errorf("invalid argument")
	ErrNotFound           = fmt.Errorf("resource not found")
	ErrQueueFull          = fmt.Errorf("execution queue is full")
	ErrMalformedMessage   = fmt.Errorf("malformed command message")
	ErrUnsupportedVersion = fmt.Errorf("unsupported protocol version")
)

// ErrorCode represents specific error conditions in the module.
type ErrorCode int

const (
	ErrCodeProtocol ErrorCode = iota + 1
	ErrCodePersistence
)

// Error represents a structured error with code and context.
type Error struct {
	Code    ErrorCode
	Message string
	Context map[string]any
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	if len(e.Context) == 0 {
		return msg
	}
	return fmt.Sprintf("%s (context: %+v)", msg, e.Context)
}

// Unwrap exposes the wrapped cause to errors.Is / errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new structured error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Context: make(map[string]any),
	}
}

// Wrap attaches a cause to the error.
func (e *Error) Wrap(err error) *Error {
	e.Err = err
	return e
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}
