// Package livereload
// Author: momentics <momentics@gmail.com>
//
// Long-poll loop against the dev server's on-change endpoint. The server
// holds each request open until the bundle changes (answering 205) or its own
// timeout elapses; the client reloads on 205 and immediately re-polls on
// anything else.
//
// State machine:
//
//	Idle -> Polling -> Idle (cancelled)
//	                -> Reloading (205)
//	                -> Polling (retry)
package livereload
