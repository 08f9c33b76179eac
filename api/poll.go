// Package api
// Author: momentics
//
// Long-poll request contract used by the live reload loop.

package api

import "context"

// Poller issues one long-poll request and reports the response status.
// Implementations must abort promptly when ctx is cancelled.
type Poller interface {
	Poll(ctx context.Context, url string) (status int, err error)
}
