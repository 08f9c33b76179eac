// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package livereload

import (
	"context"
	"io"
	"net/http"

	"github.com/momentics/hioload-devsupport/api"
)

// StatusChanged is the dev server's "bundle changed" answer.
const StatusChanged = http.StatusResetContent // 205

// HTTPPoller performs long-poll GET requests. It sets no timeout of its own:
// the server decides how long to hold the request.
type HTTPPoller struct {
	Client *http.Client
}

var _ api.Poller = (*HTTPPoller)(nil)

// NewHTTPPoller creates a poller using a dedicated client without timeout.
func NewHTTPPoller() *HTTPPoller {
	return &HTTPPoller{Client: &http.Client{}}
}

// Poll issues one request and returns the response status.
func (p *HTTPPoller) Poll(ctx context.Context, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	return resp.StatusCode, nil
}
