// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package livereload

import (
	"net/url"

	"github.com/momentics/hioload-devsupport/host"
)

// OnChangePath is the endpoint path polled for changes.
const OnChangePath = "/onchange"

// OnChangeURL derives the on-change endpoint from the loaded script URL:
// same origin, path replaced, query dropped. Scripts loaded from a packaged
// file have no endpoint and yield nil.
func OnChangeURL(script *url.URL) *url.URL {
	if script == nil || !host.IsServed(script) {
		return nil
	}
	return script.ResolveReference(&url.URL{Path: OnChangePath})
}
