// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package transport

import (
	"fmt"
	"net"
	"net/url"

	"github.com/momentics/hioload-devsupport/api"
	"github.com/momentics/hioload-devsupport/host"
)

const (
	// ShellPath is the proxy endpoint for the shell role.
	ShellPath = "/message"
	// ShellQuery selects the shell role on the proxy.
	ShellQuery = "role=shell"
	// DefaultPackagerPort is used when the bundle URL names no port.
	DefaultPackagerPort = "8081"
)

// ShellURL derives the proxy registration URL from the bundle origin:
// {scheme}://{host}:{port}/message?role=shell, with DefaultPackagerPort when
// the bundle names none. Bundles without a network origin yield nil and the
// protocol stays inactive.
func ShellURL(bundle *url.URL) *url.URL {
	if bundle == nil || bundle.Host == "" || !host.IsServed(bundle) {
		return nil
	}
	port := bundle.Port()
	if port == "" {
		port = DefaultPackagerPort
	}
	return &url.URL{
		Scheme:   bundle.Scheme,
		Host:     net.JoinHostPort(bundle.Hostname(), port),
		Path:     ShellPath,
		RawQuery: ShellQuery,
	}
}

// dialURL maps http(s) origins onto ws(s) for the websocket dialer.
func dialURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", api.ErrInvalidArgument, err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("%w: unsupported scheme %q", api.ErrInvalidArgument, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: missing host in %q", api.ErrInvalidArgument, raw)
	}
	return u.String(), nil
}
