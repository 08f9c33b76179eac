// File: host/bundle.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Bundle URL helpers: the "hot" query flag and network-vs-file detection.

package host

import (
	"net/url"
	"strconv"
)

// HotParam is the bundle URL query parameter toggling hot loading.
const HotParam = "hot"

// IsFileURL reports whether u points at a packaged file rather than a server.
func IsFileURL(u *url.URL) bool {
	return u != nil && (u.Scheme == "file" || (u.Scheme == "" && u.Host == ""))
}

// IsServed reports whether u is a network-served bundle.
func IsServed(u *url.URL) bool {
	return u != nil && !IsFileURL(u)
}

// HotFlag reads the boolean "hot" query flag; absent or malformed reads false.
func HotFlag(u *url.URL) bool {
	if u == nil {
		return false
	}
	on, err := strconv.ParseBool(u.Query().Get(HotParam))
	return err == nil && on
}

// WithHotFlag returns a copy of u with hot=true, or with the flag removed.
func WithHotFlag(u *url.URL, on bool) *url.URL {
	if u == nil {
		return nil
	}
	out := *u
	q := out.Query()
	if on {
		q.Set(HotParam, "true")
	} else {
		q.Del(HotParam)
	}
	out.RawQuery = q.Encode()
	return &out
}
