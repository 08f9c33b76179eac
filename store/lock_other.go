//go:build !unix

// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package store

// lockFile is a no-op where flock is unavailable; writers still rely on
// atomic rename.
func lockFile(path string, exclusive bool) (unlock func(), err error) {
	return func() {}, nil
}
