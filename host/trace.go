// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package host

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/momentics/hioload-devsupport/api"
)

// FileTraceReporter writes each captured profile to its own file in Dir.
type FileTraceReporter struct {
	Dir  string
	Logf func(format string, args ...any)

	mu    sync.Mutex
	paths []string
}

var _ api.TraceReporter = (*FileTraceReporter)(nil)

// NewFileTraceReporter creates a reporter writing into dir.
func NewFileTraceReporter(dir string) *FileTraceReporter {
	return &FileTraceReporter{Dir: dir, Logf: log.Printf}
}

// ReportTrace stores trace as trace-<uuid>.pprof. Failures are logged.
func (r *FileTraceReporter) ReportTrace(trace []byte) {
	path, err := r.write(trace)
	if err != nil {
		logf := r.Logf
		if logf == nil {
			logf = log.Printf
		}
		logf("[host] report trace: %v", err)
		return
	}
	r.mu.Lock()
	r.paths = append(r.paths, path)
	r.mu.Unlock()
}

func (r *FileTraceReporter) write(trace []byte) (string, error) {
	if err := os.MkdirAll(r.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", r.Dir, err)
	}
	path := filepath.Join(r.Dir, "trace-"+uuid.NewString()+".pprof")
	if err := os.WriteFile(path, trace, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// Paths returns the files written so far.
func (r *FileTraceReporter) Paths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}
