// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package transport_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/momentics/hioload-devsupport/api"
	"github.com/momentics/hioload-devsupport/transport"
)

type frame struct {
	data   string
	binary bool
}

func TestShellURL(t *testing.T) {
	cases := []struct {
		bundle string
		want   string
	}{
		{"http://localhost:8081/index.bundle?platform=ios", "http://localhost:8081/message?role=shell"},
		{"https://dev.example.com/main.bundle", "https://dev.example.com:8081/message?role=shell"},
		{"http://localhost/index.bundle", "http://localhost:8081/message?role=shell"},
		{"http://[::1]:9090/index.bundle", "http://[::1]:9090/message?role=shell"},
		{"http://[::1]/index.bundle", "http://[::1]:8081/message?role=shell"},
		{"http://10.0.2.2:8081/index.bundle", "http://10.0.2.2:8081/message?role=shell"},
		{"file:///app/main.jsbundle", ""},
		{"main.jsbundle", ""},
	}
	for _, c := range cases {
		u, err := url.Parse(c.bundle)
		if err != nil {
			t.Fatal(err)
		}
		got := transport.ShellURL(u)
		switch {
		case c.want == "" && got != nil:
			t.Errorf("%s: expected nil, got %s", c.bundle, got)
		case c.want != "" && (got == nil || got.String() != c.want):
			t.Errorf("%s: got %v, want %s", c.bundle, got, c.want)
		}
	}
	if transport.ShellURL(nil) != nil {
		t.Error("nil bundle must yield nil")
	}
}

// shellServer accepts shell connections and pushes the scripted frames to
// each one, closing the connection afterwards when hangup is set.
type shellServer struct {
	*httptest.Server
	mu     sync.Mutex
	conns  int
	closed chan struct{}
}

func newShellServer(t *testing.T, frames []frame, hangup bool) *shellServer {
	t.Helper()
	s := &shellServer{closed: make(chan struct{}, 16)}
	upgrader := websocket.Upgrader{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != transport.ShellPath || r.URL.Query().Get("role") != "shell" {
			http.NotFound(w, r)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		s.mu.Lock()
		s.conns++
		s.mu.Unlock()
		for _, f := range frames {
			kind := websocket.TextMessage
			if f.binary {
				kind = websocket.BinaryMessage
			}
			if err := conn.WriteMessage(kind, []byte(f.data)); err != nil {
				return
			}
		}
		if hangup {
			return
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				s.closed <- struct{}{}
				return
			}
		}
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *shellServer) shellURL() string {
	return s.URL + transport.ShellPath + "?" + transport.ShellQuery
}

func (s *shellServer) connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conns
}

func receive(t *testing.T, ch <-chan frame) frame {
	t.Helper()
	select {
	case f := <-ch:
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for frame")
		return frame{}
	}
}

func TestProxyDeliversFrames(t *testing.T) {
	srv := newShellServer(t, []frame{
		{data: `{"version":1,"target":"bridge","action":"reload"}`},
		{data: "\xa1\x01\x02", binary: true},
	}, false)

	p := transport.NewProxy(transport.WithLogf(t.Logf))
	defer p.Close()

	got := make(chan frame, 4)
	cancel, err := p.Register(srv.shellURL(), func(data []byte, binary bool) {
		got <- frame{data: string(data), binary: binary}
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if f := receive(t, got); f.binary || !strings.Contains(f.data, `"reload"`) {
		t.Fatalf("unexpected first frame %+v", f)
	}
	if f := receive(t, got); !f.binary || f.data != "\xa1\x01\x02" {
		t.Fatalf("unexpected second frame %+v", f)
	}
	if p.Active() != 1 {
		t.Fatalf("Active = %d, want 1", p.Active())
	}

	cancel()
	select {
	case <-srv.closed:
	case <-time.After(2 * time.Second):
		t.Fatal("server did not observe the connection closing")
	}
	if p.Active() != 0 {
		t.Fatalf("Active = %d after cancel", p.Active())
	}
	cancel()
}

func TestProxyReconnects(t *testing.T) {
	srv := newShellServer(t, []frame{{data: "ping"}}, true)

	p := transport.NewProxy(
		transport.WithLogf(t.Logf),
		transport.WithReconnectBackoff(5*time.Millisecond, 20*time.Millisecond))
	defer p.Close()

	got := make(chan frame, 16)
	cancel, err := p.Register(srv.shellURL(), func(data []byte, binary bool) {
		got <- frame{data: string(data), binary: binary}
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	defer cancel()

	receive(t, got)
	receive(t, got)
	if n := srv.connections(); n < 2 {
		t.Fatalf("connections = %d, want at least 2", n)
	}
}

func TestProxyRejectsInvalidRegistrations(t *testing.T) {
	p := transport.NewProxy(transport.WithLogf(t.Logf))

	if _, err := p.Register("ftp://host/message", func([]byte, bool) {}); !errors.Is(err, api.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for scheme, got %v", err)
	}
	if _, err := p.Register("http://localhost:8081/message", nil); !errors.Is(err, api.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for nil handler, got %v", err)
	}

	p.Close()
	if _, err := p.Register("http://localhost:8081/message", func([]byte, bool) {}); !errors.Is(err, api.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestDefaultIsSingleton(t *testing.T) {
	if transport.Default() != transport.Default() {
		t.Fatal("Default must return the same proxy")
	}
}
