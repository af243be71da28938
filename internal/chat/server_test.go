package chat

import (
	"bufio"
	"errors"
	"net"
	"strings"
	"testing"
	"time"
)

type testClient struct {
	name string
	conn net.Conn
	r    *bufio.Reader
}

func startServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	cfg.Addr = "127.0.0.1:0"
	cfg.MetricsAddr = ""
	srv := NewServer(cfg, nil)
	if err := srv.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() {
		srv.Stop()
	})
	return srv
}

func dial(t *testing.T, srv *Server, name string) *testClient {
	t.Helper()
	conn, err := net.Dial("tcp", srv.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	c := &testClient{name: name, conn: conn, r: bufio.NewReader(conn)}
	c.expect(t, UsernamePrompt)
	if name != "" {
		c.send(t, name)
	}
	return c
}

func (c *testClient) send(t *testing.T, line string) {
	t.Helper()
	if _, err := c.conn.Write([]byte(line + "\r\n")); err != nil {
		t.Fatalf("%s: write: %v", c.name, err)
	}
}

func (c *testClient) readLine(timeout time.Duration) (string, error) {
	c.conn.SetReadDeadline(time.Now().Add(timeout))
	line, err := c.r.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (c *testClient) expect(t *testing.T, want string) {
	t.Helper()
	got, err := c.readLine(2 * time.Second)
	if err != nil {
		t.Fatalf("%s: waiting for %q: %v", c.name, want, err)
	}
	if got != want {
		t.Fatalf("%s: got %q, want %q", c.name, got, want)
	}
}

func (c *testClient) expectNothing(t *testing.T) {
	t.Helper()
	got, err := c.readLine(100 * time.Millisecond)
	if err == nil {
		t.Fatalf("%s: unexpected line %q", c.name, got)
	}
	var netErr net.Error
	if !errors.As(err, &netErr) || !netErr.Timeout() {
		t.Fatalf("%s: expected read timeout, got %v", c.name, err)
	}
}

func TestServer_ThreePeerScenario(t *testing.T) {
	srv := startServer(t, *NewConfig())

	a := dial(t, srv, "A")
	waitFor(t, func() bool { return srv.Registry().Len() == 1 })

	b := dial(t, srv, "B")
	a.expect(t, "[B has joined the chat]")

	c := dial(t, srv, "C")
	a.expect(t, "[C has joined the chat]")
	b.expect(t, "[C has joined the chat]")

	a.send(t, "hi")
	b.expect(t, "A: hi")
	c.expect(t, "A: hi")
	a.expectNothing(t)

	c.conn.Close()
	a.expect(t, "[C has left the chat :(]")
	b.expect(t, "[C has left the chat :(]")
	a.expectNothing(t)
	b.expectNothing(t)

	waitFor(t, func() bool { return srv.Registry().Len() == 2 })
}

func TestServer_HandshakeAbortIsSilent(t *testing.T) {
	srv := startServer(t, *NewConfig())

	alice := dial(t, srv, "alice")
	waitFor(t, func() bool { return srv.Registry().Len() == 1 })

	ghost := dial(t, srv, "")
	ghost.conn.Close()

	alice.expectNothing(t)
	if n := srv.Registry().Len(); n != 1 {
		t.Fatalf("expected 1 registered peer, got %d", n)
	}
}

func TestServer_IdleTimeoutDisconnects(t *testing.T) {
	cfg := *NewConfig()
	cfg.IdleTimeout = 150 * time.Millisecond
	srv := startServer(t, cfg)

	watcher := dial(t, srv, "watcher")
	waitFor(t, func() bool { return srv.Registry().Len() == 1 })
	dial(t, srv, "idle")
	watcher.expect(t, "[idle has joined the chat]")

	// Keep the watcher busy so only the quiet client hits the deadline.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(30 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				watcher.conn.Write([]byte("tick\n"))
			case <-stop:
				return
			}
		}
	}()

	got, err := watcher.readLine(time.Second)
	if err != nil {
		t.Fatalf("watcher: %v", err)
	}
	if got != "[idle has left the chat :(]" {
		t.Fatalf("unexpected line %q", got)
	}
}

func TestServer_LineTooLongDropsConnection(t *testing.T) {
	cfg := *NewConfig()
	cfg.MaxLineLength = 16
	srv := startServer(t, cfg)

	a := dial(t, srv, "a")
	waitFor(t, func() bool { return srv.Registry().Len() == 1 })
	b := dial(t, srv, "b")
	a.expect(t, "[b has joined the chat]")

	b.send(t, strings.Repeat("x", 64))
	a.expect(t, "[b has left the chat :(]")
}

func TestServer_BindErrorIsReported(t *testing.T) {
	srv := startServer(t, *NewConfig())

	cfg := *NewConfig()
	cfg.Addr = srv.Addr().String()
	other := NewServer(cfg, nil)
	err := other.Start()

	var bindErr *BindError
	if !errors.As(err, &bindErr) {
		t.Fatalf("expected *BindError, got %v", err)
	}
	if bindErr.Addr != cfg.Addr {
		t.Fatalf("unexpected addr in error: %q", bindErr.Addr)
	}
}

func TestServer_StopClosesClients(t *testing.T) {
	cfg := *NewConfig()
	cfg.Addr = "127.0.0.1:0"
	cfg.MetricsAddr = ""
	srv := NewServer(cfg, nil)
	if err := srv.Start(); err != nil {
		t.Fatal(err)
	}

	a := dial(t, srv, "a")
	waitFor(t, func() bool { return srv.Registry().Len() == 1 })

	if err := srv.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if srv.Registry().Len() != 0 {
		t.Fatalf("expected empty registry after stop, have %v", srv.Registry().Usernames())
	}
	if _, err := a.readLine(time.Second); err == nil {
		t.Fatal("expected connection to be closed")
	}
	if err := srv.Start(); !errors.Is(err, ErrServerClosed) {
		t.Fatalf("expected ErrServerClosed on restart, got %v", err)
	}
}
