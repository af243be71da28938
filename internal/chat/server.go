package chat

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Server struct {
	cfg    Config
	logger *slog.Logger
	reg    *Registry

	mu       sync.Mutex
	closed   bool
	listener net.Listener
	wsServer *http.Server
	conns    map[LineConn]struct{}
	wg       sync.WaitGroup
}

func NewServer(cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.sanitize()
	return &Server{
		cfg:    cfg,
		logger: logger,
		reg:    NewRegistry(cfg.MailboxSize, logger),
		conns:  make(map[LineConn]struct{}),
	}
}

// Registry exposes the peer registry, mainly for inspection.
func (s *Server) Registry() *Registry {
	return s.reg
}

// Addr returns the bound TCP address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Start binds the TCP listener (and the websocket gateway if configured) and
// begins accepting in the background. A bind failure is returned as *BindError.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return &BindError{Addr: s.cfg.Addr, Err: err}
	}

	var wsLn net.Listener
	if s.cfg.WebSocketAddr != "" {
		wsLn, err = net.Listen("tcp", s.cfg.WebSocketAddr)
		if err != nil {
			ln.Close()
			return &BindError{Addr: s.cfg.WebSocketAddr, Err: err}
		}
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		ln.Close()
		if wsLn != nil {
			wsLn.Close()
		}
		return ErrServerClosed
	}
	s.listener = ln
	if wsLn != nil {
		mux := http.NewServeMux()
		mux.Handle("/ws", s.WebSocketHandler())
		s.wsServer = &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
	}
	wsServer := s.wsServer
	s.mu.Unlock()

	go s.acceptLoop(ln)
	s.logger.Info("server started", "addr", ln.Addr().String())

	if wsServer != nil {
		go func() {
			if err := wsServer.Serve(wsLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.logger.Error("websocket gateway stopped", "error", err)
			}
		}()
		s.logger.Info("websocket gateway started", "addr", wsLn.Addr().String())
	}
	return nil
}

// Stop closes the listeners and every live connection, then waits for the
// session goroutines up to the configured shutdown timeout.
func (s *Server) Stop() error {
	s.logger.Info("shutting down")

	s.mu.Lock()
	s.closed = true
	if s.listener != nil {
		s.listener.Close()
	}
	wsServer := s.wsServer
	conns := make([]LineConn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	if wsServer != nil {
		wsServer.Close()
	}
	for _, c := range conns {
		_ = c.Close()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-time.After(s.cfg.ShutdownTimeout):
		err = context.DeadlineExceeded
		s.logger.Warn("shutdown timeout reached, some sessions may still be running")
	}
	s.reg.closeAll()

	s.logger.Info("shutdown complete")
	return err
}

func (s *Server) acceptLoop(ln net.Listener) {
	var backoff time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			AcceptErrors.Inc()
			if backoff == 0 {
				backoff = 5 * time.Millisecond
			} else if backoff *= 2; backoff > time.Second {
				backoff = time.Second
			}
			s.logger.Error("accept failed", "error", err, "retry_in", backoff)
			time.Sleep(backoff)
			continue
		}
		backoff = 0

		go s.serve(newTCPConn(conn, s.cfg), "tcp")
	}
}

// serve runs one session and keeps track of it for Stop.
func (s *Server) serve(conn LineConn, transport string) {
	if !s.track(conn) {
		_ = conn.Close()
		return
	}
	defer s.untrack(conn)

	ConnectionsTotal.WithLabelValues(transport).Inc()
	logger := s.logger.With(
		"session", uuid.NewString(),
		"peer", conn.RemoteAddr(),
		"transport", transport,
	)
	logger.Info("client connected")

	err := HandleSession(conn, s.reg, logger)
	switch {
	case err == nil:
		logger.Info("client disconnected")
	case errors.Is(err, ErrHandshake):
		logger.Debug("connection closed before handshake", "error", err)
	default:
		logger.Warn("client disconnected with error", "error", err)
	}
}

func (s *Server) track(conn LineConn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.conns[conn] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *Server) untrack(conn LineConn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
	s.wg.Done()
}
