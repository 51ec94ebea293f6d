// Package server owns the TCP listener and the per-connection protocol loop.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
)

// Server accepts TCP connections and hands each one to the Handler in its own
// goroutine. It is run as a supervised worker; on context cancellation it
// closes the listener and every live connection, then waits for handlers.
type Server struct {
	addr    string
	handler *Handler
	log     *slog.Logger

	mu         sync.Mutex
	conns      map[net.Conn]struct{}
	listenAddr string
}

func NewServer(addr string, handler *Handler, log *slog.Logger) *Server {
	return &Server{addr: addr, handler: handler, log: log, conns: make(map[net.Conn]struct{})}
}

func (s *Server) Run(ctx context.Context) error {
	lc := net.ListenConfig{}
	listener, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	s.mu.Lock()
	s.listenAddr = listener.Addr().String()
	s.mu.Unlock()
	s.log.Info("Listening", "addr", listener.Addr().String())

	// Connection handlers block on reads; closing their sockets is the only
	// way to unblock them at shutdown.
	go func() {
		<-ctx.Done()
		_ = listener.Close()
		s.closeAll()
	}()

	var wg sync.WaitGroup
	for {
		conn, err := listener.Accept()
		if err != nil {
			wg.Wait()
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				s.log.Info("Listener stopped")
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}

		s.track(conn)
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer s.untrack(conn)
			s.handler.Handle(ctx, conn)
		}()
	}
}

// ListenAddr reports the bound address, empty until Run has opened the
// listener. With port 0 in the configured address this is how the effective
// port is discovered.
func (s *Server) ListenAddr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listenAddr
}

func (s *Server) track(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[conn] = struct{}{}
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, conn)
}

func (s *Server) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.conns {
		_ = conn.Close()
	}
}
