package control

import (
	"bufio"
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"

	"github.com/Alia5/steamtarget/internal/auth"
)

// Server accepts line-oriented control connections over TCP.
type Server struct {
	addr   string
	key    []byte
	router *Router
	logger *slog.Logger

	ln     net.Listener
	ctx    context.Context
	cancel context.CancelFunc
	conns  sync.WaitGroup
}

// NewServer returns a server for addr. A non-empty password enables the
// session handshake on every connection.
func NewServer(addr, password string, router *Router, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{addr: addr, router: router, logger: logger}
	if password != "" {
		key, err := auth.DeriveKey(password)
		if err != nil {
			return nil, err
		}
		s.key = key
	}
	return s, nil
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	if s.ln == nil {
		return s.addr
	}
	return s.ln.Addr().String()
}

func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.ln = ln
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.logger.Info("Control listening", "addr", ln.Addr().String(), "auth", s.key != nil)
	go s.serve()
	return nil
}

// Close stops accepting and waits for open connections to finish their
// current command.
func (s *Server) Close() {
	if s.ln == nil {
		return
	}
	s.cancel()
	_ = s.ln.Close()
	s.conns.Wait()
}

func (s *Server) serve() {
	for {
		c, err := s.ln.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				s.logger.Warn("Control accept error", "error", err)
			}
			return
		}
		s.conns.Add(1)
		go s.handleConn(c)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer s.conns.Done()
	defer conn.Close()

	logger := s.logger.With("remote", conn.RemoteAddr().String())
	stop := context.AfterFunc(s.ctx, func() { _ = conn.Close() })
	defer stop()

	var rw net.Conn = conn
	if s.key != nil {
		sc, err := auth.SecureServer(conn, bufio.NewReader(conn), s.key)
		if err != nil {
			logger.Warn("Control handshake failed", "error", err)
			return
		}
		rw = sc
	}

	logger.Debug("Control connection opened")
	if err := Serve(s.ctx, rw, rw, s.router, logger); err != nil && !errors.Is(err, net.ErrClosed) && s.ctx.Err() == nil {
		logger.Debug("Control connection ended", "error", err)
	}
}
