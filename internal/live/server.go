package live

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

const authTimeout = 5 * time.Second

// Server exposes the hub as a line-delimited JSON feed over TCP. A client
// sends its token as the first line.
type Server struct {
	Addr string
	Hub  *Hub
	Auth Authenticate

	ready chan net.Addr
}

func NewServer(addr string, hub *Hub, authn Authenticate) *Server {
	return &Server{Addr: addr, Hub: hub, Auth: authn, ready: make(chan net.Addr, 1)}
}

// Ready yields the bound address once Run is listening.
func (s *Server) Ready() <-chan net.Addr { return s.ready }

// Run accepts clients until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.Addr, err)
	}
	s.ready <- ln.Addr()
	s.Hub.logger.Printf("[live] listening on %s", ln.Addr())

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			continue
		}
		go s.serve(ctx, conn)
	}
}

func (s *Server) serve(ctx context.Context, conn net.Conn) {
	r := bufio.NewReader(conn)

	_ = conn.SetReadDeadline(time.Now().Add(authTimeout))
	line, err := r.ReadString('\n')
	if err != nil {
		_ = conn.Close()
		return
	}
	email, err := s.authenticate(ctx, strings.TrimSpace(line))
	if err != nil {
		s.Hub.logger.Printf("[live] rejected client %s: %v", conn.RemoteAddr(), err)
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		_, _ = conn.Write([]byte("{\"type\":\"error\",\"error\":\"invalid token\"}\n"))
		_ = conn.Close()
		return
	}
	_ = conn.SetReadDeadline(time.Time{})

	s.Hub.Welcome(conn)
	s.Hub.Add(conn, email)
	s.Hub.logger.Printf("[live] client connected: %s (%s)", conn.RemoteAddr(), email)
	defer func() {
		s.Hub.Remove(conn)
		s.Hub.logger.Printf("[live] client disconnected: %s", conn.RemoteAddr())
	}()

	// Drain until the client hangs up.
	sc := bufio.NewScanner(r)
	for sc.Scan() {
	}
}

func (s *Server) authenticate(ctx context.Context, token string) (string, error) {
	if s.Auth == nil {
		return "", errors.New("feed has no authenticator")
	}
	if token == "" {
		return "", errors.New("missing token")
	}
	return s.Auth(ctx, token)
}
