// Package server exposes the deadline daemon over JSON-RPC 2.0, both as
// HTTP POST requests and as WebSocket connections that also receive
// timer.fired push notifications.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/warpdl/deadline/pkg/logger"
)

// Server is the HTTP front of an RPCServer.
type Server struct {
	mu     sync.Mutex
	server *http.Server
	rpc    *RPCServer
	log    logger.Logger
}

// New creates a Server for rpc.
func New(rpc *RPCServer, log logger.Logger) *Server {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Server{rpc: rpc, log: log}
}

// Serve accepts connections on l until Shutdown is called. It returns nil
// after a clean shutdown.
func (s *Server) Serve(l net.Listener) error {
	s.mu.Lock()
	if s.server != nil {
		s.mu.Unlock()
		return errors.New("server already started")
	}
	s.server = &http.Server{
		Handler:           s.rpc.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          logger.ToStdErrorLogger(s.log),
	}
	srv := s.server
	s.mu.Unlock()

	s.log.Info("RPC listening on %s", l.Addr())
	err := srv.Serve(l)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully stops the HTTP server. Hijacked WebSocket connections
// are not tracked by net/http; RPCServer.Close ends them.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
