package engine

import (
	"context"
	"time"

	"github.com/valyala/fasthttp"
)

// Server wraps fasthttp.Server with the graceful-shutdown lifecycle
// the teacher's own server.go provides, trimmed to what a plain
// HTTP/1.1 listener needs — TLS/HTTP2 are explicit Non-goals (spec §1).
type Server struct {
	*fasthttp.Server
}

// NewServer builds a Server bound to handler.
func NewServer(handler fasthttp.RequestHandler) *Server {
	return &Server{
		Server: &fasthttp.Server{
			Handler:          handler,
			Name:             "",
			ReadTimeout:      30 * time.Second,
			WriteTimeout:     30 * time.Second,
			DisableKeepalive: false,
		},
	}
}

// ListenAndServe starts the listener on addr; blocks until the
// listener stops or errors.
func (s *Server) ListenAndServe(addr string) error {
	return s.Server.ListenAndServe(addr)
}

// GracefulShutdown stops accepting new connections and waits for
// in-flight requests to drain, honoring ctx's deadline.
func (s *Server) GracefulShutdown(ctx context.Context) error {
	done := make(chan error, 1)
	go func() { done <- s.Server.Shutdown() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
