// Package httpserver provides the public HTTP server: the discovery
// endpoint peers probe, the record endpoints the resolvers fetch, and
// the user-facing auth and integrity API.
package httpserver

import (
	"context"
	"net/http"
	"time"
)

// Server wraps the stdlib HTTP server.
type Server struct {
	httpServer *http.Server
}

// New creates an HTTP server bound to addr.
func New(addr string, handler http.Handler) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// ListenAndServeTLS starts the HTTPS server.
func (s *Server) ListenAndServeTLS(certFile, keyFile string) error {
	return s.httpServer.ListenAndServeTLS(certFile, keyFile)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
