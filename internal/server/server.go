package server

import (
	"context"
	"net/http"
	"time"

	"fieldcat/internal/catalog"
	"fieldcat/internal/results"
)

// Server wraps the HTTP server of the results API.
type Server struct {
	server *http.Server
}

// ListenAndServe starts listening and blocks until the server stops.
// After Shutdown it returns http.ErrServerClosed.
func (s *Server) ListenAndServe() error {
	return s.server.ListenAndServe()
}

// Shutdown stops accepting connections and waits for active ones within ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// NewServer creates a server listening on address (e.g. ":8080") that serves repo.
// Mappings can hold many identifiers, so writes get more time than reads.
func NewServer(address string, readTimeout, writeTimeout time.Duration, repo *results.Repository, cat *catalog.Catalog) *Server {
	router := NewApiV1Router(repo, cat)
	return &Server{&http.Server{
		Addr:           address,
		Handler:        router.Mux(),
		ReadTimeout:    readTimeout,
		WriteTimeout:   writeTimeout,
		MaxHeaderBytes: 1024 * 10,
	}}
}
