package httpserver

import (
	"net/http"

	"principalcheck/internal/platform/config"
)

// New builds an HTTP server with the project's timeouts applied.
func New(cfg config.Server, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}
