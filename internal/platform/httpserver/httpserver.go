// Package httpserver configures the API listener.
package httpserver

import (
	"net/http"
	"time"
)

// New builds the HTTP server. Every request is a small JSON exchange
// (activation, a zone edit, one position sample), so the timeouts are
// deliberately tight; a caregiver app should fail fast and retry
// rather than hold a slow connection open.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
