package httpserver

import (
	"net/http"
	"time"
)

// New builds the authority's HTTP server. Write timeout stays generous
// because a reconciliation run fans out to every registered FI before
// responding.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
