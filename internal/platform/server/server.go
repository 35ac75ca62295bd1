package server

import (
	"net"
	"net/http"
	"time"

	"arty-web/internal/config"
)

// New builds the HTTP server for host:port. A nil cfg falls back to fixed timeouts.
func New(host, port string, handler http.Handler, cfg *config.ServerConfig) *http.Server {
	readTimeout, writeTimeout, idleTimeout := 15*time.Second, 60*time.Second, 60*time.Second
	if cfg != nil {
		readTimeout, writeTimeout, idleTimeout = cfg.ReadTimeout, cfg.WriteTimeout, cfg.IdleTimeout
	}

	return &http.Server{
		Addr:              net.JoinHostPort(host, port),
		Handler:           handler,
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}
}
