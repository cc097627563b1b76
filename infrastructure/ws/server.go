package ws

import (
	"net/http"
	"time"
)

// NewServer wires the gateway routes plus a liveness probe into an
// http.Server with sane timeouts. WebSocket connections are hijacked at
// upgrade time, so the read/write timeouts only bound the handshake.
func NewServer(addr string, gateway *Gateway, auth *AuthHandler) *http.Server {
	mux := http.NewServeMux()
	gateway.Routes(mux)
	auth.Routes(mux)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}
