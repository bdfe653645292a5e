// Package statusd implements the optional debug HTTP server
// (SPEC_FULL.md's ambient-stack addition): a small read-only surface
// for liveness checks, a JSON status snapshot, and Prometheus metrics,
// enabled by the CLI's --status-addr flag.
package statusd

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/innisfree/innisfree/internal/serviceport"
)

var connectionsAccepted = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "innisfree_proxy_connections_accepted_total",
		Help: "TCP connections accepted by the proxy engine, by public port.",
	},
	[]string{"public_port"},
)

// ObserveAccept increments the connection counter for port. It is
// wired as a proxy.Engine.OnAccept callback.
func ObserveAccept(port serviceport.ServicePort) {
	connectionsAccepted.WithLabelValues(strconv.Itoa(port.PublicPort)).Inc()
}

// Status is the JSON body served at /status.
type Status struct {
	Name         string   `json:"name"`
	LocalAddr    string   `json:"local_addr"`
	RemoteAddr   string   `json:"remote_addr"`
	PublicIPv4   string   `json:"public_ipv4"`
	ServicePorts []string `json:"service_ports"`
}

// StatusFunc returns the current status snapshot. The CLI supplies a
// closure over its live *tunnel.Controller.
type StatusFunc func() Status

// Server is the debug HTTP server.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
}

// New builds a Server listening on addr. statusFn is called fresh on
// every request to /status.
func New(addr string, statusFn StatusFunc) *Server {
	s := &Server{router: chi.NewRouter()}

	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(5 * time.Second))

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	s.router.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(statusFn())
	})

	s.router.Handle("/metrics", promhttp.Handler())

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	return s
}

// Start runs the server until it is shut down, returning
// http.ErrServerClosed on a clean Shutdown.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Router exposes the underlying router for tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}
