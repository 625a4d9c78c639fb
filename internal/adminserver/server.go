package adminserver

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/sellerkit/resilience/internal/circuitbreaker"
	"github.com/sellerkit/resilience/internal/metrics"
)

// Server exposes the breakers' observability surface over HTTP: /health for
// load balancer probes and /metrics for the ops dashboard. It is the only
// HTTP the core ships; application routes live elsewhere.
type Server struct {
	server *http.Server
}

// New creates the admin server. The address is validated before the server
// is constructed.
func New(addr string, registry *circuitbreaker.Registry, collector *metrics.Collector) (*Server, error) {
	if err := validateHost(addr); err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", HealthHandler(registry))
	mux.HandleFunc("/metrics", collector.Handler())

	srv := &Server{
		server: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}

	return srv, nil
}

// Start begins listening for HTTP requests.
// Returns an error unless the server is shut down cleanly.
func (s *Server) Start() error {
	err := s.server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

// Shutdown gracefully shuts down the server with a 5-second timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}

type healthResponse struct {
	Status   string            `json:"status"`
	Breakers map[string]string `json:"breakers"`
}

// HealthHandler reports 200 while every breaker is CLOSED and 503 as soon
// as any dependency is degraded, so upstream probes fail over before
// requests start erroring.
func HealthHandler(registry *circuitbreaker.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{
			Status:   "healthy",
			Breakers: make(map[string]string),
		}

		status := http.StatusOK
		for name, stats := range registry.AllStats() {
			resp.Breakers[name] = stats.StateName
			if stats.State != circuitbreaker.StateClosed {
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(resp)
	}
}

func validateHost(value interface{}) error {
	addr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	host, port, err := net.SplitHostPort(addr)

	if err != nil {
		return validation.NewError("validation_invalid_hostport", "must be in host:port format")
	}

	if port == "" {
		return validation.NewError("validation_invalid_port", "port cant be empty")
	}

	if host != "" {
		if err := is.Host.Validate(host); err != nil {
			return validation.NewError("validation_invalid_host", "invalid host")
		}
	}

	return err
}
