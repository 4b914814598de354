// Package server exposes the manual-trigger HTTP surface used during
// development and the Prometheus scrape endpoint.
package server

import (
	"context"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/itinfra/seatsweep/internal/metrics"
	"github.com/itinfra/seatsweep/pkg/sweep"
)

// SweepFunc runs one sweep. vendor is a short vendor key to restrict the run
// to a single source, or "" for all enabled sources.
type SweepFunc func(ctx context.Context, vendor string) (sweep.Result, error)

type Server struct {
	Sweep    SweepFunc
	Username string
	Password string

	Registry  *prometheus.Registry
	Collector *metrics.Collector

	// Runs must not overlap: the dispatcher cache and vendor seat caches
	// are scoped to one run at a time.
	runMu sync.Mutex
}

func New(sweepFn SweepFunc, user, pass string) *Server {
	reg := prometheus.NewRegistry()
	return &Server{
		Sweep:     sweepFn,
		Username:  user,
		Password:  pass,
		Registry:  reg,
		Collector: metrics.NewCollector(reg),
	}
}

// Router builds the chi router. Split from Start so tests can drive it with
// httptest.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Method("GET", "/metrics", metrics.Handler(s.Registry))

	r.Group(func(r chi.Router) {
		r.Use(s.basicAuth)
		r.Post("/api/sweep", s.handleSweep)
		r.Post("/api/sweep/{vendor}", s.handleSweep)
	})

	return r
}

func (s *Server) Start(addr string) error {
	return http.ListenAndServe(addr, s.Router())
}

func (s *Server) basicAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.Username == "" && s.Password == "" {
			next.ServeHTTP(w, r)
			return
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != s.Username || pass != s.Password {
			w.Header().Set("WWW-Authenticate", `Basic realm="Restricted"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
