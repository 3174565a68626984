// Package api serves the sizing calculator over HTTP: the HTML form at /,
// CSV downloads, and a small JSON API.
package api

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/tutu-network/gpusizer/internal/app/sweep"
	"github.com/tutu-network/gpusizer/internal/infra/catalog"
	"github.com/tutu-network/gpusizer/internal/infra/observability"
)

// Version is reported by /api/version.
const Version = "0.2.0"

// Default selections used when a request names no models or GPUs.
var (
	DefaultModels = []string{"gpt-oss-20b", "meta-llama/Llama-3.3-70B-Instruct", "google/gemma-2-9b-it"}
	DefaultGPUs   = []string{"L40s", "RTX Pro 6000 (Blackwell)"}
)

// Server is the calculator HTTP server.
type Server struct {
	catalog        *catalog.Catalog
	sweep          sweep.Config
	log            logrus.FieldLogger
	metricsEnabled bool
	defaultModels  []string
	defaultGPUs    []string
}

// NewServer creates a server over the given catalog. A nil logger discards output.
func NewServer(cat *catalog.Catalog, log logrus.FieldLogger) *Server {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	observability.RecordCatalog(len(cat.Models), len(cat.GPUs))
	return &Server{
		catalog:       cat,
		sweep:         sweep.DefaultConfig(),
		log:           log,
		defaultModels: DefaultModels,
		defaultGPUs:   DefaultGPUs,
	}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// SetWorkers sets how many grid cells a request evaluates concurrently.
func (s *Server) SetWorkers(n int) { s.sweep.MaxConcurrent = n }

// SetDefaultSelection overrides the models and GPUs used when a request
// selects none. Empty lists keep the current defaults.
func (s *Server) SetDefaultSelection(models, gpus []string) {
	if len(models) > 0 {
		s.defaultModels = models
	}
	if len(gpus) > 0 {
		s.defaultGPUs = gpus
	}
}

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(corsMiddleware)
	if s.metricsEnabled {
		r.Use(observability.Middleware)
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "ok",
		})
	})

	r.Get("/api/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"version": Version,
		})
	})

	// Calculator page and CSV downloads
	r.Get("/", s.handleCalculator)

	r.Route("/api", func(r chi.Router) {
		r.Get("/models", s.handleListModels)
		r.Get("/models/*", s.handleGetModel)
		r.Get("/gpus", s.handleListGPUs)
		r.Post("/estimate", s.handleEstimate)
	})

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": msg,
			"type":    "error",
		},
	})
}

// corsMiddleware adds CORS headers for local development.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
