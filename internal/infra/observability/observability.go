// Package observability holds the Prometheus metrics exported at /metrics
// and the HTTP middleware that feeds them.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tutu-network/gpusizer/internal/domain"
)

// Sources label where an estimate was requested from.
const (
	SourceCLI = "cli"
	SourceWeb = "web"
	SourceAPI = "api"
)

// ─── Estimation Metrics ─────────────────────────────────────────────────────

// EstimatesTotal counts model × GPU configurations evaluated.
var EstimatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "gpusizer",
	Subsystem: "estimates",
	Name:      "total",
	Help:      "Total model/GPU configurations evaluated.",
}, []string{"source"})

// OverCapacityTotal counts configurations whose footprint exceeds memory.
var OverCapacityTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "gpusizer",
	Subsystem: "estimates",
	Name:      "over_capacity_total",
	Help:      "Configurations whose memory footprint exceeds available GPU memory.",
}, []string{"source"})

// NotComputableTotal counts configurations whose timings were OOM.
var NotComputableTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "gpusizer",
	Subsystem: "estimates",
	Name:      "not_computable_total",
	Help:      "Configurations whose timing metrics could not be computed.",
}, []string{"source"})

// SweepDuration tracks wall time of a full grid evaluation.
var SweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "gpusizer",
	Subsystem: "sweep",
	Name:      "duration_seconds",
	Help:      "Wall time of one model x GPU sweep.",
	Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
})

// ─── Catalog Metrics ────────────────────────────────────────────────────────

// CatalogSize reports how many entries of each kind are loaded.
var CatalogSize = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "gpusizer",
	Subsystem: "catalog",
	Name:      "entries",
	Help:      "Number of loaded catalog entries by kind (model, gpu).",
}, []string{"kind"})

// ─── HTTP Metrics ───────────────────────────────────────────────────────────

// HTTPRequestDuration tracks request latency per route.
var HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "gpusizer",
	Subsystem: "http",
	Name:      "request_duration_seconds",
	Help:      "HTTP request latency by route, method and status.",
	Buckets:   prometheus.DefBuckets,
}, []string{"route", "method", "status"})

// RecordSweep updates the estimation counters for one sweep.
func RecordSweep(source string, estimates []domain.Estimate, elapsed time.Duration) {
	var over, oom int
	for _, e := range estimates {
		if !e.Fits {
			over++
		}
		if !e.Metrics.Computable() {
			oom++
		}
	}
	EstimatesTotal.WithLabelValues(source).Add(float64(len(estimates)))
	OverCapacityTotal.WithLabelValues(source).Add(float64(over))
	NotComputableTotal.WithLabelValues(source).Add(float64(oom))
	SweepDuration.Observe(elapsed.Seconds())
}

// RecordCatalog publishes the catalog sizes.
func RecordCatalog(models, gpus int) {
	CatalogSize.WithLabelValues("model").Set(float64(models))
	CatalogSize.WithLabelValues("gpu").Set(float64(gpus))
}

// Middleware observes HTTP latency labelled by the matched chi route.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		HTTPRequestDuration.
			WithLabelValues(route, r.Method, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
	})
}
