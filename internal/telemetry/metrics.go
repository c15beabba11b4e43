package telemetry

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"prism/internal/logging"
)

var (
	Registrations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prism_registrations_total",
			Help: "Callback registrations accepted by the pipeline",
		},
		[]string{"outcome"},
	)
	Dispatched = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "prism_dispatched_callbacks_total",
			Help: "Final descriptors handed to the dispatch adapter",
		},
	)
	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prism_cache_lookups_total",
			Help: "Memoization cache lookups by result",
		},
		[]string{"result"},
	)
	Invocations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prism_handler_invocations_total",
			Help: "Handler invocations by callback and outcome",
		},
		[]string{"callback", "outcome"},
	)
	InvocationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "prism_handler_duration_seconds",
			Help:    "Handler invocation latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"callback"},
	)
)

func init() {
	prometheus.MustRegister(Registrations, Dispatched, CacheLookups, Invocations, InvocationSeconds)
}

// Router serves /metrics and /healthz.
func Router() http.Handler {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

func Expose(port int) {
	go func() {
		addr := fmt.Sprintf(":%d", port)
		logging.L().Info("metrics listening", "addr", addr)
		if err := http.ListenAndServe(addr, Router()); err != nil {
			logging.L().Error("metrics server stopped", "error", err)
		}
	}()
}
