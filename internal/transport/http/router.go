package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/klauspost/compress/gzhttp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"statbridge/internal/platform/middleware"
	dErrors "statbridge/pkg/domain-errors"
	"statbridge/pkg/platform/httputil"
)

// RouterConfig carries the cross-cutting dependencies of the router.
type RouterConfig struct {
	Logger *slog.Logger
	// Latency receives per-route timings; nil disables it.
	Latency middleware.LatencyObserver
	// Gatherer backs /metrics; nil serves the default registry.
	Gatherer prometheus.Gatherer
	// RequestTimeout bounds /v1 requests, including every upstream
	// fallback attempt.
	RequestTimeout time.Duration
}

// NewRouter wires all public endpoints.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.Logger(logger))
	if cfg.Latency != nil {
		r.Use(middleware.Latency(cfg.Latency))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "no route for "+r.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusMethodNotAllowed, httputil.ErrorResponse{
			Error:            "method_not_allowed",
			ErrorDescription: r.Method + " is not supported on " + r.URL.Path,
		})
	})

	r.Get("/healthz", h.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/v1", func(v1 chi.Router) {
		if cfg.RequestTimeout > 0 {
			v1.Use(middleware.Timeout(cfg.RequestTimeout))
		}
		v1.Use(compress)

		v1.Get("/series/{indicator}", h.handleGetSeries)
		v1.Get("/aliases/{input}", h.handleResolveAlias)
		v1.Get("/regions/{code}", h.handleMapRegion)
		v1.Get("/units/convert", h.handleConvertUnit)
		v1.Get("/units/normalize", h.handleNormalizeUnit)
	})
	return r
}

func compress(next http.Handler) http.Handler {
	return gzhttp.GzipHandler(next)
}
