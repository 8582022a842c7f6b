package httptransport

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"statbridge/internal/series/service"
	dErrors "statbridge/pkg/domain-errors"
	"statbridge/pkg/platform/httputil"
	"statbridge/pkg/requestcontext"
)

// handleGetSeries handles GET /v1/series/{indicator}.
func (h *Handler) handleGetSeries(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	qs := r.URL.Query()
	q := service.Query{
		Indicator: chi.URLParam(r, "indicator"),
		Geo:       qs.Get("geo"),
		Prefer:    qs.Get("prefer"),
		Unit:      qs.Get("unit"),
		GeoSystem: qs.Get("geo_system"),
	}
	if v := qs.Get("strict"); v != "" {
		strict, err := strconv.ParseBool(v)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "strict must be a boolean"))
			return
		}
		q.Strict = strict
	}

	result, err := h.series.Get(ctx, q)
	if err != nil {
		level := h.logger.WarnContext
		if dErrors.CodeOf(err) == dErrors.CodeInternal {
			level = h.logger.ErrorContext
		}
		level(ctx, "series request failed",
			"request_id", requestID,
			"indicator", q.Indicator,
			"geo", q.Geo,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "series served",
		"request_id", requestID,
		"semantic_id", result.Series.SemanticID,
		"provider", result.Series.Source.Provider,
		"observations", result.Series.Len(),
		"cached", result.Cached,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, result)
}
