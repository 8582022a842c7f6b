package httptransport

import (
	"net/http"
	"strconv"

	"statbridge/pkg/platform/httputil"
	"statbridge/pkg/requestcontext"
)

// HealthResponse reports service readiness and, on deep checks, upstream
// provider reachability.
type HealthResponse struct {
	Status    string            `json:"status"`
	Providers map[string]string `json:"providers,omitempty"`
}

// handleHealth handles GET /healthz. Reference tables must be loadable;
// upstream failures only degrade the status since routing falls back.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.regions.Ready(); err != nil {
		h.logger.ErrorContext(ctx, "health check failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unavailable"})
		return
	}

	resp := HealthResponse{Status: "ok"}
	if deep, _ := strconv.ParseBool(r.URL.Query().Get("deep")); deep && h.providers != nil {
		failed := h.providers.Health(ctx)
		if len(failed) > 0 {
			resp.Status = "degraded"
			resp.Providers = make(map[string]string, len(failed))
			for key, err := range failed {
				resp.Providers[key] = err.Error()
			}
		}
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}
