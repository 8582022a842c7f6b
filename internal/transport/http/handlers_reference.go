package httptransport

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"statbridge/internal/region"
	"statbridge/internal/units"
	dErrors "statbridge/pkg/domain-errors"
	"statbridge/pkg/platform/httputil"
)

const aliasSuggestions = 5

// AliasResponse describes how an input resolves.
type AliasResponse struct {
	Input        string   `json:"input"`
	SemanticID   string   `json:"semantic_id"`
	MatchedAlias *string  `json:"matched_alias"`
	Known        bool     `json:"known"`
	Suggestions  []string `json:"suggestions,omitempty"`
}

// handleResolveAlias handles GET /v1/aliases/{input}.
func (h *Handler) handleResolveAlias(w http.ResponseWriter, r *http.Request) {
	input := chi.URLParam(r, "input")
	res := h.aliases.Resolve(input)
	resp := AliasResponse{
		Input:        input,
		SemanticID:   res.SemanticID,
		MatchedAlias: res.MatchedAlias,
		Known:        h.aliases.Known(input),
	}
	if !resp.Known {
		resp.Suggestions = h.aliases.Suggest(input, aliasSuggestions)
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// RegionResponse describes a geography code and, when requested, its
// counterpart in another system.
type RegionResponse struct {
	Input   string          `json:"input"`
	System  region.System   `json:"system"`
	Name    string          `json:"name,omitempty"`
	Country *region.Country `json:"country,omitempty"`
	Mapped  *region.Code    `json:"mapped,omitempty"`
}

// handleMapRegion handles GET /v1/regions/{code}?to=&from=.
func (h *Handler) handleMapRegion(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimSpace(chi.URLParam(r, "code"))
	qs := r.URL.Query()

	var source []region.System
	sys := region.Classify(code)
	if from := qs.Get("from"); from != "" {
		s, ok := region.ParseSystem(from)
		if !ok {
			httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("unknown geography system %q", from)))
			return
		}
		sys = s
		source = []region.System{s}
	}

	resp := RegionResponse{Input: code, System: sys}
	if name, ok := h.regions.Name(code, source...); ok {
		resp.Name = name
	}
	if c, ok := h.regions.Lookup(code); ok {
		resp.Country = &c
	}

	if to := qs.Get("to"); to != "" {
		target, ok := region.ParseSystem(to)
		if !ok {
			httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("unknown geography system %q", to)))
			return
		}
		mapped, ok := h.regions.MapCode(code, target, source...)
		if !ok {
			httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound,
				fmt.Sprintf("%s has no %s counterpart", code, target)))
			return
		}
		resp.Mapped = &region.Code{System: target, Code: mapped}
	} else if resp.Name == "" && resp.Country == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("unknown geography %s", code)))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// ConversionResponse is the result of a unit conversion.
type ConversionResponse struct {
	Value     float64    `json:"value"`
	From      units.Unit `json:"from"`
	To        units.Unit `json:"to"`
	Converted float64    `json:"converted"`
}

// handleConvertUnit handles GET /v1/units/convert?value=&from=&to=.
// from and to accept canonical names or free-text labels.
func (h *Handler) handleConvertUnit(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()
	value, err := strconv.ParseFloat(qs.Get("value"), 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "value must be a finite number"))
		return
	}
	from, to := unitParam(qs.Get("from")), unitParam(qs.Get("to"))

	converted, err := units.Convert(value, from, to)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, err.Error()))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ConversionResponse{Value: value, From: from, To: to, Converted: converted})
}

// handleNormalizeUnit handles GET /v1/units/normalize?text=.
func (h *Handler) handleNormalizeUnit(w http.ResponseWriter, r *http.Request) {
	text := r.URL.Query().Get("text")
	u := units.Normalize(text)
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"text":    text,
		"unit":    u,
		"is_rate": u.IsRate(),
	})
}

func unitParam(s string) units.Unit {
	if u, ok := units.Parse(s); ok {
		return u
	}
	return units.Normalize(s)
}
