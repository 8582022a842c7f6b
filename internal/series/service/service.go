// Package service composes alias resolution, provider routing, unit
// conversion and geography re-coding into a single series lookup.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"statbridge/internal/alias"
	"statbridge/internal/cache"
	"statbridge/internal/providers"
	"statbridge/internal/region"
	"statbridge/internal/routing"
	"statbridge/internal/series/models"
	"statbridge/internal/units"
	dErrors "statbridge/pkg/domain-errors"
)

// Providers looks up registered providers by key.
type Providers interface {
	Get(key string) (providers.Provider, bool)
}

// Router runs the provider fallback loop.
type Router interface {
	Route(ctx context.Context, req routing.Request, fetch routing.FetchFunc) routing.Outcome
}

// Aliases resolves free-form indicator names.
type Aliases interface {
	Resolve(input string) alias.Resolution
	Suggest(input string, n int) []string
}

// Geography converts region codes between coding systems.
type Geography interface {
	MapCode(code string, target region.System, source ...region.System) (string, bool)
}

// ConversionRecorder counts unit conversions that could not be applied.
type ConversionRecorder interface {
	ConversionFailed(from, to string)
}

// Indicator is the catalog metadata for a semantic id.
type Indicator struct {
	Unit        string
	Freq        string
	Definition  string
	MethodNotes string
}

// Query is one series request.
type Query struct {
	Indicator string
	Geo       string
	Prefer    string
	Strict    bool
	// Unit, when set, converts every value into this unit.
	Unit string
	// GeoSystem, when set, re-codes observation geographies.
	GeoSystem string
}

// Result is a served series with the diagnostics that produced it.
type Result struct {
	Series     models.Series    `json:"series"`
	Resolution alias.Resolution `json:"resolution"`
	Outcome    routing.Outcome  `json:"routing"`
	Warnings   []string         `json:"warnings,omitempty"`
	Cached     bool             `json:"cached"`
}

const suggestionLimit = 3

type noopRecorder struct{}

func (noopRecorder) ConversionFailed(string, string) {}

// Service serves normalized series.
type Service struct {
	providers  Providers
	router     Router
	aliases    Aliases
	geography  Geography
	indicators map[string]Indicator

	cache    *cache.Memory[Result]
	cacheTTL time.Duration
	logger   *slog.Logger
	recorder ConversionRecorder
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithCache memoizes results per query for ttl.
func WithCache(c *cache.Memory[Result], ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = c
		s.cacheTTL = ttl
	}
}

func WithConversionRecorder(r ConversionRecorder) Option {
	return func(s *Service) {
		s.recorder = r
	}
}

// WithIndicators supplies catalog metadata used to fill unit, frequency
// and definitions the upstream payload does not carry.
func WithIndicators(ind map[string]Indicator) Option {
	return func(s *Service) {
		s.indicators = ind
	}
}

func New(provs Providers, router Router, aliases Aliases, geography Geography, opts ...Option) *Service {
	s := &Service{
		providers:  provs,
		router:     router,
		aliases:    aliases,
		geography:  geography,
		indicators: map[string]Indicator{},
		logger:     slog.New(slog.DiscardHandler),
		recorder:   noopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get resolves the indicator, routes it across providers and applies the
// requested unit and geography transformations. A query no provider can
// answer is a not_found error carrying the routing diagnostics; when a
// provider returned a malformed payload it is bad_gateway instead.
func (s *Service) Get(ctx context.Context, q Query) (*Result, error) {
	q.Indicator = strings.TrimSpace(q.Indicator)
	q.Geo = strings.TrimSpace(q.Geo)
	if q.Indicator == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "indicator is required")
	}
	var targetUnit units.Unit
	if q.Unit != "" {
		u, ok := units.Parse(q.Unit)
		if !ok {
			return nil, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("unknown unit %q", q.Unit))
		}
		targetUnit = u
	}
	var targetSystem region.System
	if q.GeoSystem != "" {
		sys, ok := region.ParseSystem(q.GeoSystem)
		if !ok {
			return nil, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("unknown geography system %q", q.GeoSystem))
		}
		targetSystem = sys
	}
	if q.Strict && q.Prefer == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "strict requires prefer")
	}

	res := s.aliases.Resolve(q.Indicator)
	key := cacheKey(res.SemanticID, q)
	if s.cache != nil {
		if hit, ok := s.cache.Get(key); ok {
			hit.Resolution = res
			hit.Cached = true
			return &hit, nil
		}
	}

	req := routing.Request{
		SemanticID: res.SemanticID,
		Geo:        q.Geo,
		Prefer:     routing.ProviderKey(q.Prefer),
		Strict:     q.Strict,
	}
	outcome := s.router.Route(ctx, req, s.fetch)
	if !outcome.Found() {
		return nil, s.notFound(ctx, q, res, outcome)
	}

	result := &Result{Series: *outcome.Series, Resolution: res, Outcome: outcome}
	result.Outcome.Series = nil
	if targetUnit != "" {
		s.convert(ctx, result, targetUnit)
	}
	if targetSystem != "" {
		s.recode(result, targetSystem)
	}

	if s.cache != nil {
		s.cache.Set(key, *result, s.cacheTTL)
	}
	return result, nil
}

// fetch is the routing.FetchFunc: it expresses the request geography in
// the provider's coding system and fills catalog metadata.
func (s *Service) fetch(ctx context.Context, c routing.Candidate, req routing.Request) (models.Series, error) {
	p, ok := s.providers.Get(string(c.Provider))
	if !ok {
		return models.Series{}, fmt.Errorf("%w: %s", providers.ErrProviderNotFound, c.Provider)
	}
	info := p.Info()

	geo := ""
	if req.Geo != "" {
		mapped, ok := s.geography.MapCode(req.Geo, info.GeoSystem)
		if !ok {
			return models.Series{}, providers.NewProviderError(providers.ErrorNotFound, info.Key,
				fmt.Sprintf("geography %s has no %s code", req.Geo, info.GeoSystem), nil)
		}
		geo = mapped
	}

	meta := s.indicators[req.SemanticID]
	series, err := p.Fetch(ctx, providers.FetchRequest{
		SemanticID: req.SemanticID,
		ProviderID: c.ProviderID,
		Geo:        geo,
		Unit:       meta.Unit,
		Freq:       meta.Freq,
	})
	if err != nil {
		return models.Series{}, err
	}
	if series.Definition == nil && meta.Definition != "" {
		series.Definition = &meta.Definition
	}
	if series.MethodNotes == nil && meta.MethodNotes != "" {
		series.MethodNotes = &meta.MethodNotes
	}
	if series.Freq == "" {
		series.Freq = meta.Freq
	}
	return series, nil
}

func (s *Service) notFound(ctx context.Context, q Query, res alias.Resolution, outcome routing.Outcome) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "request cancelled while routing")
	}

	details := map[string]any{
		"semantic_id":    res.SemanticID,
		"provider_order": outcome.ProviderOrder,
		"errors":         outcome.Errors,
		"attempts":       outcome.Attempts,
	}
	if _, known := s.indicators[res.SemanticID]; !known {
		if sug := s.aliases.Suggest(q.Indicator, suggestionLimit); len(sug) > 0 {
			details["suggestions"] = sug
		}
	}

	for _, a := range outcome.Attempts {
		if a.Err != nil && providers.GetCategory(providers.Normalize(string(a.Provider), a.Error, a.Err)) == providers.ErrorBadData {
			s.logger.WarnContext(ctx, "upstream returned malformed data",
				"semantic_id", res.SemanticID,
				"provider", a.Provider,
				"error", a.Err,
			)
			return dErrors.New(dErrors.CodeBadGateway, "upstream returned malformed data").WithDetails(details)
		}
	}
	return dErrors.New(dErrors.CodeNotFound,
		fmt.Sprintf("no provider returned data for %s", res.SemanticID)).WithDetails(details)
}

// convert rewrites every value into target. An undefined conversion
// leaves the series in its source unit and adds a warning.
func (s *Service) convert(ctx context.Context, r *Result, target units.Unit) {
	from := units.Normalize(r.Series.Unit)
	if from == target {
		r.Series.Unit = string(target)
		return
	}
	values := make([]models.Observation, len(r.Series.Values))
	for i, o := range r.Series.Values {
		v, err := units.Convert(o.Value, from, target)
		if err != nil {
			s.recorder.ConversionFailed(string(from), string(target))
			s.logger.WarnContext(ctx, "unit conversion not applied",
				"semantic_id", r.Series.SemanticID,
				"from", from,
				"to", target,
				"error", err,
			)
			r.Warnings = append(r.Warnings, err.Error())
			return
		}
		o.Value = v
		values[i] = o
	}
	r.Series.Values = values
	r.Series.Unit = string(target)
}

// recode expresses observation geographies in target. Codes with no
// counterpart are kept verbatim.
func (s *Service) recode(r *Result, target region.System) {
	var src []region.System
	srcName := "source"
	if p, ok := s.providers.Get(r.Series.Source.Provider); ok && p.Info().GeoSystem != "" {
		src = []region.System{p.Info().GeoSystem}
		srcName = string(p.Info().GeoSystem)
	}
	values := make([]models.Observation, len(r.Series.Values))
	var unmapped int
	for i, o := range r.Series.Values {
		if o.Geo != nil {
			if code, ok := s.geography.MapCode(*o.Geo, target, src...); ok {
				o.Geo = models.Geo(code)
			} else {
				unmapped++
			}
		}
		values[i] = o
	}
	r.Series.Values = values
	r.Series.Normalize()
	if unmapped > 0 {
		r.Warnings = append(r.Warnings,
			fmt.Sprintf("%d observations kept their %s geography code", unmapped, srcName))
	}
}

func cacheKey(semanticID string, q Query) string {
	return strings.Join([]string{
		semanticID,
		strings.ToUpper(q.Geo),
		q.Prefer,
		strconv.FormatBool(q.Strict),
		strings.ToLower(q.Unit),
		strings.ToLower(q.GeoSystem),
	}, "|")
}
