// Package sdmx adapts SDMX-JSON REST endpoints to providers.Provider.
//
// Provider ids take the form "FLOW" or "FLOW/KEY", where KEY is an SDMX
// series key that may contain a {geo} placeholder, e.g.
// "DF_QNA/Q.{geo}.B1GQ".
package sdmx

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"statbridge/internal/codelist"
	"statbridge/internal/cube"
	decoder "statbridge/internal/cube/sdmx"
	"statbridge/internal/fetch"
	"statbridge/internal/providers"
	"statbridge/internal/region"
	"statbridge/internal/series/models"
	"statbridge/internal/units"
)

const (
	accept     = "application/vnd.sdmx.data+json;version=1.0.0"
	unitColumn = "UNIT_MEASURE"
)

// Resolver supplies dimension values the data message omits.
type Resolver interface {
	Resolve(ctx context.Context, flowID string) (codelist.Codes, error)
}

// Config describes one SDMX provider.
type Config struct {
	Key  string
	Name string
	// URLTemplate may use {flow} and {key}.
	URLTemplate   string
	HealthURL     string
	DefaultKey    string
	TimeDimension string
	GeoDimension  string
	GeoSystem     region.System
	RatePerSecond float64
	Burst         int
}

type Provider struct {
	cfg      Config
	client   providers.Getter
	resolver Resolver
	limiter  *rate.Limiter
	logger   *slog.Logger
	now      providers.Clock
}

type Option func(*Provider)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Provider) {
		p.logger = logger
	}
}

func WithClock(now providers.Clock) Option {
	return func(p *Provider) {
		p.now = now
	}
}

// New builds a provider. resolver may be nil when every message embeds
// its dimension values.
func New(cfg Config, client providers.Getter, resolver Resolver, opts ...Option) *Provider {
	if cfg.DefaultKey == "" {
		cfg.DefaultKey = "all"
	}
	if cfg.GeoSystem == "" {
		cfg.GeoSystem = region.ISO3
	}
	p := &Provider{
		cfg:      cfg,
		client:   client,
		resolver: resolver,
		limiter:  providers.NewLimiter(cfg.RatePerSecond, cfg.Burst),
		logger:   slog.New(slog.DiscardHandler),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) Key() string {
	return p.cfg.Key
}

func (p *Provider) Info() providers.Info {
	return providers.Info{Key: p.cfg.Key, Name: p.cfg.Name, Format: cube.FormatSDMX, GeoSystem: p.cfg.GeoSystem}
}

// SplitID separates a provider id into flow and series key.
func SplitID(providerID string) (flow, key string) {
	flow, key, _ = strings.Cut(providerID, "/")
	return flow, key
}

func (p *Provider) seriesKey(key, geo string) string {
	if key == "" {
		key = p.cfg.DefaultKey
	}
	return providers.ExpandTemplate(key, map[string]string{"geo": geo})
}

func (p *Provider) Fetch(ctx context.Context, req providers.FetchRequest) (models.Series, error) {
	if err := providers.Pace(ctx, p.limiter, p.cfg.Key); err != nil {
		return models.Series{}, err
	}

	flow, key := SplitID(req.ProviderID)
	geoInKey := strings.Contains(key, "{geo}")
	target := providers.ExpandTemplate(p.cfg.URLTemplate, map[string]string{
		"flow": url.PathEscape(flow),
		"key":  p.seriesKey(key, url.PathEscape(req.Geo)),
	})
	resp, err := p.client.Get(ctx, fetch.Request{URL: target, Headers: map[string]string{"Accept": accept}})
	if err != nil {
		return models.Series{}, providers.Normalize(p.cfg.Key, "fetch data", err)
	}

	msg, err := decoder.Parse(resp.Body)
	if err != nil {
		return models.Series{}, providers.Normalize(p.cfg.Key, "decode data", err)
	}
	var codes codelist.Codes
	if missing := msg.MissingCodes(); len(missing) > 0 {
		if p.resolver == nil {
			return models.Series{}, providers.NewProviderError(providers.ErrorBadData, p.cfg.Key,
				"message omits values for "+strings.Join(missing, ", "), nil)
		}
		codes, err = p.resolver.Resolve(ctx, flow)
		if err != nil {
			return models.Series{}, providers.Normalize(p.cfg.Key, "resolve structure", err)
		}
	}
	rows, err := msg.Rows(codes)
	if err != nil {
		return models.Series{}, providers.Normalize(p.cfg.Key, "decode data", err)
	}

	opts := decoder.Options{TimeDimension: p.cfg.TimeDimension, GeoDimension: p.cfg.GeoDimension}
	obs := models.FiniteOnly(decoder.Project(rows, opts))
	if req.Geo != "" && !geoInKey {
		obs = onlyGeo(obs, req.Geo)
	}

	return models.NewSeries(req.SemanticID, unitOf(rows, req.Unit), req.Freq, obs,
		models.Source{Provider: p.cfg.Key, ProviderID: req.ProviderID, URL: target}, p.now()), nil
}

// unitOf reads the unit from the first row carrying one, as a dimension
// or an attribute, then falls back to the catalog unit.
func unitOf(rows []decoder.Row, fallback string) string {
	for _, r := range rows {
		code, ok := r.Dims[unitColumn]
		if !ok {
			code, ok = r.Attributes[unitColumn]
		}
		if !ok {
			continue
		}
		if u := units.Normalize(code); u != units.Unknown {
			return string(u)
		}
		break
	}
	if fallback == "" {
		return string(units.Unknown)
	}
	return string(units.Normalize(fallback))
}

func (p *Provider) Health(ctx context.Context) error {
	if p.cfg.HealthURL == "" {
		return nil
	}
	_, err := p.client.Fetch(ctx, fetch.Request{URL: p.cfg.HealthURL, Timeout: 5 * time.Second})
	return providers.Normalize(p.cfg.Key, "health check", err)
}

func onlyGeo(obs []models.Observation, geo string) []models.Observation {
	out := obs[:0]
	for _, o := range obs {
		if o.Geo == nil || strings.EqualFold(*o.Geo, geo) {
			out = append(out, o)
		}
	}
	return out
}
