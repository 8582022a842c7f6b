// Package jsonstat adapts JSON-stat 2.0 endpoints to providers.Provider.
package jsonstat

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"statbridge/internal/cube"
	decoder "statbridge/internal/cube/jsonstat"
	"statbridge/internal/fetch"
	"statbridge/internal/providers"
	"statbridge/internal/region"
	"statbridge/internal/series/models"
	"statbridge/internal/units"
)

const accept = "application/json"

// Config describes one JSON-stat provider.
type Config struct {
	Key  string
	Name string
	// URLTemplate may use {id} and {geo}. When it has no {geo}, a
	// requested geography is applied by filtering observations.
	URLTemplate   string
	HealthURL     string
	TimeDimension string
	GeoDimension  string
	// UnitDimension names a dimension whose single category labels the
	// unit of measure.
	UnitDimension string
	GeoSystem     region.System
	RatePerSecond float64
	Burst         int
}

type Provider struct {
	cfg     Config
	client  providers.Getter
	limiter *rate.Limiter
	logger  *slog.Logger
	now     providers.Clock
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

func New(cfg Config, client providers.Getter, opts ...Option) *Provider {
	if cfg.TimeDimension == "" {
		cfg.TimeDimension = decoder.DefaultTimeDimension
	}
	if cfg.GeoSystem == "" {
		cfg.GeoSystem = region.ISO2
	}
	p := &Provider{
		cfg:     cfg,
		client:  client,
		limiter: providers.NewLimiter(cfg.RatePerSecond, cfg.Burst),
		logger:  slog.New(slog.DiscardHandler),
		now:     time.Now,
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
	return providers.Info{Key: p.cfg.Key, Name: p.cfg.Name, Format: cube.FormatJSONStat, GeoSystem: p.cfg.GeoSystem}
}

func (p *Provider) Fetch(ctx context.Context, req providers.FetchRequest) (models.Series, error) {
	if err := providers.Pace(ctx, p.limiter, p.cfg.Key); err != nil {
		return models.Series{}, err
	}

	target := providers.ExpandTemplate(p.cfg.URLTemplate, map[string]string{
		"id":  url.PathEscape(req.ProviderID),
		"geo": url.QueryEscape(req.Geo),
	})
	resp, err := p.client.Get(ctx, fetch.Request{URL: target, Headers: map[string]string{"Accept": accept}})
	if err != nil {
		return models.Series{}, providers.Normalize(p.cfg.Key, "fetch dataset", err)
	}

	ds, err := decoder.Parse(resp.Body)
	if err != nil {
		return models.Series{}, providers.Normalize(p.cfg.Key, "decode dataset", err)
	}
	obs, err := ds.Observations(decoder.Options{
		TimeDimension: p.cfg.TimeDimension,
		GeoDimension:  p.cfg.GeoDimension,
		PreferCodes:   true,
	})
	if err != nil {
		return models.Series{}, providers.Normalize(p.cfg.Key, "decode dataset", err)
	}
	if req.Geo != "" && !strings.Contains(p.cfg.URLTemplate, "{geo}") {
		obs = onlyGeo(obs, req.Geo)
	}
	finite := models.FiniteOnly(obs)
	if dropped := len(obs) - len(finite); dropped > 0 {
		p.logger.DebugContext(ctx, "dropped non-numeric cells", "provider", p.cfg.Key, "dataset", req.ProviderID, "count", dropped)
	}

	series := models.NewSeries(req.SemanticID, p.unit(ds, req.Unit), req.Freq, finite,
		models.Source{Provider: p.cfg.Key, ProviderID: req.ProviderID, URL: target}, p.now())
	if ds.Label != "" {
		series.Definition = &ds.Label
	}
	return series, nil
}

// unit prefers the payload's own unit label, then the catalog unit.
func (p *Provider) unit(ds *decoder.Dataset, fallback string) string {
	if p.cfg.UnitDimension != "" {
		if dim, ok := ds.Dimension(p.cfg.UnitDimension); ok && len(dim.Codes) == 1 {
			if u := units.Normalize(dim.Codes[0].Display()); u != units.Unknown {
				return string(u)
			}
			if u := units.Normalize(dim.Codes[0].ID); u != units.Unknown {
				return string(u)
			}
		}
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
