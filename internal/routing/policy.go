// Package routing picks upstream providers for a semantic id and falls
// back across them one at a time until one yields observations.
package routing

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"statbridge/internal/series/models"
	platformstrings "statbridge/pkg/platform/strings"
)

// ProviderKey names an upstream provider.
type ProviderKey string

// Mapping declares, per semantic id, the id each provider knows it by.
type Mapping map[string]map[ProviderKey]string

// ProviderID returns the provider-specific id for semanticID.
func (m Mapping) ProviderID(semanticID string, p ProviderKey) (string, bool) {
	id, ok := m[semanticID][p]
	return id, ok
}

// Config holds the routing tables.
type Config struct {
	// InGroup classifies a request geography. When it reports true,
	// GroupOrder is the baseline; otherwise DefaultOrder is.
	InGroup      func(geo string) bool
	GroupOrder   []ProviderKey
	DefaultOrder []ProviderKey
	Mapping      Mapping
}

// Request is one routing query.
type Request struct {
	SemanticID string
	Geo        string
	Prefer     ProviderKey
	Strict     bool
}

// Candidate is a provider to try and the id it knows the indicator by.
type Candidate struct {
	Provider   ProviderKey
	ProviderID string
}

// FetchFunc fetches and decodes a series from one candidate.
type FetchFunc func(ctx context.Context, c Candidate, req Request) (models.Series, error)

// Status is the result of trying one candidate.
type Status string

const (
	StatusSuccess Status = "success"
	StatusEmpty   Status = "empty"
	StatusError   Status = "error"
	// StatusUnmapped marks a strict preferred provider with no id mapping;
	// it is never fetched.
	StatusUnmapped Status = "unmapped"
)

// Attempt records one step of the fallback loop.
type Attempt struct {
	Provider     ProviderKey   `json:"provider"`
	Status       Status        `json:"status"`
	Observations int           `json:"observations"`
	Error        string        `json:"error,omitempty"`
	Elapsed      time.Duration `json:"elapsed_ns"`
	// Err is the failure behind Error, for callers that classify it.
	Err error `json:"-"`
}

// Outcome is the routing result. Exhausting every candidate is a normal
// outcome: Series is nil and Errors explains what failed.
type Outcome struct {
	Series        *models.Series `json:"series,omitempty"`
	ProviderUsed  ProviderKey    `json:"provider_used,omitempty"`
	ProviderOrder []ProviderKey  `json:"provider_order"`
	Errors        []string       `json:"errors"`
	Attempts      []Attempt      `json:"attempts"`
}

// Found reports whether a provider produced observations.
func (o Outcome) Found() bool {
	return o.Series != nil
}

// Recorder receives per-attempt results. platform/metrics implements it.
type Recorder interface {
	RoutingAttempt(provider string, status string)
}

type Policy struct {
	cfg      Config
	logger   *slog.Logger
	recorder Recorder
	tracer   trace.Tracer
	now      func() time.Time
}

type Option func(*Policy)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Policy) {
		p.logger = logger
	}
}

func WithRecorder(r Recorder) Option {
	return func(p *Policy) {
		p.recorder = r
	}
}

func NewPolicy(cfg Config, opts ...Option) *Policy {
	cfg.GroupOrder = platformstrings.DedupeAndTrim(cfg.GroupOrder)
	cfg.DefaultOrder = platformstrings.DedupeAndTrim(cfg.DefaultOrder)
	if cfg.InGroup == nil {
		cfg.InGroup = func(string) bool { return false }
	}
	p := &Policy{
		cfg:    cfg,
		logger: slog.New(slog.DiscardHandler),
		tracer: otel.Tracer("statbridge/internal/routing"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Candidates returns the providers to try, in order. The baseline order
// depends on the request geography and keeps only providers mapped for
// the semantic id. A preferred provider moves to the front, or is
// prepended with the semantic id as its provider id when it has no
// mapping. Strict requests try only the preferred provider and fail when
// it is unmapped.
func (p *Policy) Candidates(req Request) ([]Candidate, error) {
	baseline := p.cfg.DefaultOrder
	if p.cfg.InGroup(req.Geo) {
		baseline = p.cfg.GroupOrder
	}

	var out []Candidate
	for _, key := range baseline {
		if id, ok := p.cfg.Mapping.ProviderID(req.SemanticID, key); ok {
			out = append(out, Candidate{Provider: key, ProviderID: id})
		}
	}
	if req.Prefer == "" {
		return out, nil
	}

	preferredID, mapped := p.cfg.Mapping.ProviderID(req.SemanticID, req.Prefer)
	if req.Strict {
		if !mapped {
			return nil, fmt.Errorf("no id mapping for %s", req.SemanticID)
		}
		return []Candidate{{Provider: req.Prefer, ProviderID: preferredID}}, nil
	}
	if !mapped {
		preferredID = req.SemanticID
	}
	out = slices.DeleteFunc(out, func(c Candidate) bool { return c.Provider == req.Prefer })
	return append([]Candidate{{Provider: req.Prefer, ProviderID: preferredID}}, out...), nil
}

// Route tries candidates sequentially. A failed candidate is recorded as
// "{provider}: {message}" and the loop moves on; an empty series moves
// on without an error entry. The first candidate with at least one
// observation wins.
func (p *Policy) Route(ctx context.Context, req Request, fetch FetchFunc) Outcome {
	out := Outcome{ProviderOrder: []ProviderKey{}, Errors: []string{}, Attempts: []Attempt{}}

	candidates, err := p.Candidates(req)
	if err != nil {
		out.ProviderOrder = append(out.ProviderOrder, req.Prefer)
		out.Errors = append(out.Errors, fmt.Sprintf("%s: %s", req.Prefer, err))
		out.Attempts = append(out.Attempts, Attempt{Provider: req.Prefer, Status: StatusUnmapped, Error: err.Error(), Err: err})
		p.record(req.Prefer, StatusUnmapped)
		p.logger.WarnContext(ctx, "strict provider has no mapping",
			"semantic_id", req.SemanticID,
			"provider", req.Prefer,
		)
		return out
	}
	for _, c := range candidates {
		out.ProviderOrder = append(out.ProviderOrder, c.Provider)
	}

	for _, c := range candidates {
		attempt, series := p.try(ctx, c, req, fetch)
		out.Attempts = append(out.Attempts, attempt)
		p.record(c.Provider, attempt.Status)

		switch attempt.Status {
		case StatusSuccess:
			out.Series = &series
			out.ProviderUsed = c.Provider
			return out
		case StatusError:
			out.Errors = append(out.Errors, fmt.Sprintf("%s: %s", c.Provider, attempt.Error))
		}
	}

	p.logger.InfoContext(ctx, "no provider returned data",
		"semantic_id", req.SemanticID,
		"geo", req.Geo,
		"tried", len(candidates),
		"errors", len(out.Errors),
	)
	return out
}

func (p *Policy) try(ctx context.Context, c Candidate, req Request, fetch FetchFunc) (Attempt, models.Series) {
	ctx, span := p.tracer.Start(ctx, "routing.candidate", trace.WithAttributes(
		attribute.String("provider", string(c.Provider)),
		attribute.String("provider_id", c.ProviderID),
		attribute.String("semantic_id", req.SemanticID),
	))
	defer span.End()

	start := p.now()
	series, err := fetch(ctx, c, req)
	attempt := Attempt{Provider: c.Provider, Elapsed: p.now().Sub(start)}

	switch {
	case err != nil:
		attempt.Status = StatusError
		attempt.Error = err.Error()
		attempt.Err = err
		span.RecordError(err)
		span.SetStatus(codes.Error, "provider failed")
		p.logger.WarnContext(ctx, "provider failed, trying next",
			"provider", c.Provider,
			"provider_id", c.ProviderID,
			"error", err,
		)
	case series.IsEmpty():
		attempt.Status = StatusEmpty
		p.logger.DebugContext(ctx, "provider returned no observations",
			"provider", c.Provider,
			"provider_id", c.ProviderID,
		)
	default:
		attempt.Status = StatusSuccess
		attempt.Observations = series.Len()
	}
	span.SetAttributes(attribute.String("status", string(attempt.Status)))
	return attempt, series
}

func (p *Policy) record(provider ProviderKey, status Status) {
	if p.recorder != nil {
		p.recorder.RoutingAttempt(string(provider), string(status))
	}
}
