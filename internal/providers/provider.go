// Package providers defines the upstream statistical data sources the
// routing policy falls back across, and the registry that holds them.
package providers

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"statbridge/internal/cube"
	"statbridge/internal/region"
	"statbridge/internal/series/models"
)

// Info describes a provider.
type Info struct {
	Key    string
	Name   string
	Format cube.Format
	// GeoSystem is the coding system the provider expects in queries and
	// returns in observations.
	GeoSystem region.System
}

// FetchRequest asks a provider for one indicator.
type FetchRequest struct {
	SemanticID string
	// ProviderID is the provider's own id for the indicator.
	ProviderID string
	// Geo is already expressed in the provider's GeoSystem; empty means
	// all geographies.
	Geo string
	// Unit is the catalog unit, used when the payload carries none.
	Unit string
	Freq string
}

//go:generate mockgen -source=provider.go -destination=mocks/mocks.go -package=mocks Provider

// Provider is the interface all upstream statistics sources implement
type Provider interface {
	// Key returns a unique identifier for this provider instance
	Key() string

	// Info describes the provider
	Info() Info

	// Fetch retrieves and decodes a series. A series with no observations
	// is not an error.
	Fetch(ctx context.Context, req FetchRequest) (models.Series, error)

	// Health checks if the provider is available
	Health(ctx context.Context) error
}

// Registry maintains all registered providers
type Registry struct {
	providers map[string]Provider
}

// NewRegistry creates a new empty registry
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
	}
}

// Register adds a provider to the registry
func (r *Registry) Register(p Provider) error {
	key := p.Key()
	if _, exists := r.providers[key]; exists {
		return fmt.Errorf("provider %s already registered", key)
	}
	r.providers[key] = p
	return nil
}

// Get retrieves a provider by key
func (r *Registry) Get(key string) (Provider, bool) {
	p, ok := r.providers[key]
	return p, ok
}

// All returns all registered providers sorted by key
func (r *Registry) All() []Provider {
	result := make([]Provider, 0, len(r.providers))
	for _, p := range r.providers {
		result = append(result, p)
	}
	slices.SortFunc(result, func(a, b Provider) int { return strings.Compare(a.Key(), b.Key()) })
	return result
}

// Health checks every provider and returns failures by key.
func (r *Registry) Health(ctx context.Context) map[string]error {
	failed := make(map[string]error)
	for _, p := range r.All() {
		if err := p.Health(ctx); err != nil {
			failed[p.Key()] = err
		}
	}
	return failed
}

// ExpandTemplate substitutes {name} placeholders in tmpl.
func ExpandTemplate(tmpl string, values map[string]string) string {
	pairs := make([]string, 0, 2*len(values))
	for k, v := range values {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}
