package httptransport

import (
	"context"
	"log/slog"

	"statbridge/internal/alias"
	"statbridge/internal/region"
	"statbridge/internal/series/service"
)

// SeriesService serves normalized series.
type SeriesService interface {
	Get(ctx context.Context, q service.Query) (*service.Result, error)
}

// AliasResolver resolves and suggests indicator names.
type AliasResolver interface {
	Resolve(input string) alias.Resolution
	Known(input string) bool
	Suggest(input string, n int) []string
}

// RegionMapper converts and describes geography codes.
type RegionMapper interface {
	MapCode(code string, target region.System, source ...region.System) (string, bool)
	Lookup(code string) (region.Country, bool)
	Name(code string, source ...region.System) (string, bool)
	Ready() error
}

// ProviderHealth checks upstream providers.
type ProviderHealth interface {
	Health(ctx context.Context) map[string]error
}

// Handler is the thin HTTP layer. It delegates to the services without
// embedding business logic.
type Handler struct {
	series    SeriesService
	aliases   AliasResolver
	regions   RegionMapper
	providers ProviderHealth
	logger    *slog.Logger
}

func NewHandler(series SeriesService, aliases AliasResolver, regions RegionMapper, providers ProviderHealth, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{
		series:    series,
		aliases:   aliases,
		regions:   regions,
		providers: providers,
		logger:    logger,
	}
}
