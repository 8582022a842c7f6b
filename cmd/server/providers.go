package main

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"statbridge/internal/alias"
	"statbridge/internal/codelist"
	"statbridge/internal/fetch"
	"statbridge/internal/platform/config"
	"statbridge/internal/platform/metrics"
	"statbridge/internal/providers"
	jsonstatprovider "statbridge/internal/providers/jsonstat"
	sdmxprovider "statbridge/internal/providers/sdmx"
	"statbridge/internal/region"
	"statbridge/internal/routing"
	"statbridge/internal/series/service"
	"statbridge/pkg/platform/circuit"
)

// buildRegistry constructs one provider per catalog entry. SDMX providers
// get their own codelist resolver against their structure endpoint.
//
// Every provider sits behind its own circuit breaker.
func buildRegistry(cat *config.Catalog, client *fetch.Client, cc config.Circuit, log *slog.Logger, m *metrics.Metrics) (*providers.Registry, error) {
	reg := providers.NewRegistry()
	for _, key := range slices.Sorted(maps.Keys(cat.Providers)) {
		pc := cat.Providers[key]
		geoSystem, err := parseGeoSystem(pc.GeoSystem)
		if err != nil {
			return nil, fmt.Errorf("provider %s: %w", key, err)
		}
		plog := log.With("provider", key)

		var p providers.Provider
		switch pc.Format {
		case config.FormatJSONStat:
			p = jsonstatprovider.New(jsonstatprovider.Config{
				Key:           key,
				Name:          pc.Name,
				URLTemplate:   pc.URL,
				HealthURL:     pc.HealthURL,
				TimeDimension: pc.TimeDimension,
				GeoDimension:  pc.GeoDimension,
				UnitDimension: pc.UnitDimension,
				GeoSystem:     geoSystem,
				RatePerSecond: pc.RatePerSecond,
				Burst:         pc.Burst,
			}, client, jsonstatprovider.WithLogger(plog))
		case config.FormatSDMX:
			resolver := codelist.NewResolver(
				codelist.NewHTTPSource(client, pc.StructureURL),
				codelist.WithLogger(plog),
				codelist.WithRecorder(m),
			)
			p = sdmxprovider.New(sdmxprovider.Config{
				Key:           key,
				Name:          pc.Name,
				URLTemplate:   pc.URL,
				HealthURL:     pc.HealthURL,
				DefaultKey:    pc.DefaultKey,
				TimeDimension: pc.TimeDimension,
				GeoDimension:  pc.GeoDimension,
				GeoSystem:     geoSystem,
				RatePerSecond: pc.RatePerSecond,
				Burst:         pc.Burst,
			}, client, resolver, sdmxprovider.WithLogger(plog))
		default:
			return nil, fmt.Errorf("provider %s: unsupported format %q", key, pc.Format)
		}
		breaker := circuit.New(key,
			circuit.WithFailureThreshold(cc.FailureThreshold),
			circuit.WithCooldown(cc.Cooldown),
		)
		if err := reg.Register(providers.Guard(p, breaker, plog)); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func parseGeoSystem(s string) (region.System, error) {
	if s == "" {
		return "", nil
	}
	sys, ok := region.ParseSystem(s)
	if !ok {
		return "", fmt.Errorf("unknown geo_system %q", s)
	}
	return sys, nil
}

func routingConfig(cat *config.Catalog, cw *region.Crosswalk) routing.Config {
	mapping := make(routing.Mapping, len(cat.Indicators))
	for id, byProvider := range cat.Mapping() {
		mapping[id] = make(map[routing.ProviderKey]string, len(byProvider))
		for p, providerID := range byProvider {
			mapping[id][routing.ProviderKey(p)] = providerID
		}
	}
	group := cat.Routing.Group
	return routing.Config{
		InGroup: func(geo string) bool {
			return group != "" && cw.InGroup(geo, group)
		},
		GroupOrder:   keys(cat.Routing.GroupOrder),
		DefaultOrder: keys(cat.Routing.DefaultOrder),
		Mapping:      mapping,
	}
}

func keys(ss []string) []routing.ProviderKey {
	out := make([]routing.ProviderKey, len(ss))
	for i, s := range ss {
		out[i] = routing.ProviderKey(s)
	}
	return out
}

func indicators(cat *config.Catalog) map[string]service.Indicator {
	out := make(map[string]service.Indicator, len(cat.Indicators))
	for id, ind := range cat.Indicators {
		out[id] = service.Indicator{
			Unit:        ind.Unit,
			Freq:        ind.Freq,
			Definition:  ind.Definition,
			MethodNotes: ind.MethodNotes,
		}
	}
	return out
}

// buildAliases seeds the resolver with the declared aliases, then registers
// every catalog indicator id as resolving to itself. Ids whose key an alias
// already claims are logged; they resolve to the alias target.
func buildAliases(cat *config.Catalog, log *slog.Logger) *alias.Resolver {
	r := alias.Build(cat.Aliases())
	ids := slices.Sorted(maps.Keys(cat.Indicators))
	for _, id := range r.RegisterCanonicalIDs(ids...) {
		log.Warn("indicator id shadowed by an alias",
			"semantic_id", id,
			"resolves_to", r.Resolve(id).SemanticID,
		)
	}
	return r
}
