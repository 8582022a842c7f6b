package main

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"statbridge/internal/cube"
	"statbridge/internal/fetch"
	"statbridge/internal/platform/config"
	"statbridge/internal/platform/metrics"
	"statbridge/internal/region"
	"statbridge/internal/routing"
)

func TestBuildRegistryFromDefaultCatalog(t *testing.T) {
	cat, err := config.LoadCatalog("")
	require.NoError(t, err)

	reg, err := buildRegistry(cat, fetch.NewClient(), config.Circuit{}, slog.New(slog.DiscardHandler), metrics.New(prometheus.NewRegistry()))
	require.NoError(t, err)

	oecd, ok := reg.Get("oecd")
	require.True(t, ok)
	assert.Equal(t, cube.FormatSDMX, oecd.Info().Format)
	assert.Equal(t, region.ISO3, oecd.Info().GeoSystem)

	scb, ok := reg.Get("scb")
	require.True(t, ok)
	assert.Equal(t, region.Municipal, scb.Info().GeoSystem)
	assert.Len(t, reg.All(), len(cat.Providers))
}

func TestBuildRegistryRejectsUnknownGeoSystem(t *testing.T) {
	cat, err := config.ParseCatalog([]byte(`
providers:
  a: {format: json-stat, url: "http://a/{id}", geo_system: postcode}
`))
	require.NoError(t, err)

	_, err = buildRegistry(cat, fetch.NewClient(), config.Circuit{}, slog.New(slog.DiscardHandler), nil)
	assert.ErrorContains(t, err, "postcode")
}

func TestRoutingConfigUsesGroup(t *testing.T) {
	cat, err := config.LoadCatalog("")
	require.NoError(t, err)

	rc := routingConfig(cat, region.New())
	assert.True(t, rc.InGroup("SE"))
	assert.True(t, rc.InGroup("SWE"))
	assert.False(t, rc.InGroup("USA"))
	assert.Equal(t, []routing.ProviderKey{"oecd", "eurostat"}, rc.DefaultOrder)

	id, ok := rc.Mapping.ProviderID("gdp_growth", "eurostat")
	assert.True(t, ok)
	assert.Equal(t, "tec00115", id)
}

func TestIndicatorsFromCatalog(t *testing.T) {
	cat, err := config.LoadCatalog("")
	require.NoError(t, err)

	ind := indicators(cat)
	assert.Equal(t, "percent", ind["unemployment_rate"].Unit)
	assert.Equal(t, "A", ind["population"].Freq)
}

func TestBuildAliasesRegistersIndicatorIDs(t *testing.T) {
	cat, err := config.ParseCatalog([]byte(`
providers:
  a: {format: json-stat, url: "http://a/{id}"}
indicators:
  unemployment_rate:
    aliases: [jobless, unemployment]
    providers: {a: U1}
  jobless:
    providers: {a: J1}
  population:
    providers: {a: P1}
`))
	require.NoError(t, err)

	var logs bytes.Buffer
	r := buildAliases(cat, slog.New(slog.NewTextHandler(&logs, nil)))

	assert.Equal(t, "population", r.Resolve("Population").SemanticID)
	assert.Equal(t, "unemployment_rate", r.Resolve("Jobless").SemanticID, "declared alias wins")
	assert.Equal(t, []string{"jobless", "population", "unemployment_rate"}, r.CanonicalIDs())
	assert.Contains(t, logs.String(), "indicator id shadowed by an alias")
	assert.Contains(t, logs.String(), "semantic_id=jobless")
	assert.Contains(t, logs.String(), "resolves_to=unemployment_rate")
}

func TestBuildAliasesFromDefaultCatalog(t *testing.T) {
	cat, err := config.LoadCatalog("")
	require.NoError(t, err)

	var logs bytes.Buffer
	r := buildAliases(cat, slog.New(slog.NewTextHandler(&logs, nil)))
	for id := range cat.Indicators {
		assert.Equal(t, id, r.Resolve(id).SemanticID)
	}
	assert.Empty(t, logs.String())
}
