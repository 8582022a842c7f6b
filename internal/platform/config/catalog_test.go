package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c, err := LoadCatalog("")
	require.NoError(t, err)

	assert.Equal(t, "EEA", c.Routing.Group)
	assert.Contains(t, c.Providers, "eurostat")
	assert.Equal(t, FormatSDMX, c.Providers["oecd"].Format)
	assert.Equal(t, []string{"population total"}, []string(c.Indicators["population"].Aliases))
	assert.Contains(t, c.Aliases()["gdp_growth"], "GDP Growth")
	assert.Equal(t, "tec00115", c.Mapping()["gdp_growth"]["eurostat"])
}

func TestLoadCatalogFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
routing:
  default_order: [a]
providers:
  a: {format: json-stat, url: "http://a/{id}"}
indicators:
  x:
    aliases: single
    providers: {a: X1}
`), 0o600))

	c, err := LoadCatalog(path)
	require.NoError(t, err)
	assert.Equal(t, StringList{"single"}, c.Indicators["x"].Aliases)

	_, err = LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestCatalogAliasesDropRepeats(t *testing.T) {
	c, err := ParseCatalog([]byte(`
providers:
  a: {format: json-stat, url: "http://a/{id}"}
indicators:
  x:
    aliases: ["Head Count", "head count", "", "census"]
    providers: {a: X1}
`))
	require.NoError(t, err)
	assert.Equal(t, []string{"Head Count", "census"}, c.Aliases()["x"])
}

func TestCatalogAliasesSkipIndicatorsWithout(t *testing.T) {
	c, err := ParseCatalog([]byte(`
providers:
  a: {format: json-stat, url: "http://a/{id}"}
indicators:
  x: {aliases: [census], providers: {a: X1}}
  y: {providers: {a: Y1}}
  z: {aliases: ["", " "], providers: {a: Z1}}
`))
	require.NoError(t, err)
	aliases := c.Aliases()
	assert.Contains(t, aliases, "x")
	assert.NotContains(t, aliases, "y")
	assert.NotContains(t, aliases, "z")
}

func TestCatalogValidation(t *testing.T) {
	tests := map[string]string{
		"no providers":    `indicators: {}`,
		"unknown format":  `providers: {a: {format: csv, url: x}}`,
		"missing url":     `providers: {a: {format: json-stat}}`,
		"routing ref":     "providers: {a: {format: json-stat, url: x}}\nrouting: {group_order: [b]}",
		"indicator ref":   "providers: {a: {format: json-stat, url: x}}\nindicators: {x: {providers: {b: y}}}",
		"alias map":       "providers: {a: {format: json-stat, url: x}}\nindicators: {x: {aliases: {k: v}}}",
		"not yaml at all": "providers: [",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseCatalog([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("STATBRIDGE_ADDR", ":9999")
	t.Setenv("FETCH_TIMEOUT", "5s")
	t.Setenv("FETCH_RETRIES", "4")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.Server.Addr)
	assert.Equal(t, 4, cfg.Fetch.Retries)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 350_000_000, int(cfg.Fetch.BaseDelay))
	assert.Equal(t, 5, cfg.Circuit.FailureThreshold)
}

func TestFromEnvRejectsBadValues(t *testing.T) {
	t.Setenv("CACHE_TTL", "ten minutes")
	_, err := FromEnv()
	assert.ErrorContains(t, err, "CACHE_TTL")

	t.Setenv("CACHE_TTL", "")
	t.Setenv("FETCH_RETRIES", "0")
	_, err = FromEnv()
	assert.Error(t, err)
}
