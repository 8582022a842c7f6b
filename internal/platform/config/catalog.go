package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	platformstrings "statbridge/pkg/platform/strings"
)

//go:embed default_catalog.yaml
var defaultCatalog []byte

// Provider formats understood by the catalog.
const (
	FormatJSONStat = "json-stat"
	FormatSDMX     = "sdmx-json"
)

// Catalog declares providers, indicators and routing tables.
type Catalog struct {
	Routing    Routing                   `yaml:"routing"`
	Providers  map[string]ProviderConfig `yaml:"providers"`
	Indicators map[string]Indicator      `yaml:"indicators"`
}

// Routing holds the two baseline provider orders and the regional group
// that selects between them.
type Routing struct {
	Group        string   `yaml:"group"`
	GroupOrder   []string `yaml:"group_order"`
	DefaultOrder []string `yaml:"default_order"`
}

// ProviderConfig describes one upstream.
type ProviderConfig struct {
	Name          string  `yaml:"name"`
	Format        string  `yaml:"format"`
	URL           string  `yaml:"url"`
	StructureURL  string  `yaml:"structure_url"`
	HealthURL     string  `yaml:"health_url"`
	TimeDimension string  `yaml:"time_dimension"`
	GeoDimension  string  `yaml:"geo_dimension"`
	UnitDimension string  `yaml:"unit_dimension"`
	GeoSystem     string  `yaml:"geo_system"`
	DefaultKey    string  `yaml:"default_key"`
	RatePerSecond float64 `yaml:"rate_per_second"`
	Burst         int     `yaml:"burst"`
}

// Indicator is one semantic id with its aliases and per-provider ids.
type Indicator struct {
	Unit        string            `yaml:"unit"`
	Freq        string            `yaml:"freq"`
	Definition  string            `yaml:"definition"`
	MethodNotes string            `yaml:"method_notes"`
	Aliases     StringList        `yaml:"aliases"`
	Providers   map[string]string `yaml:"providers"`
}

// StringList accepts either a scalar or a sequence of scalars.
type StringList []string

func (l *StringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		*l = StringList{s}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}
		*l = list
		return nil
	default:
		return fmt.Errorf("line %d: expected a string or a list of strings", node.Line)
	}
}

// LoadCatalog reads a catalog from path, or the built-in catalog when
// path is empty.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return ParseCatalog(defaultCatalog)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(b)
}

// ParseCatalog decodes and validates a YAML catalog.
func ParseCatalog(b []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks that every reference in the catalog resolves.
func (c *Catalog) Validate() error {
	var errs []error
	if len(c.Providers) == 0 {
		errs = append(errs, errors.New("catalog declares no providers"))
	}
	for key, p := range c.Providers {
		if !slices.Contains([]string{FormatJSONStat, FormatSDMX}, p.Format) {
			errs = append(errs, fmt.Errorf("provider %s: unknown format %q", key, p.Format))
		}
		if p.URL == "" {
			errs = append(errs, fmt.Errorf("provider %s: url is required", key))
		}
	}
	for _, key := range slices.Concat(c.Routing.GroupOrder, c.Routing.DefaultOrder) {
		if _, ok := c.Providers[key]; !ok {
			errs = append(errs, fmt.Errorf("routing: unknown provider %s", key))
		}
	}
	for id, ind := range c.Indicators {
		for key := range ind.Providers {
			if _, ok := c.Providers[key]; !ok {
				errs = append(errs, fmt.Errorf("indicator %s: unknown provider %s", id, key))
			}
		}
	}
	return errors.Join(errs...)
}

// Aliases returns the alias dictionary keyed by semantic id, for the
// indicators that declare aliases. Blank and case-only repeats are dropped.
func (c *Catalog) Aliases() map[string][]string {
	out := make(map[string][]string, len(c.Indicators))
	for id, ind := range c.Indicators {
		if aliases := platformstrings.DedupeFold(slices.Clone(ind.Aliases)); len(aliases) > 0 {
			out[id] = aliases
		}
	}
	return out
}

// Mapping returns, per semantic id, each provider's id for it.
func (c *Catalog) Mapping() map[string]map[string]string {
	out := make(map[string]map[string]string, len(c.Indicators))
	for id, ind := range c.Indicators {
		out[id] = ind.Providers
	}
	return out
}
