// Package models holds the normalized time-series value types shared by
// decoders, providers, routing and the series service.
package models

import (
	"math"
	"slices"
	"strings"
	"time"
)

// Observation is a single data point. Time is an opaque, sortable period
// label ("2021", "2021-Q3", "2021-07"). Geo is nil when the source cube has
// no geography axis.
type Observation struct {
	Time  string  `json:"time"`
	Value float64 `json:"value"`
	Geo   *string `json:"geo,omitempty"`
}

// GeoCode returns the observation's geography or "" when absent.
func (o Observation) GeoCode() string {
	if o.Geo == nil {
		return ""
	}
	return *o.Geo
}

// Geo is a convenience for building an optional geography value.
func Geo(code string) *string {
	return &code
}

// Source records where a series came from.
type Source struct {
	Provider   string `json:"provider"`
	ProviderID string `json:"provider_id"`
	URL        string `json:"url"`
}

// Series is a normalized indicator time series.
//
// Invariants (enforced by NewSeries and Normalize):
//   - Values sorted ascending by Time, then by geography
//   - No two values share (Time, Geo)
type Series struct {
	SemanticID  string        `json:"semantic_id"`
	Unit        string        `json:"unit"`
	Freq        string        `json:"freq"`
	Values      []Observation `json:"values"`
	Source      Source        `json:"source"`
	Definition  *string       `json:"definition,omitempty"`
	MethodNotes *string       `json:"method_notes,omitempty"`
	RetrievedAt time.Time     `json:"retrieved_at"`
}

// NewSeries builds a series and normalizes its observations.
func NewSeries(semanticID, unit, freq string, values []Observation, source Source, retrievedAt time.Time) Series {
	s := Series{
		SemanticID:  semanticID,
		Unit:        unit,
		Freq:        freq,
		Values:      values,
		Source:      source,
		RetrievedAt: retrievedAt,
	}
	s.Normalize()
	return s
}

// Len returns the number of observations.
func (s Series) Len() int {
	return len(s.Values)
}

// IsEmpty reports whether the series carries no observations.
func (s Series) IsEmpty() bool {
	return len(s.Values) == 0
}

// Normalize sorts observations by (Time, Geo) and drops later duplicates of
// the same (Time, Geo) pair; the first occurrence in input order wins.
func (s *Series) Normalize() {
	if len(s.Values) == 0 {
		return
	}
	seen := make(map[obsKey]struct{}, len(s.Values))
	out := make([]Observation, 0, len(s.Values))
	for _, o := range s.Values {
		k := obsKey{time: o.Time, geo: o.GeoCode(), hasGeo: o.Geo != nil}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, o)
	}
	slices.SortStableFunc(out, compareObservations)
	s.Values = out
}

type obsKey struct {
	time   string
	geo    string
	hasGeo bool
}

func compareObservations(a, b Observation) int {
	if c := strings.Compare(a.Time, b.Time); c != 0 {
		return c
	}
	return strings.Compare(a.GeoCode(), b.GeoCode())
}

// FiniteOnly drops NaN and infinite values. Decoders keep non-numeric cells
// as NaN; consumers that need clean numbers filter here.
func FiniteOnly(values []Observation) []Observation {
	out := make([]Observation, 0, len(values))
	for _, o := range values {
		if math.IsNaN(o.Value) || math.IsInf(o.Value, 0) {
			continue
		}
		out = append(out, o)
	}
	return out
}
