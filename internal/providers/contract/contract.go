// Package contract holds shared checks every provider adapter must pass.
package contract

import (
	"context"
	"math"
	"testing"

	"statbridge/internal/providers"
	"statbridge/internal/series/models"
)

// ContractTest defines a test case for provider contract validation
type ContractTest struct {
	Name         string
	Provider     providers.Provider
	Request      providers.FetchRequest
	MinValues    int
	ValidateFunc func(series models.Series) error
}

// ContractSuite is a collection of contract tests for a provider
type ContractSuite struct {
	ProviderKey string
	Tests       []ContractTest
}

// Run executes all contract tests in the suite
func (s *ContractSuite) Run(t *testing.T) {
	for _, test := range s.Tests {
		t.Run(test.Name, func(t *testing.T) {
			series, err := test.Provider.Fetch(context.Background(), test.Request)
			if err != nil {
				t.Fatalf("provider fetch failed: %v", err)
			}
			CheckSeries(t, s.ProviderKey, test.Request, series)

			if series.Len() < test.MinValues {
				t.Errorf("expected at least %d values, got %d", test.MinValues, series.Len())
			}
			if test.ValidateFunc != nil {
				if err := test.ValidateFunc(series); err != nil {
					t.Errorf("custom validation failed: %v", err)
				}
			}
		})
	}
}

// CheckSeries validates the invariants every returned series must hold.
func CheckSeries(t *testing.T, providerKey string, req providers.FetchRequest, series models.Series) {
	t.Helper()

	if series.Source.Provider != providerKey {
		t.Errorf("expected source provider %s, got %s", providerKey, series.Source.Provider)
	}
	if series.Source.ProviderID != req.ProviderID {
		t.Errorf("expected source provider id %s, got %s", req.ProviderID, series.Source.ProviderID)
	}
	if series.SemanticID != req.SemanticID {
		t.Errorf("expected semantic id %s, got %s", req.SemanticID, series.SemanticID)
	}
	if series.RetrievedAt.IsZero() {
		t.Error("RetrievedAt not set")
	}

	type key struct{ time, geo string }
	seen := make(map[key]struct{}, series.Len())
	for i, v := range series.Values {
		k := key{v.Time, v.GeoCode()}
		if _, dup := seen[k]; dup {
			t.Errorf("duplicate observation at %s/%s", v.Time, v.GeoCode())
		}
		seen[k] = struct{}{}
		if i > 0 && series.Values[i-1].Time > v.Time {
			t.Errorf("values not sorted by time at index %d", i)
		}
		if math.IsNaN(v.Value) || math.IsInf(v.Value, 0) {
			t.Errorf("non-finite value at %s", v.Time)
		}
	}
}
