package region

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type CrosswalkSuite struct {
	suite.Suite
	cw *Crosswalk
}

func TestCrosswalkSuite(t *testing.T) {
	suite.Run(t, new(CrosswalkSuite))
}

func (s *CrosswalkSuite) SetupSuite() {
	s.cw = New()
	s.Require().NoError(s.cw.Ready())
}

func (s *CrosswalkSuite) TestClassify() {
	tests := map[string]System{
		"0180":  Municipal,
		"752":   Numeric,
		"40":    Numeric,
		"se":    ISO2,
		"SWE":   ISO3,
		"SE110": Hierarchical,
		"SE1":   Hierarchical,
		"12345": Hierarchical,
		"":      Hierarchical,
	}
	for code, want := range tests {
		s.Equal(want, Classify(code), code)
	}
}

func (s *CrosswalkSuite) TestSameSystemNormalizesCase() {
	tests := []struct {
		code string
		sys  System
		want string
	}{
		{"se", ISO2, "SE"},
		{"swe", ISO3, "SWE"},
		{"40", Numeric, "040"},
		{"se110", Hierarchical, "SE110"},
		{"0180", Municipal, "0180"},
	}
	for _, tt := range tests {
		got, ok := s.cw.MapCode(tt.code, tt.sys, tt.sys)
		s.True(ok, tt.code)
		s.Equal(tt.want, got)
	}
}

func (s *CrosswalkSuite) TestCountryConversions() {
	tests := []struct {
		code   string
		target System
		want   string
	}{
		{"SE", ISO3, "SWE"},
		{"swe", ISO2, "SE"},
		{"SWE", Numeric, "752"},
		{"40", ISO3, "AUT"},
		{"036", ISO2, "AU"},
		{"GR", Hierarchical, "EL"},
		{"GBR", Hierarchical, "UK"},
		{"SE", Hierarchical, "SE"},
	}
	for _, tt := range tests {
		got, ok := s.cw.MapCode(tt.code, tt.target)
		s.True(ok, "%s -> %s", tt.code, tt.target)
		s.Equal(tt.want, got, "%s -> %s", tt.code, tt.target)
	}
}

func (s *CrosswalkSuite) TestHierarchicalAndMunicipal() {
	got, ok := s.cw.MapCode("SE110", ISO3)
	s.True(ok)
	s.Equal("SWE", got)

	got, ok = s.cw.MapCode("EL", ISO3)
	s.True(ok, "unlabeled NUTS country code falls back to the area table")
	s.Equal("GRC", got)

	_, ok = s.cw.MapCode("EL", ISO3, ISO2)
	s.False(ok, "explicit source disables the fallback")

	got, ok = s.cw.MapCode("0180", ISO2)
	s.True(ok)
	s.Equal("SE", got)

	got, ok = s.cw.MapCode("1480", Hierarchical)
	s.True(ok)
	s.Equal("SE232", got)

	got, ok = s.cw.MapCode("2599", Hierarchical, Municipal)
	s.True(ok, "unlisted municipality still resolves through its county")
	s.Equal("SE332", got)

	_, ok = s.cw.MapCode("1180", ISO3)
	s.False(ok, "county 11 does not exist")
}

func (s *CrosswalkSuite) TestMunicipalTarget() {
	tests := []struct {
		code   string
		source System
		want   string
	}{
		{"SE110", Hierarchical, "01"},
		{"se232", Hierarchical, "14"},
		{"SE", Hierarchical, "00"},
		{"SE", ISO2, "00"},
		{"SWE", ISO3, "00"},
		{"752", Numeric, "00"},
	}
	for _, tt := range tests {
		got, ok := s.cw.MapCode(tt.code, Municipal, tt.source)
		s.True(ok, "%s (%s) -> municipal", tt.code, tt.source)
		s.Equal(tt.want, got, "%s (%s) -> municipal", tt.code, tt.source)
	}

	for _, code := range []string{"SE1", "SE11", "DE", "NOR"} {
		_, ok := s.cw.MapCode(code, Municipal)
		s.False(ok, code)
	}
}

func (s *CrosswalkSuite) TestMunicipalCountyAndNationalCodes() {
	got, ok := s.cw.MapCode("01", Hierarchical, Municipal)
	s.True(ok)
	s.Equal("SE110", got)

	got, ok = s.cw.MapCode("00", Hierarchical, Municipal)
	s.True(ok)
	s.Equal("SE", got)

	got, ok = s.cw.MapCode("00", ISO3, Municipal)
	s.True(ok)
	s.Equal("SWE", got)

	name, ok := s.cw.Name("01", Municipal)
	s.True(ok)
	s.Equal("Stockholms län", name)

	name, ok = s.cw.Name("00", Municipal)
	s.True(ok)
	s.Equal("Sweden", name)
}

func (s *CrosswalkSuite) TestMunicipalRoundTripThroughHierarchical() {
	for _, county := range []string{"01", "03", "12", "14", "25"} {
		area, ok := s.cw.MapCode(county, Hierarchical, Municipal)
		s.Require().True(ok, county)
		back, ok := s.cw.MapCode(area, Municipal, Hierarchical)
		s.Require().True(ok, area)
		s.Equal(county, back)
	}
}

func (s *CrosswalkSuite) TestUnknown() {
	for _, code := range []string{"XX", "XXX", "999", "ZZ9", "", "   "} {
		_, ok := s.cw.MapCode(code, ISO3)
		s.False(ok, code)
	}
}

func (s *CrosswalkSuite) TestLookupAndGroups() {
	c, ok := s.cw.Lookup("SE110")
	s.Require().True(ok)
	s.Equal("Sweden", c.Name)

	s.True(s.cw.InGroup("DE", "EU"))
	s.True(s.cw.InGroup("NOR", "eea"))
	s.False(s.cw.InGroup("NO", "EU"))
	s.True(s.cw.InGroup("840", "OECD"))
	s.False(s.cw.InGroup("XX", "EU"))
}

func (s *CrosswalkSuite) TestName() {
	name, ok := s.cw.Name("0180")
	s.True(ok)
	s.Equal("Stockholm", name)

	name, ok = s.cw.Name("2599")
	s.True(ok)
	s.Equal("Norrbottens län", name)

	name, ok = s.cw.Name("SE232")
	s.True(ok)
	s.Equal("Västra Götalands län", name)

	name, ok = s.cw.Name("fra")
	s.True(ok)
	s.Equal("France", name)

	a, ok := s.cw.Area("se33")
	s.True(ok)
	s.Equal(2, a.Level)
}

func (s *CrosswalkSuite) TestISO2RoundTrip() {
	t, err := s.cw.load()
	s.Require().NoError(err)
	s.Require().NotEmpty(t.byISO2)

	for iso2 := range t.byISO2 {
		iso3, ok := s.cw.MapCode(iso2, ISO3)
		s.Require().True(ok, iso2)
		back, ok := s.cw.MapCode(iso3, ISO2)
		s.Require().True(ok, iso3)
		s.Equal(iso2, back)
	}
}

func TestTablesLoadOnce(t *testing.T) {
	cw := New()
	for range 5 {
		require.NoError(t, cw.Ready())
	}
	first, err := cw.load()
	require.NoError(t, err)
	second, err := cw.load()
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestLoadFailureIsReported(t *testing.T) {
	broken := fstest.MapFS{
		"data/countries.json":      {Data: []byte(`[{"name": "Sweden", "iso2": "SE", "iso3": "SWE", "numeric": "752"}]`)},
		"data/nuts.json":           {Data: []byte(`[{"code": "DE", "level": 0, "country": "DE"}]`)},
		"data/municipalities.json": {Data: []byte(`{"country": "SE"}`)},
	}
	cw := New(WithTables(broken))
	require.Error(t, cw.Ready())
	require.Error(t, cw.Ready())
	_, ok := cw.MapCode("SE", ISO3)
	assert.False(t, ok)

	missing := New(WithTables(fstest.MapFS{}))
	assert.Error(t, missing.Ready())
}

func TestCustomTables(t *testing.T) {
	fsys := fstest.MapFS{
		"data/countries.json": {Data: []byte(`[{"name": "Norway", "iso2": "NO", "iso3": "NOR", "numeric": "578"}]`)},
		"data/nuts.json":      {Data: []byte(`[{"code": "NO", "name": "Norway", "level": 0, "country": "NO"}]`)},
		"data/municipalities.json": {Data: []byte(`{"country": "NO",
			"counties": [{"code": "03", "name": "Oslo", "nuts": "NO"}],
			"municipalities": [{"code": "0301", "name": "Oslo"}]}`)},
	}
	cw := New(WithTables(fsys))
	require.NoError(t, cw.Ready())

	got, ok := cw.MapCode("0301", ISO3)
	require.True(t, ok)
	assert.Equal(t, "NOR", got)

	_, ok = cw.MapCode("NOR", Municipal)
	assert.False(t, ok, "table declares no national municipal code")
}
