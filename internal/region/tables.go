package region

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"strings"

	"golang.org/x/sync/errgroup"
)

//go:embed data/*.json
var embedded embed.FS

// Country is one row of the country reference table.
type Country struct {
	Name    string   `json:"name"`
	ISO2    string   `json:"iso2"`
	ISO3    string   `json:"iso3"`
	Numeric string   `json:"numeric"`
	Groups  []string `json:"groups,omitempty"`
}

// InGroup reports membership in a regional group such as "EU" or "OECD".
func (c Country) InGroup(group string) bool {
	for _, g := range c.Groups {
		if strings.EqualFold(g, group) {
			return true
		}
	}
	return false
}

// Area is a hierarchical statistical region. Level 0 is the whole country.
type Area struct {
	Code    string `json:"code"`
	Name    string `json:"name"`
	Level   int    `json:"level"`
	Country string `json:"country"`
}

type county struct {
	Code string `json:"code"`
	Name string `json:"name"`
	NUTS string `json:"nuts"`
}

type municipality struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type subdivisionFile struct {
	Country string `json:"country"`
	// National is the municipal-system code for the whole country.
	National       string         `json:"national"`
	Counties       []county       `json:"counties"`
	Municipalities []municipality `json:"municipalities"`
}

// tables is the loaded, indexed reference data. Immutable after load.
type tables struct {
	byISO2    map[string]*Country
	byISO3    map[string]*Country
	byNumeric map[string]*Country
	areas     map[string]*Area
	// nationalArea maps ISO3 to the country's level-0 area code.
	nationalArea map[string]string
	// municipalCountry is the ISO3 of the single country the municipal
	// system covers.
	municipalCountry string
	// nationalMunicipal is the municipal-system code for that country;
	// empty when the table declares none.
	nationalMunicipal string
	counties          map[string]county
	countyByArea      map[string]county
	municipalities    map[string]municipality
}

func loadTables(fsys fs.FS) (*tables, error) {
	var (
		countries []Country
		areas     []Area
		subdiv    subdivisionFile
	)
	var g errgroup.Group
	g.Go(func() error { return readJSON(fsys, "data/countries.json", &countries) })
	g.Go(func() error { return readJSON(fsys, "data/nuts.json", &areas) })
	g.Go(func() error { return readJSON(fsys, "data/municipalities.json", &subdiv) })
	if err := g.Wait(); err != nil {
		return nil, err
	}

	t := &tables{
		byISO2:         make(map[string]*Country, len(countries)),
		byISO3:         make(map[string]*Country, len(countries)),
		byNumeric:      make(map[string]*Country, len(countries)),
		areas:          make(map[string]*Area, len(areas)),
		nationalArea:   make(map[string]string),
		counties:       make(map[string]county, len(subdiv.Counties)),
		countyByArea:   make(map[string]county, len(subdiv.Counties)),
		municipalities: make(map[string]municipality, len(subdiv.Municipalities)),
	}
	for i := range countries {
		c := &countries[i]
		t.byISO2[c.ISO2] = c
		t.byISO3[c.ISO3] = c
		t.byNumeric[c.Numeric] = c
	}
	for i := range areas {
		a := &areas[i]
		c, ok := t.byISO2[a.Country]
		if !ok {
			return nil, fmt.Errorf("area %s references unknown country %s", a.Code, a.Country)
		}
		t.areas[a.Code] = a
		if a.Level == 0 {
			t.nationalArea[c.ISO3] = a.Code
		}
	}

	home, ok := t.byISO2[subdiv.Country]
	if !ok {
		return nil, fmt.Errorf("municipal table references unknown country %s", subdiv.Country)
	}
	t.municipalCountry = home.ISO3
	t.nationalMunicipal = subdiv.National
	for _, c := range subdiv.Counties {
		if _, ok := t.areas[c.NUTS]; !ok {
			return nil, fmt.Errorf("county %s references unknown area %s", c.Code, c.NUTS)
		}
		t.counties[c.Code] = c
		t.countyByArea[c.NUTS] = c
	}
	for _, m := range subdiv.Municipalities {
		t.municipalities[m.Code] = m
	}
	return t, nil
}

func readJSON(fsys fs.FS, name string, into any) error {
	b, err := fs.ReadFile(fsys, name)
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := json.Unmarshal(b, into); err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	return nil
}

// countyOf returns the county a municipal code belongs to. Municipal codes
// are four digits whose first two are the county code; a two-digit code is
// the county itself.
func (t *tables) countyOf(code string) (county, bool) {
	if (len(code) != 4 && len(code) != 2) || !allDigits(code) {
		return county{}, false
	}
	c, ok := t.counties[code[:2]]
	return c, ok
}

// isNationalMunicipal reports whether code is the whole-country code of the
// municipal system.
func (t *tables) isNationalMunicipal(code string) bool {
	return t.nationalMunicipal != "" && code == t.nationalMunicipal
}
