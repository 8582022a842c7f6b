// Package region converts geographic codes between coding systems
// (ISO 3166 alpha-2, alpha-3 and numeric, NUTS-style hierarchical codes and
// Swedish municipal codes) through an ISO3 pivot.
package region

import (
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"sync"
)

// System is a geographic coding system.
type System string

const (
	ISO2         System = "iso2"
	ISO3         System = "iso3"
	Numeric      System = "numeric"
	Hierarchical System = "hierarchical"
	Municipal    System = "municipal"
)

// ParseSystem accepts a system name, case-insensitively. "nuts" is an
// alias for Hierarchical.
func ParseSystem(s string) (System, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "iso2", "alpha2", "alpha-2":
		return ISO2, true
	case "iso3", "alpha3", "alpha-3":
		return ISO3, true
	case "numeric", "m49":
		return Numeric, true
	case "hierarchical", "nuts":
		return Hierarchical, true
	case "municipal", "kommun":
		return Municipal, true
	}
	return "", false
}

// Code is a code tagged with its system.
type Code struct {
	System System `json:"system"`
	Code   string `json:"code"`
}

// Classify guesses the system of an unlabeled code: four digits are
// municipal, one to three digits numeric, two letters alpha-2, three
// letters alpha-3 and anything else hierarchical. It is a heuristic;
// "SE1" and "EL" are both plausible under more than one system.
func Classify(code string) System {
	code = strings.TrimSpace(code)
	switch {
	case allDigits(code) && len(code) == 4:
		return Municipal
	case allDigits(code) && len(code) >= 1 && len(code) <= 3:
		return Numeric
	case allLetters(code) && len(code) == 2:
		return ISO2
	case allLetters(code) && len(code) == 3:
		return ISO3
	default:
		return Hierarchical
	}
}

// Crosswalk maps codes between systems. Reference tables load on first
// use and are kept for the life of the Crosswalk; a load failure is also
// kept and reported by every later call.
type Crosswalk struct {
	load func() (*tables, error)
}

type Option func(*crosswalkOptions)

type crosswalkOptions struct {
	fsys fs.FS
}

// WithTables reads reference tables from fsys instead of the built-in
// set. fsys must hold data/countries.json, data/nuts.json and
// data/municipalities.json.
func WithTables(fsys fs.FS) Option {
	return func(o *crosswalkOptions) {
		o.fsys = fsys
	}
}

func New(opts ...Option) *Crosswalk {
	o := crosswalkOptions{fsys: embedded}
	for _, opt := range opts {
		opt(&o)
	}
	return &Crosswalk{
		load: sync.OnceValues(func() (*tables, error) {
			return loadTables(o.fsys)
		}),
	}
}

// Ready loads the reference tables if needed and reports a load failure.
func (cw *Crosswalk) Ready() error {
	_, err := cw.load()
	if err != nil {
		return fmt.Errorf("load region tables: %w", err)
	}
	return nil
}

// MapCode converts code to the target system. The source system is taken
// from source when given, else guessed with Classify. ok is false when the
// code is unknown or has no counterpart in target.
func (cw *Crosswalk) MapCode(code string, target System, source ...System) (string, bool) {
	t, err := cw.load()
	if err != nil {
		return "", false
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return "", false
	}

	src, guessed := Classify(code), true
	if len(source) > 0 && source[0] != "" {
		src, guessed = source[0], false
	}
	if src == target {
		return normalizeCase(code, src)
	}

	iso3, ok := t.toISO3(code, src)
	if !ok && guessed && (src == ISO2 || src == ISO3) {
		src = Hierarchical
		iso3, ok = t.toISO3(code, src)
	}
	if !ok {
		return "", false
	}
	return t.fromISO3(iso3, target, code, src)
}

// Lookup returns the country a code refers to, in any country-level
// system, a hierarchical area, or a municipal code.
func (cw *Crosswalk) Lookup(code string) (Country, bool) {
	t, err := cw.load()
	if err != nil {
		return Country{}, false
	}
	iso3, ok := cw.MapCode(code, ISO3)
	if !ok {
		return Country{}, false
	}
	c, ok := t.byISO3[iso3]
	if !ok {
		return Country{}, false
	}
	return *c, true
}

// Name returns the display name of code in its system: a country,
// hierarchical area or municipality name. Municipal codes missing from the
// table fall back to their county's name.
func (cw *Crosswalk) Name(code string, source ...System) (string, bool) {
	t, err := cw.load()
	if err != nil {
		return "", false
	}
	code = strings.TrimSpace(code)
	src := Classify(code)
	if len(source) > 0 && source[0] != "" {
		src = source[0]
	}
	switch src {
	case Municipal:
		if m, ok := t.municipalities[code]; ok {
			return m.Name, true
		}
		if c, ok := t.countyOf(code); ok {
			return c.Name, true
		}
		if t.isNationalMunicipal(code) {
			return t.byISO3[t.municipalCountry].Name, true
		}
		return "", false
	case Hierarchical:
		if a, ok := t.areas[strings.ToUpper(code)]; ok {
			return a.Name, true
		}
	}
	c, ok := cw.Lookup(code)
	if !ok {
		return "", false
	}
	return c.Name, true
}

// InGroup reports whether code belongs to a country in the named group.
func (cw *Crosswalk) InGroup(code, group string) bool {
	c, ok := cw.Lookup(code)
	return ok && c.InGroup(group)
}

// Area returns the hierarchical area with the given code.
func (cw *Crosswalk) Area(code string) (Area, bool) {
	t, err := cw.load()
	if err != nil {
		return Area{}, false
	}
	a, ok := t.areas[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return Area{}, false
	}
	return *a, true
}

func (t *tables) toISO3(code string, src System) (string, bool) {
	switch src {
	case ISO2:
		if c, ok := t.byISO2[strings.ToUpper(code)]; ok {
			return c.ISO3, true
		}
	case ISO3:
		if c, ok := t.byISO3[strings.ToUpper(code)]; ok {
			return c.ISO3, true
		}
	case Numeric:
		if padded, ok := padNumeric(code); ok {
			if c, ok := t.byNumeric[padded]; ok {
				return c.ISO3, true
			}
		}
	case Hierarchical:
		if a, ok := t.areas[strings.ToUpper(code)]; ok {
			return t.byISO2[a.Country].ISO3, true
		}
	case Municipal:
		if _, ok := t.countyOf(code); ok || t.isNationalMunicipal(code) {
			return t.municipalCountry, true
		}
	}
	return "", false
}

// fromISO3 projects a resolved country onto target. Hierarchical and
// municipal targets keep sub-national precision when the input carried it,
// joining through the county table.
func (t *tables) fromISO3(iso3 string, target System, code string, src System) (string, bool) {
	c, ok := t.byISO3[iso3]
	if !ok {
		return "", false
	}
	switch target {
	case ISO2:
		return c.ISO2, true
	case ISO3:
		return c.ISO3, true
	case Numeric:
		return c.Numeric, true
	case Hierarchical:
		if src == Municipal && !t.isNationalMunicipal(code) {
			county, ok := t.countyOf(code)
			if !ok {
				return "", false
			}
			return county.NUTS, true
		}
		area, ok := t.nationalArea[iso3]
		return area, ok
	case Municipal:
		if iso3 != t.municipalCountry {
			return "", false
		}
		if src == Hierarchical {
			area := strings.ToUpper(code)
			if county, ok := t.countyByArea[area]; ok {
				return county.Code, true
			}
			// Sub-national areas other than counties have no municipal code.
			if area != t.nationalArea[iso3] {
				return "", false
			}
		}
		return t.nationalMunicipal, t.nationalMunicipal != ""
	}
	return "", false
}

func normalizeCase(code string, sys System) (string, bool) {
	switch sys {
	case ISO2, ISO3, Hierarchical:
		return strings.ToUpper(code), true
	case Numeric:
		return padNumeric(code)
	default:
		return code, true
	}
}

func padNumeric(code string) (string, bool) {
	n, err := strconv.Atoi(code)
	if err != nil || n < 0 || n > 999 {
		return "", false
	}
	return fmt.Sprintf("%03d", n), true
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func allLetters(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}
