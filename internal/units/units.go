// Package units classifies free-text measurement units and converts values
// between rate-like units.
package units

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Unit is a canonical measurement unit.
type Unit string

const (
	Percent    Unit = "percent"
	Per1000    Unit = "per_1000"
	Per100k    Unit = "per_100k"
	PerMillion Unit = "per_million"
	Ratio      Unit = "ratio"
	Index      Unit = "index"
	Count      Unit = "count"
	Unknown    Unit = "unknown"
)

// basis expresses each rate-like unit as a fraction of one.
var basis = map[Unit]float64{
	Percent:    1e-2,
	Per1000:    1e-3,
	Per100k:    1e-5,
	PerMillion: 1e-6,
	Ratio:      1,
}

// IsRate reports whether u converts through the shared ratio basis.
func (u Unit) IsRate() bool {
	_, ok := basis[u]
	return ok
}

// Parse accepts a canonical unit name.
func Parse(s string) (Unit, bool) {
	u := Unit(strings.ToLower(strings.TrimSpace(s)))
	switch u {
	case Percent, Per1000, Per100k, PerMillion, Ratio, Index, Count, Unknown:
		return u, true
	}
	return Unknown, false
}

var aliases = map[string]Unit{
	"percent":              Percent,
	"percentage":           Percent,
	"pct":                  Percent,
	"pc":                   Percent,
	"%":                    Percent,
	"per cent":             Percent,
	"per_1000":             Per1000,
	"per 1000":             Per1000,
	"per 1,000":            Per1000,
	"per thousand":         Per1000,
	"permille":             Per1000,
	"‰":                    Per1000,
	"per_100k":             Per100k,
	"per 100k":             Per100k,
	"per 100000":           Per100k,
	"per 100,000":          Per100k,
	"per 100 000":          Per100k,
	"per hundred thousand": Per100k,
	"per_million":          PerMillion,
	"per million":          PerMillion,
	"per 1000000":          PerMillion,
	"per 1,000,000":        PerMillion,
	"ppm":                  PerMillion,
	"ratio":                Ratio,
	"fraction":             Ratio,
	"proportion":           Ratio,
	"share":                Ratio,
	"index":                Index,
	"idx":                  Index,
	"count":                Count,
	"number":               Count,
	"persons":              Count,
	"people":               Count,
	"nr":                   Count,
	"total":                Count,
}

var (
	perNumber = regexp.MustCompile(`\bper\s+(\d[\d,' ]*)\s*(k|thousand|million)?`)
	perWord   = regexp.MustCompile(`\bper\s+(hundred thousand|hundred|thousand|million)\b`)
)

// Normalize classifies text. Exact alias matches win; otherwise a trailing
// "%", a "per N" phrase or the word "index" decide; anything else is
// Unknown.
func Normalize(text string) Unit {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return Unknown
	}
	if u, ok := aliases[t]; ok {
		return u
	}
	if strings.HasSuffix(t, "%") {
		return Percent
	}
	if u, ok := perPhrase(t); ok {
		return u
	}
	if strings.Contains(t, "index") {
		return Index
	}
	return Unknown
}

// perPhrase recognizes "per 100,000 inhabitants", "per 100k", "per
// thousand" and similar.
func perPhrase(t string) (Unit, bool) {
	if m := perNumber.FindStringSubmatch(t); m != nil {
		n, err := strconv.ParseUint(strings.Map(digitsOnly, m[1]), 10, 64)
		if err != nil {
			return Unknown, false
		}
		switch m[2] {
		case "k", "thousand":
			n *= 1_000
		case "million":
			n *= 1_000_000
		}
		u, ok := perScale[n]
		return u, ok
	}
	if m := perWord.FindStringSubmatch(t); m != nil {
		switch m[1] {
		case "hundred thousand":
			return Per100k, true
		case "hundred":
			return Percent, true
		case "thousand":
			return Per1000, true
		case "million":
			return PerMillion, true
		}
	}
	return Unknown, false
}

var perScale = map[uint64]Unit{
	100:       Percent,
	1_000:     Per1000,
	100_000:   Per100k,
	1_000_000: PerMillion,
}

func digitsOnly(r rune) rune {
	if r >= '0' && r <= '9' {
		return r
	}
	return -1
}

// ConversionError reports a conversion between incommensurable units.
type ConversionError struct {
	From, To Unit
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("cannot convert %s to %s", e.From, e.To)
}

// IsConversionError reports whether err is or wraps a ConversionError.
func IsConversionError(err error) bool {
	var ce *ConversionError
	return errors.As(err, &ce)
}

// Convert rescales value from one unit to another. Same-unit conversion is
// the identity; rate-like units convert through a shared basis; any other
// pair fails with a ConversionError.
func Convert(value float64, from, to Unit) (float64, error) {
	if from == to {
		return value, nil
	}
	bf, okFrom := basis[from]
	bt, okTo := basis[to]
	if !okFrom || !okTo {
		return 0, &ConversionError{From: from, To: to}
	}
	return value * bf / bt, nil
}
