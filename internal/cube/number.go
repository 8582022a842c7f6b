package cube

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// IsNull reports whether a raw JSON cell is absent or null.
func IsNull(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return trimmed == "" || trimmed == "null"
}

// ParseNumber reads a raw JSON cell as a number. Numbers and numeric
// strings parse; everything else, including "NaN" and "Infinity", yields
// (NaN, false).
func ParseNumber(raw json.RawMessage) (float64, bool) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return math.NaN(), false
	}
	return NumberFrom(v)
}

// NumberFrom converts an already-decoded JSON value.
func NumberFrom(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case json.Number:
		f, err := t.Float64()
		if err != nil || math.IsInf(f, 0) {
			return math.NaN(), false
		}
		return f, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return math.NaN(), false
		}
		return f, true
	default:
		return math.NaN(), false
	}
}
