// Package sdmx decodes sparse, index-keyed SDMX-JSON data messages.
//
// Observations are keyed by colon-delimited positions ("0:3:1"), one
// position per declared dimension, each pointing into that dimension's
// value list. Values are either a scalar or an array whose first element
// is the measurement and the rest are attribute positions.
package sdmx

import (
	"encoding/json"
	"strconv"
	"strings"

	"statbridge/internal/cube"
	"statbridge/internal/series/models"
)

const (
	DefaultTimeDimension = "TIME_PERIOD"
	DefaultGeoDimension  = "REF_AREA"
)

// Code is one value of a dimension or attribute.
type Code struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// Dimension describes one observation axis. Codes are ordered by their
// position, which is the index used in sparse keys.
type Dimension struct {
	ID    string `json:"id"`
	Codes []Code `json:"values"`
}

// Options configures projection and supplies value lists for dimensions
// the payload declares without values.
type Options struct {
	TimeDimension string
	GeoDimension  string
	// Codes fills dimensions whose value list is not embedded, keyed by
	// dimension id. Typically produced by the codelist resolver.
	Codes map[string][]Code
}

func (o Options) withDefaults() Options {
	if o.TimeDimension == "" {
		o.TimeDimension = DefaultTimeDimension
	}
	if o.GeoDimension == "" {
		o.GeoDimension = DefaultGeoDimension
	}
	return o
}

// Row is one decoded observation with every dimension resolved to a code.
type Row struct {
	Key        string
	Dims       map[string]string
	Value      json.RawMessage
	Attributes map[string]string
}

// Number returns the primary value as a float. ok is false for missing or
// non-numeric values.
func (r Row) Number() (float64, bool) {
	if cube.IsNull(r.Value) {
		return 0, false
	}
	return cube.ParseNumber(r.Value)
}

type rawMessage struct {
	Structure rawStructure `json:"structure"`
	DataSets  []rawDataSet `json:"dataSets"`
}

type rawStructure struct {
	Dimensions struct {
		Series      []rawComponent `json:"series"`
		Observation []rawComponent `json:"observation"`
	} `json:"dimensions"`
	Attributes struct {
		Observation []rawComponent `json:"observation"`
	} `json:"attributes"`
}

type rawComponent struct {
	ID     string `json:"id"`
	Values []Code `json:"values"`
}

type rawDataSet struct {
	Observations map[string]json.RawMessage `json:"observations"`
	Series       map[string]struct {
		Observations map[string]json.RawMessage `json:"observations"`
	} `json:"series"`
}

// Message is the validated form of an SDMX-JSON data message.
type Message struct {
	SeriesDims []Dimension
	ObsDims    []Dimension
	attributes []rawComponent
	dataSets   []rawDataSet
}

// Decode parses doc and projects its rows onto observations.
func Decode(doc []byte, opts Options) ([]models.Observation, error) {
	msg, err := Parse(doc)
	if err != nil {
		return nil, err
	}
	rows, err := msg.Rows(opts.Codes)
	if err != nil {
		return nil, err
	}
	return Project(rows, opts), nil
}

// Parse validates doc. A top-level {"data": {...}} envelope is unwrapped.
func Parse(doc []byte) (*Message, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(doc, &top); err != nil {
		return nil, cube.Wrap(cube.FormatSDMX, err, "invalid JSON")
	}
	body := doc
	if inner, ok := top["data"]; ok {
		if _, hasStructure := top["structure"]; !hasStructure {
			body = inner
		}
	}
	if err := messageSchema.Validate(body); err != nil {
		return nil, err
	}

	var raw rawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, cube.Wrap(cube.FormatSDMX, err, "invalid message")
	}
	msg := &Message{
		SeriesDims: dimensions(raw.Structure.Dimensions.Series),
		ObsDims:    dimensions(raw.Structure.Dimensions.Observation),
		attributes: raw.Structure.Attributes.Observation,
		dataSets:   raw.DataSets,
	}
	if len(msg.SeriesDims)+len(msg.ObsDims) == 0 {
		return nil, cube.Errorf(cube.FormatSDMX, "message declares no dimensions")
	}
	return msg, nil
}

func dimensions(components []rawComponent) []Dimension {
	dims := make([]Dimension, len(components))
	for i, c := range components {
		dims[i] = Dimension{ID: c.ID, Codes: c.Values}
	}
	return dims
}

// MissingCodes returns the ids of dimensions declared without values.
func (m *Message) MissingCodes() []string {
	var ids []string
	for _, d := range m.allDims() {
		if len(d.Codes) == 0 {
			ids = append(ids, d.ID)
		}
	}
	return ids
}

func (m *Message) allDims() []Dimension {
	return append(append([]Dimension{}, m.SeriesDims...), m.ObsDims...)
}

// Rows resolves every sparse key to a row. Series-grouped data sets are
// flattened by joining the series key and the observation key.
func (m *Message) Rows(codes map[string][]Code) ([]Row, error) {
	seriesDims := fill(m.SeriesDims, codes)
	obsDims := fill(m.ObsDims, codes)

	var rows []Row
	for _, ds := range m.dataSets {
		for key, value := range ds.Observations {
			row, err := m.row(key, value, nil, nil, obsDims)
			if err != nil {
				return nil, err
			}
			rows = append(rows, row)
		}
		for seriesKey, series := range ds.Series {
			for obsKey, value := range series.Observations {
				row, err := m.row(obsKey, value, strings.Split(seriesKey, ":"), seriesDims, obsDims)
				if err != nil {
					return nil, err
				}
				row.Key = seriesKey + ":" + obsKey
				rows = append(rows, row)
			}
		}
	}
	return rows, nil
}

func fill(dims []Dimension, codes map[string][]Code) []Dimension {
	out := make([]Dimension, len(dims))
	for i, d := range dims {
		if len(d.Codes) == 0 {
			d.Codes = codes[d.ID]
		}
		out[i] = d
	}
	return out
}

func (m *Message) row(key string, value json.RawMessage, seriesSegs []string, seriesDims, obsDims []Dimension) (Row, error) {
	row := Row{Key: key, Dims: make(map[string]string, len(seriesDims)+len(obsDims))}
	if err := resolveKey(row.Dims, seriesSegs, seriesDims); err != nil {
		return Row{}, err
	}
	if err := resolveKey(row.Dims, strings.Split(key, ":"), obsDims); err != nil {
		return Row{}, err
	}

	if len(value) == 0 || value[0] != '[' {
		row.Value = value
		return row, nil
	}
	var fields []json.RawMessage
	if err := json.Unmarshal(value, &fields); err != nil {
		return Row{}, cube.Wrap(cube.FormatSDMX, err, "observation "+key)
	}
	if len(fields) > 0 {
		row.Value = fields[0]
	}
	if len(fields) > 1 {
		row.Attributes = m.resolveAttributes(fields[1:])
	}
	return row, nil
}

func resolveKey(into map[string]string, segs []string, dims []Dimension) error {
	if len(dims) == 0 {
		return nil
	}
	if len(segs) != len(dims) {
		return cube.Errorf(cube.FormatSDMX, "key %q has %d positions for %d dimensions", strings.Join(segs, ":"), len(segs), len(dims))
	}
	for i, seg := range segs {
		pos, err := strconv.Atoi(seg)
		if err != nil {
			return cube.Wrap(cube.FormatSDMX, err, "key position "+strconv.Quote(seg))
		}
		dim := dims[i]
		if len(dim.Codes) == 0 {
			return cube.Errorf(cube.FormatSDMX, "dimension %q has no values", dim.ID)
		}
		if pos < 0 || pos >= len(dim.Codes) {
			return cube.Errorf(cube.FormatSDMX, "position %d out of range for dimension %q", pos, dim.ID)
		}
		into[dim.ID] = dim.Codes[pos].ID
	}
	return nil
}

// resolveAttributes maps attribute positions to their value ids when the
// structure declares them, and keeps the raw text otherwise.
func (m *Message) resolveAttributes(fields []json.RawMessage) map[string]string {
	attrs := make(map[string]string, len(fields))
	for i, f := range fields {
		if cube.IsNull(f) {
			continue
		}
		name := "attr_" + strconv.Itoa(i+1)
		var decl *rawComponent
		if i < len(m.attributes) {
			decl = &m.attributes[i]
			name = decl.ID
		}
		var pos int
		if decl != nil && json.Unmarshal(f, &pos) == nil && pos >= 0 && pos < len(decl.Values) {
			attrs[name] = decl.Values[pos].ID
			continue
		}
		attrs[name] = strings.Trim(string(f), `"`)
	}
	if len(attrs) == 0 {
		return nil
	}
	return attrs
}

// Project turns rows into observations. Rows without a time value or a
// numeric primary value are dropped.
func Project(rows []Row, opts Options) []models.Observation {
	opts = opts.withDefaults()
	out := make([]models.Observation, 0, len(rows))
	for _, r := range rows {
		t := r.Dims[opts.TimeDimension]
		if t == "" {
			continue
		}
		v, ok := r.Number()
		if !ok {
			continue
		}
		obs := models.Observation{Time: t, Value: v}
		if g, ok := r.Dims[opts.GeoDimension]; ok {
			obs.Geo = models.Geo(g)
		}
		out = append(out, obs)
	}
	return out
}
