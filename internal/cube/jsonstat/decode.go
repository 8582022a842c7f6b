// Package jsonstat decodes dense, category-indexed JSON-stat 2.0 datasets
// into observations.
//
// A dataset declares an ordered list of dimension ids, a size per
// dimension and a flat value array addressed in row-major order: the
// last dimension varies fastest.
package jsonstat

import (
	"cmp"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"

	"statbridge/internal/cube"
	"statbridge/internal/series/models"
)

const DefaultTimeDimension = "time"

// Options selects the axes projected onto observations.
type Options struct {
	// TimeDimension is required in the dataset; defaults to "time".
	TimeDimension string
	// GeoDimension is optional. When empty or absent from the dataset,
	// observations carry no geography.
	GeoDimension string
	// PreferCodes emits raw category codes instead of display labels.
	PreferCodes bool
}

// Code is one category of a dimension.
type Code struct {
	ID    string
	Label string
}

// Display returns the label when present, else the code.
func (c Code) Display() string {
	if c.Label != "" {
		return c.Label
	}
	return c.ID
}

// Dimension is an axis with its categories in declared index order.
type Dimension struct {
	ID    string
	Label string
	Codes []Code
}

// Dataset is the validated, typed form of a JSON-stat dataset.
type Dataset struct {
	Label   string
	Updated string
	Dims    []Dimension
	Sizes   []int
	// cells holds the non-null values in ascending position order.
	cells []cell
}

type cell struct {
	pos int
	raw json.RawMessage
}

type rawDataset struct {
	ID        []string                `json:"id"`
	Size      []int                   `json:"size"`
	Dimension map[string]rawDimension `json:"dimension"`
	Value     json.RawMessage         `json:"value"`
	Label     string                  `json:"label"`
	Updated   string                  `json:"updated"`
}

type rawDimension struct {
	Label    string      `json:"label"`
	Category rawCategory `json:"category"`
}

type rawCategory struct {
	Index json.RawMessage   `json:"index"`
	Label map[string]string `json:"label"`
}

// Decode parses doc and projects it onto observations.
func Decode(doc []byte, opts Options) ([]models.Observation, error) {
	ds, err := Parse(doc)
	if err != nil {
		return nil, err
	}
	return ds.Observations(opts)
}

// Parse validates and types a JSON-stat document. Both the bare dataset
// form and the {"dataset": {...}} wrapper are accepted.
func Parse(doc []byte) (*Dataset, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(doc, &top); err != nil {
		return nil, cube.Wrap(cube.FormatJSONStat, err, "invalid JSON")
	}
	body := doc
	if wrapped, ok := top["dataset"]; ok {
		body = wrapped
	}
	if err := datasetSchema.Validate(body); err != nil {
		return nil, err
	}

	var raw rawDataset
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, cube.Wrap(cube.FormatJSONStat, err, "invalid dataset")
	}
	return build(raw)
}

func build(raw rawDataset) (*Dataset, error) {
	if len(raw.ID) != len(raw.Size) {
		return nil, cube.Errorf(cube.FormatJSONStat, "%d dimension ids but %d sizes", len(raw.ID), len(raw.Size))
	}

	total, err := cubeSize(raw.Size)
	if err != nil {
		return nil, err
	}

	ds := &Dataset{
		Label:   raw.Label,
		Updated: raw.Updated,
		Sizes:   raw.Size,
		Dims:    make([]Dimension, len(raw.ID)),
	}
	for i, id := range raw.ID {
		rd, ok := raw.Dimension[id]
		if !ok {
			return nil, cube.Errorf(cube.FormatJSONStat, "missing metadata for dimension %q", id)
		}
		codes, err := categoryCodes(id, rd.Category)
		if err != nil {
			return nil, err
		}
		if len(codes) != raw.Size[i] {
			return nil, cube.Errorf(cube.FormatJSONStat, "dimension %q declares size %d but has %d categories", id, raw.Size[i], len(codes))
		}
		ds.Dims[i] = Dimension{ID: id, Label: rd.Label, Codes: codes}
	}

	cells, err := valueCells(raw.Value, total)
	if err != nil {
		return nil, err
	}
	ds.cells = cells
	return ds, nil
}

// categoryCodes orders a dimension's categories by declared index. The
// index may be an object {code: position} or an array of codes; a
// single-category dimension may omit it and carry only a label.
func categoryCodes(dimID string, cat rawCategory) ([]Code, error) {
	positions := map[string]int{}
	switch {
	case cube.IsNull(cat.Index):
		if len(cat.Label) != 1 {
			return nil, cube.Errorf(cube.FormatJSONStat, "dimension %q has no category index", dimID)
		}
		for code := range cat.Label {
			positions[code] = 0
		}
	case cat.Index[0] == '[':
		var list []string
		if err := json.Unmarshal(cat.Index, &list); err != nil {
			return nil, cube.Wrap(cube.FormatJSONStat, err, fmt.Sprintf("dimension %q category index", dimID))
		}
		for pos, code := range list {
			positions[code] = pos
		}
	default:
		if err := json.Unmarshal(cat.Index, &positions); err != nil {
			return nil, cube.Wrap(cube.FormatJSONStat, err, fmt.Sprintf("dimension %q category index", dimID))
		}
	}

	codes := make([]Code, len(positions))
	filled := make([]bool, len(positions))
	for code, pos := range positions {
		if pos < 0 || pos >= len(codes) || filled[pos] {
			return nil, cube.Errorf(cube.FormatJSONStat, "dimension %q has invalid category position %d for %q", dimID, pos, code)
		}
		codes[pos] = Code{ID: code, Label: cat.Label[code]}
		filled[pos] = true
	}
	return codes, nil
}

// cubeSize multiplies the dimension sizes, rejecting negative sizes and
// products that overflow int.
func cubeSize(sizes []int) (int, error) {
	total := 1
	for i, n := range sizes {
		if n < 0 {
			return 0, cube.Errorf(cube.FormatJSONStat, "dimension %d has negative size %d", i, n)
		}
		if n > 0 && total > math.MaxInt/n {
			return 0, cube.Errorf(cube.FormatJSONStat, "cube size overflows with dimension sizes %v", sizes)
		}
		total *= n
	}
	return total, nil
}

// valueCells collects the non-null cells of the value member. Arrays must
// match the cube size exactly; objects map "position" keys to values and
// leave the rest missing. Only present cells are held.
func valueCells(value json.RawMessage, total int) ([]cell, error) {
	if cube.IsNull(value) {
		return nil, cube.Errorf(cube.FormatJSONStat, "missing value member")
	}
	if value[0] == '[' {
		var dense []json.RawMessage
		if err := json.Unmarshal(value, &dense); err != nil {
			return nil, cube.Wrap(cube.FormatJSONStat, err, "value array")
		}
		if len(dense) != total {
			return nil, cube.Errorf(cube.FormatJSONStat, "value count %d does not match cube size %d", len(dense), total)
		}
		cells := make([]cell, 0, len(dense))
		for pos, raw := range dense {
			if !cube.IsNull(raw) {
				cells = append(cells, cell{pos: pos, raw: raw})
			}
		}
		return cells, nil
	}

	var sparse map[string]json.RawMessage
	if err := json.Unmarshal(value, &sparse); err != nil {
		return nil, cube.Wrap(cube.FormatJSONStat, err, "value object")
	}
	cells := make([]cell, 0, len(sparse))
	for key, raw := range sparse {
		pos, err := strconv.Atoi(key)
		if err != nil || pos < 0 || pos >= total {
			return nil, cube.Errorf(cube.FormatJSONStat, "value key %q outside cube of size %d", key, total)
		}
		if !cube.IsNull(raw) {
			cells = append(cells, cell{pos: pos, raw: raw})
		}
	}
	slices.SortFunc(cells, func(a, b cell) int { return cmp.Compare(a.pos, b.pos) })
	return cells, nil
}

// Strides returns, per dimension, how many linear positions one step along
// that dimension spans.
func Strides(sizes []int) []int {
	strides := make([]int, len(sizes))
	acc := 1
	for i := len(sizes) - 1; i >= 0; i-- {
		strides[i] = acc
		acc *= sizes[i]
	}
	return strides
}

// Observations projects the dataset onto (time, value, geo) points. Null
// cells are skipped; non-numeric cells become NaN and are kept.
func (ds *Dataset) Observations(opts Options) ([]models.Observation, error) {
	timeDim := opts.TimeDimension
	if timeDim == "" {
		timeDim = DefaultTimeDimension
	}
	timeIdx := ds.dimensionIndex(timeDim)
	if timeIdx < 0 {
		return nil, cube.Errorf(cube.FormatJSONStat, "time dimension %q not in dataset", timeDim)
	}
	geoIdx := -1
	if opts.GeoDimension != "" {
		geoIdx = ds.dimensionIndex(opts.GeoDimension)
	}

	strides := Strides(ds.Sizes)
	out := make([]models.Observation, 0, len(ds.cells))
	for _, c := range ds.cells {
		value, _ := cube.ParseNumber(c.raw)
		obs := models.Observation{
			Time:  ds.label(timeIdx, ds.codeIndex(c.pos, timeIdx, strides), opts.PreferCodes),
			Value: value,
		}
		if geoIdx >= 0 {
			obs.Geo = models.Geo(ds.label(geoIdx, ds.codeIndex(c.pos, geoIdx, strides), opts.PreferCodes))
		}
		out = append(out, obs)
	}
	return out, nil
}

// NonNullCount returns how many cells carry a value.
func (ds *Dataset) NonNullCount() int {
	return len(ds.cells)
}

// Dimension returns the dimension with the given id.
func (ds *Dataset) Dimension(id string) (Dimension, bool) {
	idx := ds.dimensionIndex(id)
	if idx < 0 {
		return Dimension{}, false
	}
	return ds.Dims[idx], true
}

func (ds *Dataset) dimensionIndex(id string) int {
	return slices.IndexFunc(ds.Dims, func(d Dimension) bool { return d.ID == id })
}

func (ds *Dataset) codeIndex(p, dim int, strides []int) int {
	return (p / strides[dim]) % ds.Sizes[dim]
}

func (ds *Dataset) label(dim, idx int, preferCodes bool) string {
	code := ds.Dims[dim].Codes[idx]
	if preferCodes {
		return code.ID
	}
	return code.Display()
}
