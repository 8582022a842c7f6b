package codelist

import (
	"encoding/json"
	"slices"
	"strings"

	"statbridge/internal/cube/sdmx"
)

// localized decodes an SDMX name that is either a plain string or a
// language map such as {"en": "Sweden"}.
type localized string

func (l *localized) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*l = localized(s)
		return nil
	}
	var byLang map[string]string
	if err := json.Unmarshal(b, &byLang); err != nil {
		return err
	}
	if en, ok := byLang["en"]; ok {
		*l = localized(en)
		return nil
	}
	for _, v := range byLang {
		*l = localized(v)
		break
	}
	return nil
}

type rawCode struct {
	ID   string    `json:"id"`
	Name localized `json:"name"`
}

func (c rawCode) code() sdmx.Code {
	return sdmx.Code{ID: c.ID, Name: string(c.Name)}
}

type dataflowMessage struct {
	Data struct {
		Dataflows []rawDataflow `json:"dataflows"`
	} `json:"data"`
}

type rawDataflow struct {
	ID        string `json:"id"`
	Agency    string `json:"agencyID"`
	Version   string `json:"version"`
	Structure string `json:"structure"`
}

// matches reports whether the dataflow is the one flowID names. flowID is
// either a bare id or the REST form "agency,id,version", where an empty
// or "latest" version and an empty agency match any.
func (f rawDataflow) matches(flowID string) bool {
	if f.ID == flowID {
		return true
	}
	parts := strings.Split(flowID, ",")
	if len(parts) < 2 || len(parts) > 3 || parts[1] != f.ID {
		return false
	}
	if agency := parts[0]; agency != "" && f.Agency != "" && agency != f.Agency {
		return false
	}
	if len(parts) == 3 {
		v := parts[2]
		if v != "" && v != "latest" && f.Version != "" && v != f.Version {
			return false
		}
	}
	return true
}

type structureMessage struct {
	Data struct {
		DataStructures []struct {
			ID         string `json:"id"`
			Components struct {
				DimensionList struct {
					Dimensions     []rawDimension `json:"dimensions"`
					TimeDimensions []rawDimension `json:"timeDimensions"`
				} `json:"dimensionList"`
			} `json:"dataStructureComponents"`
		} `json:"dataStructures"`
		Codelists []struct {
			ID      string    `json:"id"`
			Agency  string    `json:"agencyID"`
			Version string    `json:"version"`
			Codes   []rawCode `json:"codes"`
		} `json:"codelists"`
	} `json:"data"`
}

type rawDimension struct {
	ID                  string `json:"id"`
	LocalRepresentation struct {
		Enumeration string `json:"enumeration"`
	} `json:"localRepresentation"`
	Values []rawCode `json:"values"`
}

// structureRef extracts the data structure reference for flowID from a
// dataflow message.
func structureRef(flowID string, doc []byte) (Ref, error) {
	var msg dataflowMessage
	if err := json.Unmarshal(doc, &msg); err != nil {
		return Ref{}, &UnresolvedStructureError{FlowID: flowID, Reason: "invalid dataflow message", Err: err}
	}
	flows := msg.Data.Dataflows
	if len(flows) == 0 {
		return Ref{}, unresolved(flowID, "dataflow message lists no dataflows")
	}
	i := slices.IndexFunc(flows, func(f rawDataflow) bool { return f.matches(flowID) })
	if i < 0 {
		return Ref{}, unresolved(flowID, "dataflow message does not list the requested flow")
	}
	raw := flows[i].Structure
	ref, ok := ParseRef(raw)
	if !ok {
		return Ref{}, unresolved(flowID, "unparseable structure reference %q", raw)
	}
	return ref, nil
}

// joinCodelists maps each declared dimension to its codes: the referenced
// codelist when the dimension has one, else any inline values.
// Dimensions with neither are left out.
func joinCodelists(flowID string, doc []byte) (map[string][]sdmx.Code, error) {
	var msg structureMessage
	if err := json.Unmarshal(doc, &msg); err != nil {
		return nil, &UnresolvedStructureError{FlowID: flowID, Reason: "invalid structure message", Err: err}
	}
	if len(msg.Data.DataStructures) == 0 {
		return nil, unresolved(flowID, "structure message has no data structure")
	}

	lists := make(map[Ref][]rawCode, len(msg.Data.Codelists))
	for _, cl := range msg.Data.Codelists {
		lists[Ref{Agency: cl.Agency, ID: cl.ID, Version: cl.Version}] = cl.Codes
	}

	dl := msg.Data.DataStructures[0].Components.DimensionList
	dims := append(append([]rawDimension{}, dl.Dimensions...), dl.TimeDimensions...)
	out := make(map[string][]sdmx.Code, len(dims))
	for _, d := range dims {
		raw := d.Values
		if enum := d.LocalRepresentation.Enumeration; enum != "" {
			ref, ok := ParseRef(enum)
			if !ok {
				return nil, unresolved(flowID, "dimension %s: unparseable codelist reference %q", d.ID, enum)
			}
			codes, ok := lists[ref]
			if !ok {
				return nil, unresolved(flowID, "dimension %s: codelist %s not in structure", d.ID, ref)
			}
			raw = codes
		}
		if len(raw) == 0 {
			continue
		}
		codes := make([]sdmx.Code, len(raw))
		for i, c := range raw {
			codes[i] = c.code()
		}
		out[d.ID] = codes
	}
	return out, nil
}
