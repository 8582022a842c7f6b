package cube

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// maxReportedViolations caps how many schema violations end up in a
// DecodeError message.
const maxReportedViolations = 3

// Schema validates the structural shape of a payload before it is decoded
// into typed form, so shape mismatches fail fast with a DecodeError.
type Schema struct {
	format Format
	schema *gojsonschema.Schema
}

// MustCompileSchema compiles a JSON Schema document. It panics on an
// invalid schema since schemas are package constants.
func MustCompileSchema(format Format, src string) *Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("compile %s schema: %v", format, err))
	}
	return &Schema{format: format, schema: s}
}

// Validate checks doc against the schema.
func (s *Schema) Validate(doc []byte) error {
	result, err := s.schema.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return Wrap(s.format, err, "invalid JSON")
	}
	if result.Valid() {
		return nil
	}
	violations := result.Errors()
	msgs := make([]string, 0, min(len(violations), maxReportedViolations))
	for i, v := range violations {
		if i == maxReportedViolations {
			msgs = append(msgs, fmt.Sprintf("and %d more", len(violations)-i))
			break
		}
		msgs = append(msgs, v.String())
	}
	return Errorf(s.format, "payload shape mismatch: %s", strings.Join(msgs, "; "))
}
