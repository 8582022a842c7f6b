package jsonstat

import "statbridge/internal/cube"

var datasetSchema = cube.MustCompileSchema(cube.FormatJSONStat, `{
  "type": "object",
  "required": ["id", "size", "dimension", "value"],
  "properties": {
    "id":   {"type": "array", "minItems": 1, "items": {"type": "string"}},
    "size": {"type": "array", "minItems": 1, "items": {"type": "integer", "minimum": 0}},
    "dimension": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "required": ["category"],
        "properties": {
          "label": {"type": "string"},
          "category": {
            "type": "object",
            "properties": {
              "index": {"type": ["object", "array"]},
              "label": {"type": "object", "additionalProperties": {"type": "string"}}
            }
          }
        }
      }
    },
    "value": {"type": ["array", "object"]},
    "label": {"type": "string"},
    "updated": {"type": "string"}
  }
}`)
