package sdmx

import "statbridge/internal/cube"

var messageSchema = cube.MustCompileSchema(cube.FormatSDMX, `{
  "type": "object",
  "required": ["structure", "dataSets"],
  "properties": {
    "structure": {
      "type": "object",
      "required": ["dimensions"],
      "properties": {
        "dimensions": {
          "type": "object",
          "properties": {
            "series":      {"$ref": "#/definitions/components"},
            "observation": {"$ref": "#/definitions/components"}
          }
        },
        "attributes": {
          "type": "object",
          "properties": {
            "observation": {"$ref": "#/definitions/components"}
          }
        }
      }
    },
    "dataSets": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "observations": {"type": "object"},
          "series": {
            "type": "object",
            "additionalProperties": {
              "type": "object",
              "properties": {"observations": {"type": "object"}}
            }
          }
        }
      }
    }
  },
  "definitions": {
    "components": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id"],
        "properties": {
          "id": {"type": "string"},
          "values": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["id"],
              "properties": {"id": {"type": "string"}}
            }
          }
        }
      }
    }
  }
}`)
