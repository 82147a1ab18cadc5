package doctree

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const documentSchema = `{
  "type": "object",
  "required": ["roots"],
  "properties": {
    "roots": {"type": "array", "items": {"$ref": "#/$defs/section"}}
  },
  "$defs": {
    "section": {
      "type": "object",
      "required": ["title"],
      "properties": {
        "title": {"type": "string"},
        "content": {"type": ["array", "null"], "items": {"$ref": "#/$defs/item"}},
        "subsections": {"type": ["array", "null"], "items": {"$ref": "#/$defs/section"}}
      }
    },
    "item": {
      "type": "object",
      "required": ["type"],
      "properties": {
        "type": {"enum": ["text", "table", "unparsed"]},
        "text": {"type": "string"},
        "reason": {"type": "string"},
        "formatting": {"$ref": "#/$defs/formatting"},
        "table": {"$ref": "#/$defs/table"}
      },
      "allOf": [
        {"if": {"properties": {"type": {"const": "text"}}}, "then": {"required": ["text"]}},
        {"if": {"properties": {"type": {"const": "table"}}}, "then": {"required": ["table"]}},
        {"if": {"properties": {"type": {"const": "unparsed"}}}, "then": {"required": ["reason"]}}
      ]
    },
    "formatting": {
      "type": "object",
      "properties": {
        "bold": {"type": "boolean"},
        "italic": {"type": "boolean"},
        "underline": {"type": "boolean"},
        "list_type": {"enum": ["", "bullet", "numbered"]},
        "alignment": {"enum": ["", "left", "center"]}
      }
    },
    "table": {
      "type": "object",
      "required": ["rows"],
      "properties": {
        "rows": {"type": "array", "items": {"type": "array", "items": {"type": "string"}}},
        "headers": {"type": "array", "items": {"type": "string"}},
        "caption": {"type": "string"}
      }
    }
  }
}`

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("document.json", strings.NewReader(documentSchema)); err != nil {
			schemaErr = fmt.Errorf("add schema: %w", err)
			return
		}
		schema, schemaErr = compiler.Compile("document.json")
		if schemaErr != nil {
			schemaErr = fmt.Errorf("compile schema: %w", schemaErr)
		}
	})
	return schema, schemaErr
}

// ValidateJSON checks serialized document data against the document schema.
func ValidateJSON(data []byte) error {
	s, err := compiledSchema()
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := s.Validate(v); err != nil {
		return fmt.Errorf("document does not match schema: %w", err)
	}
	return nil
}

// Decode validates and unmarshals a serialized document.
func Decode(data []byte) (Document, error) {
	if err := ValidateJSON(data); err != nil {
		return Document{}, err
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}
