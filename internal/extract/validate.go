// internal/extract/validate.go
package extract

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// FoodSchema is the shape requested from the model, with the ranges the prompt asks for.
const FoodSchema = `{
  "type": "object",
  "properties": {
    "name": {
      "type": "object",
      "properties": {
        "vietnamese": {"type": "string"},
        "english": {"type": "string"},
        "pronunciation": {"type": "string"}
      }
    },
    "description": {"type": "string"},
    "ingredients": {"type": "array", "items": {"type": "string"}},
    "calories": {
      "type": "object",
      "properties": {
        "estimate": {"type": "number", "minimum": 0},
        "range": {"type": "string"}
      }
    },
    "allergens": {"type": "array", "items": {"type": "string"}},
    "spiceLevel": {"enum": ["mild", "medium", "hot"]},
    "culturalNote": {"type": "string"},
    "confidence": {"type": "number", "minimum": 0, "maximum": 1}
  }
}`

type Validator struct {
	schema *gojsonschema.Schema
}

func NewValidator() (*Validator, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(FoodSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to compile food schema: %w", err)
	}
	return &Validator{schema: schema}, nil
}

func (v *Validator) Validate(obj map[string]interface{}) error {
	result, err := v.schema.Validate(gojsonschema.NewGoLoader(obj))
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("schema violation: %s", strings.Join(msgs, "; "))
}
