package campaign

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// customContextSchema constrains the optional custom_context JSON a caller
// may attach to a job submission. Every property is optional; unknown
// properties are rejected so typos surface at submission time.
const customContextSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"additionalProperties": false,
	"properties": {
		"tone_of_voice": {"type": "string", "minLength": 1},
		"language": {"type": "string", "minLength": 1},
		"pain_points": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["title"],
				"additionalProperties": false,
				"properties": {
					"title": {"type": "string", "minLength": 1},
					"description": {"type": "string"}
				}
			}
		},
		"proof_points": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["title"],
				"additionalProperties": false,
				"properties": {
					"title": {"type": "string", "minLength": 1},
					"description": {"type": "string"}
				}
			}
		},
		"coaching_points": {"type": "array", "items": {"type": "string", "minLength": 1}},
		"sign_offs": {"type": "array", "items": {"type": "string", "minLength": 1}},
		"calls_to_action": {"type": "array", "items": {"type": "string", "minLength": 1}}
	}
}`

// ContextError represents an invalid custom context document. It carries the
// per-field failures so the API can report them all at once.
type ContextError struct {
	Message string
	Fields  []string
	Cause   error
}

func (e *ContextError) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("invalid custom context: %s: %s", e.Message, strings.Join(e.Fields, "; "))
	}
	if e.Cause != nil {
		return fmt.Sprintf("invalid custom context: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("invalid custom context: %s", e.Message)
}

func (e *ContextError) Unwrap() error {
	return e.Cause
}

// ValidateCustomContext checks a raw custom-context document against the
// schema. A nil return means the document is safe to decode.
func ValidateCustomContext(raw []byte) error {
	schemaLoader := gojsonschema.NewStringLoader(customContextSchema)
	documentLoader := gojsonschema.NewBytesLoader(raw)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return &ContextError{Message: "document is not valid JSON", Cause: err}
	}

	if result.Valid() {
		return nil
	}

	ctxErr := &ContextError{Message: "schema validation failed"}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		ctxErr.Fields = append(ctxErr.Fields, fmt.Sprintf("%s: %s", field, desc.Description()))
	}
	return ctxErr
}
