// Package schema validates parsed records against per-pipeline JSON Schemas,
// so malformed tool output is rejected before it reaches persistence or the
// grouped summaries.
package schema

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ErrValidation indicates a record did not conform to its pipeline schema.
var ErrValidation = errors.New("record failed schema validation")

// maxReportedViolations bounds how many violations are embedded in the error.
const maxReportedViolations = 5

// ReceiptSchema describes the record the receipt pipeline expects back from
// the structuring tool. Deliberately permissive: nothing is required (a
// missing discriminant only means the record goes unsummarized), but known
// properties are type-checked.
const ReceiptSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "merchant": {"type": "string"},
    "date": {"type": "string"},
    "currency": {"type": "string"},
    "total": {"type": ["number", "string"]},
    "category": {"type": "string"},
    "fields": {"type": "object"},
    "items": {"type": "array"}
  }
}`

// ContractSchema describes the record the contract-review pipeline expects.
const ContractSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "contract_type": {"type": "string"},
    "parties": {"type": "array"},
    "effective_date": {"type": "string"},
    "termination_date": {"type": "string"},
    "risks": {"type": "array"},
    "fields": {"type": "object"}
  }
}`

// Validator checks documents against a compiled JSON Schema.
type Validator struct {
	schema *gojsonschema.Schema
}

// NewValidator compiles schemaJSON. An empty schema string yields a nil
// Validator, which validates everything.
func NewValidator(schemaJSON string) (*Validator, error) {
	if strings.TrimSpace(schemaJSON) == "" {
		return nil, nil
	}
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("invalid record schema: %w", err)
	}
	return &Validator{schema: compiled}, nil
}

// Validate checks doc against the schema. A nil Validator accepts anything.
func (v *Validator) Validate(doc interface{}) error {
	if v == nil || v.schema == nil {
		return nil
	}
	result, err := v.schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if result.Valid() {
		return nil
	}
	violations := make([]string, 0, maxReportedViolations)
	for i, desc := range result.Errors() {
		if i >= maxReportedViolations {
			violations = append(violations, fmt.Sprintf("and %d more", len(result.Errors())-i))
			break
		}
		violations = append(violations, desc.String())
	}
	return fmt.Errorf("%w: %s", ErrValidation, strings.Join(violations, "; "))
}
