package diagnostic

import (
	"bytes"
	"encoding/json"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/covenant-lang/covenant/internal/cverr"
)

// diagnosticSchemaJSON is the embedded JSON Schema that
// Bag.MarshalSchema validates its own output against before returning it,
// giving external tools (the out-of-scope CLI/HTTP shim) a stable contract
// for the diagnostic wire format (§6.4, DOMAIN STACK).
const diagnosticSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "CovenantDiagnostics",
  "type": "array",
  "items": {
    "type": "object",
    "required": ["severity", "code", "message", "contract", "file", "line", "column"],
    "properties": {
      "severity": {"type": "string", "enum": ["info", "warning", "error"]},
      "code": {"type": "string", "pattern": "^[EWFVIST][0-9]{3}$"},
      "message": {"type": "string"},
      "contract": {"type": "string"},
      "file": {"type": "string"},
      "line": {"type": "integer", "minimum": 0},
      "column": {"type": "integer", "minimum": 0}
    },
    "additionalProperties": false
  }
}`

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		if err := c.AddResource("covenant-diagnostics.json", bytes.NewReader([]byte(diagnosticSchemaJSON))); err != nil {
			schemaErr = err
			return
		}
		schema, schemaErr = c.Compile("covenant-diagnostics.json")
	})
	return schema, schemaErr
}

// wireDiagnostic is the JSON-exported shape of a Diagnostic.
type wireDiagnostic struct {
	Severity string `json:"severity"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Contract string `json:"contract"`
	File     string `json:"file"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
}

func toWire(d Diagnostic) wireDiagnostic {
	return wireDiagnostic{
		Severity: d.Severity.String(),
		Code:     d.Code,
		Message:  d.Message,
		Contract: d.ContractName,
		File:     d.Pos.File,
		Line:     d.Pos.Line,
		Column:   d.Pos.Column,
	}
}

// MarshalSchema encodes the bag's diagnostics as JSON and validates the
// result against the embedded schema before returning it. A schema
// validation failure indicates a bug in toWire, not in caller data, so it
// is reported as an invariant-style decode error.
func (b *Bag) MarshalSchema() ([]byte, error) {
	wire := make([]wireDiagnostic, 0, len(b.items))
	for _, d := range b.items {
		wire = append(wire, toWire(d))
	}
	buf, err := json.Marshal(wire)
	if err != nil {
		return nil, cverr.Wrap(cverr.KindDecode, "marshaling diagnostics", err)
	}

	s, err := compiledSchema()
	if err != nil {
		return nil, cverr.Wrap(cverr.KindDecode, "compiling diagnostic schema", err)
	}
	var generic interface{}
	if err := json.Unmarshal(buf, &generic); err != nil {
		return nil, cverr.Wrap(cverr.KindDecode, "decoding diagnostics for schema validation", err)
	}
	if err := s.Validate(generic); err != nil {
		return nil, cverr.Wrap(cverr.KindDecode, "diagnostic export failed schema validation", err)
	}
	return buf, nil
}
