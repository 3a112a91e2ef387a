package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/faughnn/factreel/internal/core"
)

// Validate checks artifact bytes against the named schema, the same
// gojsonschema.NewGoLoader + gojsonschema.Validate pattern the sibling
// JSONSchemaGrader uses, returning a *core.ValidationError on any
// structural violation. On success it returns the parsed JSON document for
// the invariant pass to run against.
func Validate(data []byte, name Name) (map[string]interface{}, error) {
	def, ok := definitions[name]
	if !ok {
		return nil, &core.ValidationError{Schema: string(name), Detail: "unknown schema name"}
	}

	schemaLoader := gojsonschema.NewGoLoader(def)
	documentLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return nil, &core.ValidationError{Schema: string(name), Detail: "schema validation error: " + err.Error()}
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, &core.ValidationError{Schema: string(name), Detail: strings.Join(msgs, "; ")}
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, &core.ValidationError{Schema: string(name), Detail: "document did not parse as JSON after schema validation: " + err.Error()}
	}
	return parsed, nil
}

// ValidateInto both schema-validates and unmarshals data into out (a
// pointer to one of the internal/model artifact types), returning a
// *core.ValidationError wrapping either failure.
func ValidateInto(data []byte, name Name, out interface{}) error {
	if _, err := Validate(data, name); err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &core.ValidationError{Schema: string(name), Detail: fmt.Sprintf("failed to decode into %T: %v", out, err)}
	}
	return nil
}
