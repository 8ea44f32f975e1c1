// Package validate checks configuration documents against JSON schemas.
package validate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"sigs.k8s.io/yaml"

	"github.com/open-edge-platform/rpm-fetch/internal/config/schema"
)

// ValidateAgainstSchema compiles schemaData under name and validates the
// JSON document data against it. ref selects a sub-schema, e.g.
// "#/definitions/duration"; empty means the root.
func ValidateAgainstSchema(name string, schemaData, data []byte, ref string) error {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, bytes.NewReader(schemaData)); err != nil {
		return fmt.Errorf("loading schema %s: %w", name, err)
	}
	sch, err := compiler.Compile(name + ref)
	if err != nil {
		return fmt.Errorf("compiling schema %s: %w", name, err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errors.New("invalid JSON: trailing data after document")
	}
	if err := sch.Validate(doc); err != nil {
		return fmt.Errorf("schema validation against %s failed: %w", name, err)
	}
	return nil
}

// ValidateConfigJSON validates a JSON config document.
func ValidateConfigJSON(data []byte) error {
	return ValidateAgainstSchema(schema.ConfigSchemaName, schema.ConfigSchema, data, "")
}

// ValidateConfigYAML converts a YAML config document to JSON and validates it.
func ValidateConfigYAML(data []byte) error {
	jsonData, err := yaml.YAMLToJSON(data)
	if err != nil {
		return fmt.Errorf("converting YAML to JSON: %w", err)
	}
	return ValidateConfigJSON(jsonData)
}
