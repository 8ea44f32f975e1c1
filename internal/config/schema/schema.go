// Package schema holds the JSON schemas embedded in the binary.
package schema

import _ "embed"

// ConfigSchema validates rpm-fetch.yml after conversion to JSON.
//
//go:embed rpm-fetch.schema.json
var ConfigSchema []byte

// ConfigSchemaName is the resource name the config schema is compiled under.
const ConfigSchemaName = "rpm-fetch.schema.json"
