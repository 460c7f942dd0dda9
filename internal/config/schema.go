package config

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// ToJSONSchema reflects t into an inline JSON schema.
func ToJSONSchema[T any](t T) (string, error) {
	r := new(jsonschema.Reflector)
	r.DoNotReference = true
	schema := r.Reflect(t)

	jsonSchemaBytes, err := json.Marshal(schema)
	if err != nil {
		return "", err
	}

	return string(jsonSchemaBytes), nil
}

// Schema returns the JSON schema of the configuration file.
func Schema() (string, error) {
	return ToJSONSchema(&Config{}) //nolint:exhaustruct // Empty config for schema generation
}
