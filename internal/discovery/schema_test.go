// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Plugboard Contributors

package discovery

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSchema(t *testing.T) {
	data, err := GenerateSchema()
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(data, &schema))

	assert.Equal(t, SchemaID(), schema["$id"])
	assert.Equal(t, "Plugboard Plugin Manifest", schema["title"])

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	for _, field := range []string{"name", "version", "entry", "dependencies", "events"} {
		assert.Contains(t, props, field)
	}
}

func TestValidateSchema(t *testing.T) {
	defer ResetSchemaCache()

	valid := []byte(`
name: echo
version: 1.0.0
entry: main.lua
`)
	assert.NoError(t, ValidateSchema(valid))
}

func TestValidateSchema_MissingRequiredField(t *testing.T) {
	defer ResetSchemaCache()

	missing := []byte(`
name: echo
version: 1.0.0
`)
	err := ValidateSchema(missing)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entry")
}

func TestValidateSchema_WrongType(t *testing.T) {
	defer ResetSchemaCache()

	wrongType := []byte(`
name: echo
version: 1.0.0
entry: main.lua
events: not-a-list
`)
	assert.Error(t, ValidateSchema(wrongType))
}

func TestValidateSchema_Empty(t *testing.T) {
	assert.ErrorContains(t, ValidateSchema(nil), "empty")
}

func TestValidateSchema_InvalidYAML(t *testing.T) {
	assert.ErrorContains(t, ValidateSchema([]byte("name: [oops")), "invalid YAML")
}

func TestFormatSchemaError(t *testing.T) {
	assert.Empty(t, FormatSchemaError(nil))

	defer ResetSchemaCache()
	err := ValidateSchema([]byte("name: echo\n"))
	require.Error(t, err)
	assert.NotContains(t, FormatSchemaError(err), "schema validation failed: ")
}
