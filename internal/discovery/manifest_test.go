// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Plugboard Contributors

package discovery

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseManifest(t *testing.T) {
	data := []byte(`
name: metrics-panel
version: 1.2.3
entry: main.lua
dependencies:
  - name: core
    constraint: ">=1.0.0"
  - name: storage
events:
  - "data:updated"
`)

	m, err := ParseManifest(data)
	require.NoError(t, err)

	assert.Equal(t, "metrics-panel", m.Name)
	assert.Equal(t, "1.2.3", m.Version)
	assert.Equal(t, "main.lua", m.Entry)
	require.Len(t, m.Dependencies, 2)
	assert.Equal(t, "core", m.Dependencies[0].Name)
	assert.Equal(t, ">=1.0.0", m.Dependencies[0].Constraint)
	assert.Equal(t, []string{"core", "storage"}, m.DependencyNames())
	assert.Equal(t, []string{"data:updated"}, m.Events)
}

func TestParseManifest_Empty(t *testing.T) {
	_, err := ParseManifest(nil)
	assert.ErrorContains(t, err, "empty")
}

func TestParseManifest_InvalidYAML(t *testing.T) {
	_, err := ParseManifest([]byte("name: [unclosed"))
	assert.ErrorContains(t, err, "invalid YAML")
}

func TestManifest_Validate(t *testing.T) {
	valid := func() *Manifest {
		return &Manifest{Name: "echo", Version: "1.0.0", Entry: "main.lua"}
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("single character name", func(t *testing.T) {
		m := valid()
		m.Name = "a"
		assert.NoError(t, m.Validate())
	})

	t.Run("bad names", func(t *testing.T) {
		for _, name := range []string{"", "Echo", "9lives", "trailing-", "has_underscore", "has space"} {
			m := valid()
			m.Name = name
			assert.Error(t, m.Validate(), "name %q should be rejected", name)
		}
	})

	t.Run("name too long", func(t *testing.T) {
		m := valid()
		m.Name = "a" + strings.Repeat("b", maxNameLength)
		assert.ErrorContains(t, m.Validate(), "characters or less")
	})

	t.Run("missing version", func(t *testing.T) {
		m := valid()
		m.Version = ""
		assert.ErrorContains(t, m.Validate(), "version is required")
	})

	t.Run("non-semver version", func(t *testing.T) {
		m := valid()
		m.Version = "one-point-oh"
		assert.ErrorContains(t, m.Validate(), "not valid semver")
	})

	t.Run("missing entry", func(t *testing.T) {
		m := valid()
		m.Entry = ""
		assert.ErrorContains(t, m.Validate(), "entry is required")
	})

	t.Run("self dependency", func(t *testing.T) {
		m := valid()
		m.Dependencies = []Dependency{{Name: "echo"}}
		assert.ErrorContains(t, m.Validate(), "cannot depend on itself")
	})

	t.Run("invalid constraint", func(t *testing.T) {
		m := valid()
		m.Dependencies = []Dependency{{Name: "core", Constraint: "not-a-range"}}
		assert.ErrorContains(t, m.Validate(), "constraint")
	})

	t.Run("empty event name", func(t *testing.T) {
		m := valid()
		m.Events = []string{""}
		assert.ErrorContains(t, m.Validate(), "cannot be empty")
	})
}
