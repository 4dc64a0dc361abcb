// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Plugboard Contributors

// Package discovery loads plugin descriptors from external sources: plugin
// directories holding a plugin.yaml manifest and a Lua entry script. It is
// an optional convenience layer on top of the runtime's plugin registry,
// with its own ordering mechanism (a dependency-based topological sort)
// that is independent of the lifecycle manager's registration-order setup.
package discovery

import (
	"fmt"
	"regexp"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"
)

// Manifest represents a plugin.yaml file.
type Manifest struct {
	Name         string       `yaml:"name" json:"name"`
	Version      string       `yaml:"version" json:"version"`
	Entry        string       `yaml:"entry" json:"entry"`
	Dependencies []Dependency `yaml:"dependencies,omitempty" json:"dependencies,omitempty"`
	Events       []string     `yaml:"events,omitempty" json:"events,omitempty"`
}

// Dependency declares another plugin this plugin needs initialized first,
// optionally constrained to a semver range.
type Dependency struct {
	Name       string `yaml:"name" json:"name"`
	Constraint string `yaml:"constraint,omitempty" json:"constraint,omitempty"`
}

// maxNameLength is the maximum allowed length for plugin names.
const maxNameLength = 64

// namePattern validates plugin names: must start with a lowercase letter,
// followed by lowercase letters, digits, or hyphens, and cannot end with a
// hyphen. Single character names are allowed.
var namePattern = regexp.MustCompile(`^[a-z]([a-z0-9-]*[a-z0-9])?$`)

// ParseManifest parses and validates a plugin.yaml file.
func ParseManifest(data []byte) (*Manifest, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("manifest data is empty")
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}

	return &m, nil
}

// Validate checks manifest constraints.
func (m *Manifest) Validate() error {
	if m.Name == "" || !namePattern.MatchString(m.Name) {
		return fmt.Errorf("name %q must start with a-z, contain only a-z, 0-9, hyphens, and not end with a hyphen", m.Name)
	}
	if len(m.Name) > maxNameLength {
		return fmt.Errorf("name must be %d characters or less, got %d", maxNameLength, len(m.Name))
	}

	if m.Version == "" {
		return fmt.Errorf("version is required")
	}
	if _, err := semver.NewVersion(m.Version); err != nil {
		return fmt.Errorf("version %q is not valid semver: %w", m.Version, err)
	}

	if m.Entry == "" {
		return fmt.Errorf("entry is required")
	}

	for i, dep := range m.Dependencies {
		if dep.Name == "" || !namePattern.MatchString(dep.Name) {
			return fmt.Errorf("dependency %d: name %q is not a valid plugin name", i, dep.Name)
		}
		if dep.Name == m.Name {
			return fmt.Errorf("dependency %d: plugin cannot depend on itself", i)
		}
		if dep.Constraint != "" {
			if _, err := semver.NewConstraint(dep.Constraint); err != nil {
				return fmt.Errorf("dependency %d (%s): constraint %q is not valid: %w", i, dep.Name, dep.Constraint, err)
			}
		}
	}

	for i, ev := range m.Events {
		if ev == "" {
			return fmt.Errorf("event %d: name cannot be empty", i)
		}
	}

	return nil
}

// DependencyNames returns the names of all declared dependencies.
func (m *Manifest) DependencyNames() []string {
	if len(m.Dependencies) == 0 {
		return nil
	}
	names := make([]string, len(m.Dependencies))
	for i, dep := range m.Dependencies {
		names[i] = dep.Name
	}
	return names
}
