// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Plugboard Contributors

package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Masterminds/semver/v3"
	"github.com/samber/oops"

	"github.com/plugboard/plugboard/pkg/board"
)

// ManifestFileName is the manifest file looked for in every plugin
// directory.
const ManifestFileName = "plugin.yaml"

// DiscoveredPlugin contains a manifest and its directory.
type DiscoveredPlugin struct {
	Manifest *Manifest
	Dir      string
}

// Host turns a discovered plugin into a runnable descriptor. The Lua host
// is the default implementation.
type Host interface {
	Build(dp *DiscoveredPlugin) (board.Plugin, error)
}

// Loader discovers plugins on disk and prepares them for registration.
type Loader struct {
	paths    []string
	packages []string
	logger   *slog.Logger
	host     Host
}

// LoaderOption configures the Loader.
type LoaderOption func(*Loader)

// WithPaths adds directories scanned for plugin subdirectories.
func WithPaths(paths ...string) LoaderOption {
	return func(l *Loader) {
		l.paths = append(l.paths, paths...)
	}
}

// WithPackages adds individual plugin directories.
func WithPackages(pkgs ...string) LoaderOption {
	return func(l *Loader) {
		l.packages = append(l.packages, pkgs...)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) {
		l.logger = logger
	}
}

// WithHost sets the host that builds runnable descriptors. Load fails
// without one; Discover works regardless.
func WithHost(h Host) LoaderOption {
	return func(l *Loader) {
		l.host = h
	}
}

// NewLoader creates a plugin loader.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Discover finds all valid plugins under the configured paths and
// packages. Directories without a manifest and manifests that fail
// validation are logged and skipped.
func (l *Loader) Discover(_ context.Context) ([]*DiscoveredPlugin, error) {
	var dirs []string

	for _, path := range l.paths {
		entries, err := os.ReadDir(path)
		if err != nil {
			if os.IsNotExist(err) {
				l.logger.Debug("plugin path does not exist, skipping", "path", path)
				continue
			}
			return nil, fmt.Errorf("failed to read plugin path %s: %w", path, err)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				dirs = append(dirs, filepath.Join(path, entry.Name()))
			}
		}
	}
	dirs = append(dirs, l.packages...)

	seen := make(map[string]*DiscoveredPlugin)
	var plugins []*DiscoveredPlugin
	for _, dir := range dirs {
		manifestPath := filepath.Join(dir, ManifestFileName)

		data, err := os.ReadFile(filepath.Clean(manifestPath))
		if err != nil {
			l.logger.Warn("skipping plugin without manifest",
				"dir", dir,
				"error", err)
			continue
		}

		manifest, err := ParseManifest(data)
		if err != nil {
			l.logger.Warn("skipping plugin with invalid manifest",
				"dir", dir,
				"error", err)
			continue
		}

		if prev, ok := seen[manifest.Name]; ok {
			l.logger.Warn("skipping plugin with duplicate name",
				"plugin", manifest.Name,
				"dir", dir,
				"first_seen", prev.Dir)
			continue
		}

		dp := &DiscoveredPlugin{Manifest: manifest, Dir: dir}
		seen[manifest.Name] = dp
		plugins = append(plugins, dp)
	}

	return plugins, nil
}

// Load discovers plugins, verifies declared version constraints, orders
// them so dependencies come first, and builds runnable descriptors. The
// returned slice is ready to hand to the lifecycle manager in order.
func (l *Loader) Load(ctx context.Context) ([]board.Plugin, error) {
	if l.host == nil {
		return nil, fmt.Errorf("loader has no plugin host configured")
	}

	discovered, err := l.Discover(ctx)
	if err != nil {
		return nil, err
	}

	if err := l.checkConstraints(discovered); err != nil {
		return nil, err
	}

	sorted, err := sortByDependencies(discovered)
	if err != nil {
		return nil, err
	}

	plugins := make([]board.Plugin, 0, len(sorted))
	for _, dp := range sorted {
		p, err := l.host.Build(dp)
		if err != nil {
			return nil, oops.In("discovery").
				With("plugin", dp.Manifest.Name).
				With("dir", dp.Dir).
				Wrapf(err, "failed to build plugin %q", dp.Manifest.Name)
		}
		plugins = append(plugins, p)
		l.logger.Info("discovered plugin",
			"plugin", dp.Manifest.Name,
			"version", dp.Manifest.Version,
			"dir", dp.Dir)
	}

	return plugins, nil
}

// checkConstraints verifies semver constraints between discovered plugins.
// Constraints on plugins outside the discovered set are left to the
// lifecycle manager's setup-time dependency check.
func (l *Loader) checkConstraints(plugins []*DiscoveredPlugin) error {
	byName := make(map[string]*DiscoveredPlugin, len(plugins))
	for _, p := range plugins {
		byName[p.Manifest.Name] = p
	}

	for _, p := range plugins {
		for _, dep := range p.Manifest.Dependencies {
			if dep.Constraint == "" {
				continue
			}
			target, ok := byName[dep.Name]
			if !ok {
				continue
			}

			// Both already validated by Manifest.Validate.
			c, err := semver.NewConstraint(dep.Constraint)
			if err != nil {
				return fmt.Errorf("plugin %q: invalid constraint %q on %q: %w", p.Manifest.Name, dep.Constraint, dep.Name, err)
			}
			v, err := semver.NewVersion(target.Manifest.Version)
			if err != nil {
				return fmt.Errorf("plugin %q: invalid version %q: %w", target.Manifest.Name, target.Manifest.Version, err)
			}

			if !c.Check(v) {
				return oops.In("discovery").
					With("plugin", p.Manifest.Name).
					With("dependency", dep.Name).
					With("constraint", dep.Constraint).
					With("version", target.Manifest.Version).
					Errorf("plugin %q requires %q %s, found %s",
						p.Manifest.Name, dep.Name, dep.Constraint, target.Manifest.Version)
			}
		}
	}

	return nil
}
