// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Plugboard Contributors

package runtime

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/plugboard/plugboard/pkg/board"
)

// defaultMaxHostValueBytes is the serialized-size threshold above which a
// host context value draws a warning during validation.
const defaultMaxHostValueBytes = 1 << 20 // 1 MiB

// Option configures a Runtime.
type Option func(*Runtime)

// WithLogger sets the runtime's logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Runtime) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithHostContext supplies read-only data and services from the embedding
// application. The map is shallow-copied before any plugin runs and is
// never re-assigned for the runtime's lifetime.
func WithHostContext(hc map[string]any) Option {
	return func(r *Runtime) {
		r.hostContext = hc
	}
}

// WithConfig supplies an opaque configuration value exposed to plugins via
// the facade.
func WithConfig(cfg any) Option {
	return func(r *Runtime) {
		r.config = cfg
	}
}

// WithPluginPaths adds directories that are scanned for plugin
// subdirectories during initialization.
func WithPluginPaths(paths ...string) Option {
	return func(r *Runtime) {
		r.pluginPaths = append(r.pluginPaths, paths...)
	}
}

// WithPluginPackages adds individual plugin directories loaded during
// initialization.
func WithPluginPackages(pkgs ...string) Option {
	return func(r *Runtime) {
		r.pluginPackages = append(r.pluginPackages, pkgs...)
	}
}

// WithPerformanceMonitoring enables Prometheus metrics for actions, events,
// and plugin setup.
func WithPerformanceMonitoring(enabled bool) Option {
	return func(r *Runtime) {
		r.perfMonitoring = enabled
	}
}

// WithPrometheusRegisterer sets the registerer metrics are registered on
// when performance monitoring is enabled. Defaults to a fresh registry, so
// two runtimes never collide on metric registration.
func WithPrometheusRegisterer(reg prometheus.Registerer) Option {
	return func(r *Runtime) {
		r.promReg = reg
	}
}

// WithRenderer installs the optional render bridge. The runtime only
// delegates Render calls to it and closes it at shutdown.
func WithRenderer(rd board.Renderer) Option {
	return func(r *Runtime) {
		r.renderer = rd
	}
}

// WithHostValueLimit overrides the serialized-size warning threshold for
// host context validation.
func WithHostValueLimit(bytes int) Option {
	return func(r *Runtime) {
		if bytes > 0 {
			r.maxHostValueBytes = bytes
		}
	}
}
