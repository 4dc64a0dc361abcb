// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Plugboard Contributors

// Package lifecycle implements the plugin lifecycle manager: a registry of
// plugin descriptors plus dependency-checked setup with rollback and
// best-effort dispose.
package lifecycle

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/plugboard/plugboard/internal/observability"
	"github.com/plugboard/plugboard/pkg/board"
	"github.com/plugboard/plugboard/pkg/errutil"
)

// Manager stores plugin descriptors and drives their setup/dispose.
//
// Setup walks plugins strictly in registration order. Declared dependencies
// are a precondition check against that order, not a reordering signal; a
// plugin whose dependency has not yet initialized fails setup even if the
// dependency is registered later. The discovery layer offers a topological
// sort for callers who want dependency-driven registration order.
type Manager struct {
	logger  *slog.Logger
	metrics *observability.Metrics

	mu          sync.RWMutex
	plugins     map[string]board.Plugin
	order       []string
	initialized []string
}

// Option configures the Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

// WithMetrics sets the metrics recorder. A nil recorder records nothing.
func WithMetrics(mx *observability.Metrics) Option {
	return func(m *Manager) {
		m.metrics = mx
	}
}

// New creates a lifecycle manager.
func New(opts ...Option) *Manager {
	m := &Manager{
		logger:  slog.Default(),
		plugins: make(map[string]board.Plugin),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Register adds a plugin descriptor. The descriptor is owned by the manager
// after registration and must not be modified by the caller.
func (m *Manager) Register(p board.Plugin) error {
	if p.Name == "" {
		return &board.ValidationError{Resource: "plugin", Field: "name", Reason: "is required"}
	}
	if p.Version == "" {
		return &board.ValidationError{Resource: "plugin", Field: "version", Reason: "is required"}
	}
	if p.Setup == nil {
		return &board.ValidationError{Resource: "plugin", Field: "setup", Reason: "is required"}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.plugins[p.Name]; ok {
		return &board.DuplicateError{Resource: "plugin", ID: p.Name}
	}

	// Defensive copy: the descriptor is immutable once registered.
	p.Dependencies = slices.Clone(p.Dependencies)

	m.plugins[p.Name] = p
	m.order = append(m.order, p.Name)
	return nil
}

// Get returns the plugin with the given name.
func (m *Manager) Get(name string) (board.Plugin, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.plugins[name]
	return p, ok
}

// Names returns all plugin names in registration order.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// Len returns the number of registered plugins.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.plugins)
}

// Initialized returns the names of successfully initialized plugins in
// setup order. During Setup this list is always a strict prefix of the
// registration order, which is what makes rollback deterministic.
func (m *Manager) Initialized() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.initialized)
}

// Setup initializes every registered plugin in registration order. If any
// setup fails, every already-initialized plugin is disposed in reverse
// order, the initialized list is cleared, and the failure is returned
// wrapped with the failing plugin's name. Setup is all-or-nothing.
func (m *Manager) Setup(ctx context.Context, rc board.Context) error {
	m.mu.RLock()
	order := slices.Clone(m.order)
	m.mu.RUnlock()

	for _, name := range order {
		p, _ := m.Get(name)

		if err := m.checkDependencies(p); err != nil {
			m.metrics.RecordPluginSetupFailure()
			m.rollback(ctx, rc)
			return err
		}

		start := time.Now()
		if err := m.runSetup(ctx, p, rc); err != nil {
			m.metrics.RecordPluginSetupFailure()
			errutil.LogError(m.logger.With("plugin", name),
				"plugin setup failed", err)
			m.rollback(ctx, rc)
			return oops.In("lifecycle").
				With("plugin", name).
				Wrapf(err, "plugin %q setup failed", name)
		}
		m.metrics.RecordPluginSetup(name, time.Since(start))

		m.mu.Lock()
		m.initialized = append(m.initialized, name)
		m.mu.Unlock()

		m.logger.Debug("plugin initialized",
			"plugin", name,
			"version", p.Version)
	}

	return nil
}

// checkDependencies verifies every declared dependency is registered and
// already initialized.
func (m *Manager) checkDependencies(p board.Plugin) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, dep := range p.Dependencies {
		if _, ok := m.plugins[dep]; !ok {
			return oops.In("lifecycle").
				With("plugin", p.Name).
				With("dependency", dep).
				Errorf("plugin %q depends on %q, which is not registered", p.Name, dep)
		}
		if !slices.Contains(m.initialized, dep) {
			return oops.In("lifecycle").
				With("plugin", p.Name).
				With("dependency", dep).
				Errorf("plugin %q depends on %q, which is registered but not yet initialized", p.Name, dep)
		}
	}
	return nil
}

// runSetup invokes a plugin's setup with a panic boundary.
func (m *Manager) runSetup(ctx context.Context, p board.Plugin, rc board.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = oops.In("lifecycle").With("plugin", p.Name).Errorf("setup panicked: %v", r)
		}
	}()
	return p.Setup(ctx, rc)
}

// rollback disposes every initialized plugin in reverse order, swallowing
// and logging dispose failures so the rollback always completes, then
// clears the initialized list.
func (m *Manager) rollback(ctx context.Context, rc board.Context) {
	m.mu.Lock()
	initialized := m.initialized
	m.initialized = nil
	m.mu.Unlock()

	for i := len(initialized) - 1; i >= 0; i-- {
		name := initialized[i]
		p, ok := m.Get(name)
		if !ok || p.Dispose == nil {
			continue
		}
		if err := m.runDispose(ctx, p, rc); err != nil {
			errutil.LogError(m.logger.With("plugin", name),
				"plugin dispose failed during rollback", err)
		}
	}
}

// Dispose tears down every initialized plugin in reverse setup order,
// logging but not propagating individual failures, then clears the
// initialized list. Cleanup is best-effort and total.
func (m *Manager) Dispose(ctx context.Context, rc board.Context) {
	m.mu.Lock()
	initialized := m.initialized
	m.initialized = nil
	m.mu.Unlock()

	for i := len(initialized) - 1; i >= 0; i-- {
		name := initialized[i]
		p, ok := m.Get(name)
		if !ok || p.Dispose == nil {
			continue
		}
		if err := m.runDispose(ctx, p, rc); err != nil {
			errutil.LogError(m.logger.With("plugin", name),
				"plugin dispose failed", err)
			continue
		}
		m.logger.Debug("plugin disposed", "plugin", name)
	}
}

// runDispose invokes a plugin's dispose with a panic boundary.
func (m *Manager) runDispose(ctx context.Context, p board.Plugin, rc board.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = oops.In("lifecycle").With("plugin", p.Name).Errorf("dispose panicked: %v", r)
		}
	}()
	return p.Dispose(ctx, rc)
}

// Clear removes all plugins and the initialized list. Called by the
// runtime during shutdown.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plugins = make(map[string]board.Plugin)
	m.order = nil
	m.initialized = nil
}
