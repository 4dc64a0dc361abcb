// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Plugboard Contributors

// Package runtime implements the Plugboard orchestrator: it owns the
// construction order of the screen catalog, action dispatcher, event bus,
// and plugin lifecycle manager, drives the runtime state machine, and is
// the only component an embedding application instantiates directly.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/plugboard/plugboard/internal/bus"
	"github.com/plugboard/plugboard/internal/catalog"
	"github.com/plugboard/plugboard/internal/discovery"
	lualoader "github.com/plugboard/plugboard/internal/discovery/lua"
	"github.com/plugboard/plugboard/internal/dispatch"
	"github.com/plugboard/plugboard/internal/lifecycle"
	"github.com/plugboard/plugboard/internal/observability"
	"github.com/plugboard/plugboard/pkg/board"
	"github.com/plugboard/plugboard/pkg/errutil"
)

// Version is reported by introspection metadata.
const Version = "0.4.0"

// Built-in events emitted by the runtime itself. Both carry the facade as
// payload.
const (
	EventInitialized = "runtime:initialized"
	EventShutdown    = "runtime:shutdown"
)

// Runtime composes independently developed plugins into one shared,
// lifecycle-managed context. It is a single-process, single-instance
// mechanism; it guarantees when and in what order plugin code runs, not how
// that code computes its results.
type Runtime struct {
	logger            *slog.Logger
	hostContext       map[string]any
	config            any
	pluginPaths       []string
	pluginPackages    []string
	perfMonitoring    bool
	promReg           prometheus.Registerer
	renderer          board.Renderer
	maxHostValueBytes int

	mu            sync.Mutex
	state         State
	instanceID    string
	preRegistered []board.Plugin

	lifecycle  *lifecycle.Manager
	dispatcher *dispatch.Dispatcher
	bus        *bus.Bus
	catalog    *catalog.Catalog
	metrics    *observability.Metrics
	facade     *runtimeContext
}

// New creates a runtime in the Uninitialized state. No subsystem exists
// until Initialize.
func New(opts ...Option) *Runtime {
	r := &Runtime{
		logger:            slog.Default(),
		maxHostValueBytes: defaultMaxHostValueBytes,
		instanceID:        ulid.Make().String(),
		state:             StateUninitialized,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// State returns the current lifecycle state.
func (r *Runtime) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// InstanceID returns the runtime instance's unique id.
func (r *Runtime) InstanceID() string {
	return r.instanceID
}

// Context returns the facade, or nil before initialization. The facade is
// the sole entry point into plugin-contributed behavior.
func (r *Runtime) Context() board.Context {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.facade == nil {
		return nil
	}
	return r.facade
}

// RegisterPlugin registers a plugin ahead of initialization. Descriptors
// are merged into the lifecycle manager, after any discovered plugins, when
// Initialize runs.
func (r *Runtime) RegisterPlugin(p board.Plugin) error {
	if p.Name == "" {
		return &board.ValidationError{Resource: "plugin", Field: "name", Reason: "is required"}
	}
	if p.Version == "" {
		return &board.ValidationError{Resource: "plugin", Field: "version", Reason: "is required"}
	}
	if p.Setup == nil {
		return &board.ValidationError{Resource: "plugin", Field: "setup", Reason: "is required"}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateUninitialized {
		return fmt.Errorf("cannot register plugin %q: runtime is %s", p.Name, r.state)
	}
	for _, existing := range r.preRegistered {
		if existing.Name == p.Name {
			return &board.DuplicateError{Resource: "plugin", ID: p.Name}
		}
	}

	r.preRegistered = append(r.preRegistered, p)
	return nil
}

// Initialize constructs the four subsystems, builds the facade, and runs
// plugin setup in registration order. Any failure rolls back fully, resets
// the state to Uninitialized, and is returned to the caller: initialization
// is all-or-nothing. Initializing an already-initialized runtime is an
// error.
func (r *Runtime) Initialize(ctx context.Context) error {
	r.mu.Lock()
	if r.state != StateUninitialized {
		state := r.state
		r.mu.Unlock()
		return fmt.Errorf("cannot initialize: runtime is %s", state)
	}
	r.state = StateInitializing
	r.mu.Unlock()

	if err := r.initialize(ctx); err != nil {
		r.reset()
		errutil.LogError(r.logger, "runtime initialization failed", err)
		return err
	}

	r.mu.Lock()
	r.state = StateInitialized
	facade := r.facade
	eventBus := r.bus
	r.mu.Unlock()

	r.logger.Info("runtime initialized",
		"instance", r.instanceID,
		"plugins", r.lifecycle.Len(),
	)
	eventBus.Emit(EventInitialized, facade)
	return nil
}

// initialize performs the fixed construction sequence. Each step depends on
// the previous one.
func (r *Runtime) initialize(ctx context.Context) error {
	validateHostContext(r.logger, r.hostContext, r.maxHostValueBytes)

	var metrics *observability.Metrics
	if r.perfMonitoring {
		reg := r.promReg
		if reg == nil {
			reg = prometheus.NewRegistry()
		}
		metrics = observability.NewMetrics(reg)
	}

	manager := lifecycle.New(
		lifecycle.WithLogger(r.logger),
		lifecycle.WithMetrics(metrics),
	)

	if len(r.pluginPaths) > 0 || len(r.pluginPackages) > 0 {
		loader := discovery.NewLoader(
			discovery.WithPaths(r.pluginPaths...),
			discovery.WithPackages(r.pluginPackages...),
			discovery.WithLogger(r.logger),
			discovery.WithHost(lualoader.NewHost(lualoader.WithLogger(r.logger))),
		)
		discovered, err := loader.Load(ctx)
		if err != nil {
			return fmt.Errorf("plugin discovery failed: %w", err)
		}
		for _, p := range discovered {
			if err := manager.Register(p); err != nil {
				return fmt.Errorf("registering discovered plugin %q: %w", p.Name, err)
			}
		}
	}

	for _, p := range r.preRegistered {
		if err := manager.Register(p); err != nil {
			return fmt.Errorf("registering plugin %q: %w", p.Name, err)
		}
	}

	screens := catalog.New()
	dispatcher := dispatch.New(
		dispatch.WithLogger(r.logger),
		dispatch.WithMetrics(metrics),
	)
	eventBus := bus.New(
		bus.WithLogger(r.logger),
		bus.WithMetrics(metrics),
	)

	facade := newContext(contextDeps{
		catalog:    screens,
		dispatcher: dispatcher,
		bus:        eventBus,
		manager:    manager,
		renderer:   r.renderer,
		host:       r.hostContext,
		config:     r.config,
		logger:     r.logger,
	})

	// Second wiring phase: the facade needs the dispatcher to exist first,
	// and the dispatcher needs the facade to hand to handlers.
	dispatcher.Bind(facade)

	r.mu.Lock()
	r.lifecycle = manager
	r.dispatcher = dispatcher
	r.bus = eventBus
	r.catalog = screens
	r.metrics = metrics
	r.facade = facade
	r.mu.Unlock()

	if err := manager.Setup(ctx, facade); err != nil {
		return err
	}
	return nil
}

// reset tears the runtime back to Uninitialized after a failed
// initialization. Plugin rollback has already happened inside the
// lifecycle manager.
func (r *Runtime) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.dispatcher != nil {
		r.dispatcher.Unbind()
	}
	r.lifecycle = nil
	r.dispatcher = nil
	r.bus = nil
	r.catalog = nil
	r.metrics = nil
	r.facade = nil
	r.state = StateUninitialized
}

// Shutdown emits runtime:shutdown while listeners can still read live
// state, disposes plugins in reverse setup order, closes the render bridge,
// clears every registry, and marks the runtime Shutdown. It never fails,
// and calling it when the runtime is not initialized is a silent no-op.
func (r *Runtime) Shutdown(ctx context.Context) {
	r.mu.Lock()
	if r.state != StateInitialized {
		r.mu.Unlock()
		return
	}
	r.state = StateShuttingDown
	facade := r.facade
	eventBus := r.bus
	r.mu.Unlock()

	eventBus.Emit(EventShutdown, facade)

	r.lifecycle.Dispose(ctx, facade)

	if r.renderer != nil {
		if err := r.renderer.Close(ctx); err != nil {
			r.logger.Error("render bridge close failed", "error", err)
		}
	}

	r.lifecycle.Clear()
	r.catalog.Clear()
	r.bus.Clear()
	r.dispatcher.Clear()
	r.dispatcher.Unbind()

	r.mu.Lock()
	r.state = StateShutdown
	r.mu.Unlock()

	r.logger.Info("runtime shut down", "instance", r.instanceID)
}
