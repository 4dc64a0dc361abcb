// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Plugboard Contributors

package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/plugboard/plugboard/internal/bus"
	"github.com/plugboard/plugboard/internal/catalog"
	"github.com/plugboard/plugboard/internal/dispatch"
	"github.com/plugboard/plugboard/internal/lifecycle"
	"github.com/plugboard/plugboard/pkg/board"
)

// Compile-time interface checks.
var (
	_ board.Context        = (*runtimeContext)(nil)
	_ board.ScreenRegistry = (*screenRegistry)(nil)
	_ board.ActionRegistry = (*actionRegistry)(nil)
	_ board.EventRegistry  = (*eventRegistry)(nil)
	_ board.PluginRegistry = (*pluginRegistry)(nil)
	_ board.HostValues     = (*hostValues)(nil)
)

// contextDeps are the wired subsystems a facade delegates to.
type contextDeps struct {
	catalog    *catalog.Catalog
	dispatcher *dispatch.Dispatcher
	bus        *bus.Bus
	manager    *lifecycle.Manager
	renderer   board.Renderer
	host       map[string]any
	config     any
	logger     *slog.Logger
}

// runtimeContext is the facade handed to every plugin and handler. Its
// sub-objects delegate to the underlying registries so plugins never hold
// direct registry references.
type runtimeContext struct {
	screens *screenRegistry
	actions *actionRegistry
	events  *eventRegistry
	plugins *pluginRegistry
	intr    *introspector
	host    *hostValues
	config  any
	logger  *slog.Logger
}

// newContext builds the facade. The host context map is shallow-copied
// here, exactly once; nothing mutates it afterwards.
func newContext(deps contextDeps) *runtimeContext {
	return &runtimeContext{
		screens: &screenRegistry{catalog: deps.catalog, renderer: deps.renderer},
		actions: &actionRegistry{dispatcher: deps.dispatcher},
		events:  &eventRegistry{bus: deps.bus},
		plugins: &pluginRegistry{manager: deps.manager},
		intr: &introspector{
			catalog:    deps.catalog,
			dispatcher: deps.dispatcher,
			manager:    deps.manager,
		},
		host:   newHostValues(deps.host),
		config: deps.config,
		logger: deps.logger,
	}
}

func (c *runtimeContext) Screens() board.ScreenRegistry   { return c.screens }
func (c *runtimeContext) Actions() board.ActionRegistry   { return c.actions }
func (c *runtimeContext) Events() board.EventRegistry     { return c.events }
func (c *runtimeContext) Plugins() board.PluginRegistry   { return c.plugins }
func (c *runtimeContext) Introspect() board.Introspector  { return c.intr }
func (c *runtimeContext) Host() board.HostValues          { return c.host }
func (c *runtimeContext) Config() any                     { return c.config }
func (c *runtimeContext) Logger() *slog.Logger            { return c.logger }

// screenRegistry delegates to the catalog and the optional render bridge.
type screenRegistry struct {
	catalog  *catalog.Catalog
	renderer board.Renderer
}

func (s *screenRegistry) Register(screen board.Screen) error {
	return s.catalog.Register(screen)
}

func (s *screenRegistry) Get(id string) (board.Screen, bool) {
	return s.catalog.Get(id)
}

func (s *screenRegistry) List() []board.Screen {
	return s.catalog.List()
}

func (s *screenRegistry) Render(ctx context.Context, id string) error {
	screen, ok := s.catalog.Get(id)
	if !ok {
		return &board.NotFoundError{Resource: "screen", ID: id}
	}
	if s.renderer == nil {
		return fmt.Errorf("cannot render screen %q: no renderer installed", id)
	}
	return s.renderer.Render(ctx, screen)
}

// actionRegistry delegates to the dispatcher.
type actionRegistry struct {
	dispatcher *dispatch.Dispatcher
}

func (a *actionRegistry) Register(action board.Action) (board.Unregister, error) {
	return a.dispatcher.Register(action)
}

func (a *actionRegistry) Run(ctx context.Context, id string, params map[string]any) (any, error) {
	return a.dispatcher.Run(ctx, id, params)
}

// eventRegistry delegates to the bus.
type eventRegistry struct {
	bus *bus.Bus
}

func (e *eventRegistry) On(event string, h board.EventHandler) (board.Subscription, error) {
	return e.bus.On(event, h)
}

func (e *eventRegistry) OnPattern(pattern string, h board.EventHandler) (board.Subscription, error) {
	return e.bus.OnPattern(pattern, h)
}

func (e *eventRegistry) Emit(event string, payload any) {
	e.bus.Emit(event, payload)
}

func (e *eventRegistry) EmitAsync(ctx context.Context, event string, payload any) {
	e.bus.EmitAsync(ctx, event, payload)
}

// pluginRegistry delegates to the lifecycle manager, read-only.
type pluginRegistry struct {
	manager *lifecycle.Manager
}

func (p *pluginRegistry) Get(name string) (board.Plugin, bool) {
	return p.manager.Get(name)
}

func (p *pluginRegistry) List() []string {
	return p.manager.Names()
}

// hostValues exposes the host context through read accessors only. The
// copy taken at construction combined with never exposing the map is what
// makes the host context immutable, not a check on every access.
type hostValues struct {
	values map[string]any
	keys   []string
}

func newHostValues(src map[string]any) *hostValues {
	values := make(map[string]any, len(src))
	keys := make([]string, 0, len(src))
	for k, v := range src {
		values[k] = v
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return &hostValues{values: values, keys: keys}
}

func (h *hostValues) Value(key string) (any, bool) {
	v, ok := h.values[key]
	return v, ok
}

func (h *hostValues) Keys() []string {
	out := make([]string, len(h.keys))
	copy(out, h.keys)
	return out
}
