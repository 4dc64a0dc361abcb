// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Plugboard Contributors

package board

import (
	"context"
	"log/slog"
	"time"
)

// Context is the facade handed to every plugin and handler. It is
// constructed once per runtime and wraps the runtime's registries behind a
// narrow API so plugins never touch the registries directly.
type Context interface {
	// Screens accesses the screen catalog.
	Screens() ScreenRegistry

	// Actions accesses the action dispatcher.
	Actions() ActionRegistry

	// Events accesses the event bus.
	Events() EventRegistry

	// Plugins accesses the plugin registry (read-only).
	Plugins() PluginRegistry

	// Introspect accesses read-only metadata views of everything
	// registered.
	Introspect() Introspector

	// Host accesses the immutable host context supplied by the embedding
	// application at runtime construction.
	Host() HostValues

	// Config returns the embedder-supplied configuration value, or nil.
	Config() any

	// Logger returns the runtime's logger.
	Logger() *slog.Logger
}

// ScreenRegistry registers and reads screens.
type ScreenRegistry interface {
	// Register adds a screen. Returns a ValidationError for a malformed
	// descriptor or a DuplicateError for an id collision.
	Register(s Screen) error

	// Get returns the screen with the given id.
	Get(id string) (Screen, bool)

	// List returns all screens in registration order.
	List() []Screen

	// Render delegates the screen to the installed render bridge. Returns
	// a NotFoundError for an unknown id and an error if no renderer is
	// installed.
	Render(ctx context.Context, id string) error
}

// ActionRegistry registers and runs actions.
type ActionRegistry interface {
	// Register adds an action and returns a capability that removes it.
	Register(a Action) (Unregister, error)

	// Run executes the action with the given id. It returns a
	// NotFoundError for an unknown id, a TimeoutError when the configured
	// timeout elapses first, and an ExecutionError wrapping the original
	// cause when the handler fails.
	Run(ctx context.Context, id string, params map[string]any) (any, error)
}

// EventRegistry subscribes to and emits events.
type EventRegistry interface {
	// On registers a handler for an exact event name.
	On(event string, h EventHandler) (Subscription, error)

	// OnPattern registers a handler for every event whose name matches a
	// glob pattern with ':' as the segment separator, e.g. "runtime:*".
	OnPattern(pattern string, h EventHandler) (Subscription, error)

	// Emit invokes all handlers for the event synchronously, in
	// registration order. Handler failures are logged and never propagate.
	Emit(event string, payload any)

	// EmitAsync invokes all handlers concurrently and returns only once
	// every handler has settled.
	EmitAsync(ctx context.Context, event string, payload any)
}

// PluginRegistry reads registered plugins.
type PluginRegistry interface {
	// Get returns the plugin with the given name.
	Get(name string) (Plugin, bool)

	// List returns the names of all registered plugins in registration
	// order.
	List() []string
}

// HostValues is the read-only view of the host context. The backing map is
// copied at facade construction and never exposed, which is what makes the
// host context immutable for the runtime's lifetime.
type HostValues interface {
	// Value returns the host value for key.
	Value(key string) (any, bool)

	// Keys returns all host context keys, sorted.
	Keys() []string
}

// Introspector returns metadata-only views of registered resources. Every
// result is a fresh deep copy; mutating it never affects the runtime, and
// handler/setup/dispose procedures are never included.
type Introspector interface {
	ListActions() []string
	ListPlugins() []string
	ListScreens() []string

	// ActionDefinition returns nil for an unknown id.
	ActionDefinition(id string) *ActionDefinition

	// PluginDefinition returns nil for an unknown name.
	PluginDefinition(name string) *PluginDefinition

	// ScreenDefinition returns nil for an unknown id.
	ScreenDefinition(id string) *ScreenDefinition

	// Metadata returns registration counts and the runtime version.
	Metadata() Metadata
}

// ActionDefinition is the descriptive view of a registered action.
type ActionDefinition struct {
	ID      string
	Timeout time.Duration
	Retry   *RetryPolicy
}

// PluginDefinition is the descriptive view of a registered plugin.
type PluginDefinition struct {
	Name         string
	Version      string
	Dependencies []string
}

// ScreenDefinition is the descriptive view of a registered screen.
type ScreenDefinition struct {
	ID        string
	Title     string
	Component any
}

// Metadata summarizes a runtime's registered resources.
type Metadata struct {
	Actions        int
	Plugins        int
	Screens        int
	RuntimeVersion string
}
