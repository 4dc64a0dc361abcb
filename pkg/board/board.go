// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Plugboard Contributors

package board

import (
	"context"
	"time"
)

// SetupFunc initializes a plugin. It receives the runtime Context and may
// register screens, actions, and event handlers through it. Setup may block;
// the runtime awaits it before moving on to the next plugin.
type SetupFunc func(ctx context.Context, rc Context) error

// DisposeFunc tears down a plugin. Errors are logged by the runtime but
// never propagated, so dispose of as much as possible before returning.
type DisposeFunc func(ctx context.Context, rc Context) error

// ActionHandler executes an action. Params are caller-supplied and may be
// nil. The handler should honor ctx cancellation: when an action times out
// the runtime cancels ctx but does not kill the handler's goroutine.
type ActionHandler func(ctx context.Context, params map[string]any, rc Context) (any, error)

// EventHandler receives an event payload. The payload type is agreed upon
// by emitter and listener out of band. A returned error is logged and
// discarded; it never reaches the emitter.
type EventHandler func(ctx context.Context, payload any) error

// Plugin describes a named unit of setup/dispose logic. Once registered the
// descriptor is owned by the runtime and must not be modified.
type Plugin struct {
	// Name uniquely identifies the plugin within a runtime.
	Name string

	// Version is an opaque version string. The discovery layer additionally
	// requires semver, but the core runtime does not interpret it.
	Version string

	// Dependencies names plugins that must be initialized before this one.
	// Dependencies do not reorder setup; they are a precondition checked
	// against registration order.
	Dependencies []string

	// Setup is required.
	Setup SetupFunc

	// Dispose is optional.
	Dispose DisposeFunc
}

// RetryPolicy configures automatic retries for a failing action handler.
type RetryPolicy struct {
	// Attempts is the maximum number of handler invocations, including the
	// first. Values below 2 disable retrying.
	Attempts uint64

	// Backoff is the base delay of the fibonacci backoff between attempts.
	Backoff time.Duration
}

// Action describes an invocable operation.
type Action struct {
	// ID uniquely identifies the action within a runtime.
	ID string

	// Handler is required.
	Handler ActionHandler

	// Timeout bounds a single Run call. Zero means no timeout. The timeout
	// is a race, not hard cancellation: the handler's context is cancelled
	// when it elapses, but the handler keeps running if it ignores it.
	Timeout time.Duration

	// Retry optionally re-runs a failing handler. The timeout, when set,
	// bounds the whole retried sequence.
	Retry *RetryPolicy
}

// Screen describes an opaque, named UI unit. Rendering is out of the
// runtime's scope; Component is handed untouched to whatever renderer the
// embedding application installs.
type Screen struct {
	ID        string
	Title     string
	Component any
}

// Unregister removes a previously registered resource. Calling it more than
// once is a no-op.
type Unregister func()

// Subscription identifies an event-handler registration and allows its
// removal.
type Subscription interface {
	// ID returns the subscription's unique id.
	ID() string

	// Cancel removes the handler from the bus. Safe to call multiple times.
	Cancel()
}

// Renderer is the optional render bridge. The runtime itself performs no
// rendering; it only delegates to a single installed Renderer and closes it
// at shutdown.
type Renderer interface {
	Render(ctx context.Context, screen Screen) error
	Close(ctx context.Context) error
}
