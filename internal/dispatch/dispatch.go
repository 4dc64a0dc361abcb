// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Plugboard Contributors

// Package dispatch implements the action dispatcher: a registry of
// invocable handlers keyed by id, executed with timeout and error
// classification.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/plugboard/plugboard/internal/observability"
	"github.com/plugboard/plugboard/pkg/board"
)

// Dispatcher stores actions keyed by id and executes them on demand.
//
// Dispatcher is safe for concurrent use. Two concurrent Run calls for the
// same id are not serialized; if an action requires that, the embedder must
// provide it.
type Dispatcher struct {
	logger  *slog.Logger
	metrics *observability.Metrics

	mu      sync.RWMutex
	actions map[string]board.Action
	order   []string
	bound   board.Context
}

// Option configures the Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = l
	}
}

// WithMetrics sets the metrics recorder. A nil recorder records nothing.
func WithMetrics(m *observability.Metrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// New creates an action dispatcher.
func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		logger:  slog.Default(),
		actions: make(map[string]board.Action),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Bind sets the facade passed to every handler. The facade depends on the
// dispatcher existing first, so binding is a second wiring phase performed
// by the runtime after facade construction.
func (d *Dispatcher) Bind(rc board.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.bound = rc
}

// Unbind detaches the facade reference. Called during shutdown.
func (d *Dispatcher) Unbind() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.bound = nil
}

// Register adds an action and returns a capability that removes it.
func (d *Dispatcher) Register(a board.Action) (board.Unregister, error) {
	if a.ID == "" {
		return nil, &board.ValidationError{Resource: "action", Field: "id", Reason: "is required"}
	}
	if a.Handler == nil {
		return nil, &board.ValidationError{Resource: "action", Field: "handler", Reason: "is required"}
	}
	if a.Timeout < 0 {
		return nil, &board.ValidationError{Resource: "action", Field: "timeout", Reason: "must not be negative"}
	}
	if a.Retry != nil && a.Retry.Attempts >= 2 && a.Retry.Backoff <= 0 {
		return nil, &board.ValidationError{Resource: "action", Field: "retry.backoff", Reason: "must be positive when retries are enabled"}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.actions[a.ID]; ok {
		return nil, &board.DuplicateError{Resource: "action", ID: a.ID}
	}

	d.actions[a.ID] = a
	d.order = append(d.order, a.ID)

	var once sync.Once
	unregister := func() {
		once.Do(func() { d.remove(a.ID) })
	}
	return unregister, nil
}

// remove deletes an action by id.
func (d *Dispatcher) remove(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.actions[id]; !ok {
		return
	}
	delete(d.actions, id)
	for i, existing := range d.order {
		if existing == id {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
}

// Run executes the action with the given id. Synchronous and blocking
// handlers are treated uniformly: Run returns once the handler completes or
// the configured timeout elapses, whichever comes first.
//
// On timeout the handler's context is cancelled but its goroutine is not
// killed; a handler that ignores cancellation keeps running detached.
func (d *Dispatcher) Run(ctx context.Context, id string, params map[string]any) (any, error) {
	d.mu.RLock()
	a, ok := d.actions[id]
	rc := d.bound
	d.mu.RUnlock()

	if !ok {
		return nil, &board.NotFoundError{Resource: "action", ID: id}
	}

	start := time.Now()
	result, err := d.execute(ctx, a, params, rc)
	elapsed := time.Since(start)

	switch e := err.(type) {
	case nil:
		d.metrics.RecordActionRun(id, observability.StatusOK, elapsed)
	case *board.TimeoutError:
		d.metrics.RecordActionRun(id, observability.StatusTimeout, elapsed)
		d.logger.Warn("action timed out",
			"action", id,
			"timeout", e.Timeout)
	default:
		d.metrics.RecordActionRun(id, observability.StatusError, elapsed)
	}

	return result, err
}

// execute runs the handler, racing it against the configured timeout.
func (d *Dispatcher) execute(ctx context.Context, a board.Action, params map[string]any, rc board.Context) (any, error) {
	if a.Timeout <= 0 {
		result, err := d.attempt(ctx, a, params, rc)
		if err != nil {
			return nil, &board.ExecutionError{ActionID: a.ID, Err: err}
		}
		return result, nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type outcome struct {
		result any
		err    error
	}
	done := make(chan outcome, 1)

	go func() {
		result, err := d.attempt(runCtx, a, params, rc)
		done <- outcome{result: result, err: err}
	}()

	timer := time.NewTimer(a.Timeout)
	defer timer.Stop()

	select {
	case out := <-done:
		if out.err != nil {
			return nil, &board.ExecutionError{ActionID: a.ID, Err: out.err}
		}
		return out.result, nil
	case <-timer.C:
		// The handler goroutine is orphaned here on purpose; runCtx is
		// cancelled so cooperative handlers can stop.
		return nil, &board.TimeoutError{ActionID: a.ID, Timeout: a.Timeout}
	}
}

// attempt invokes the handler once, or under the action's retry policy.
func (d *Dispatcher) attempt(ctx context.Context, a board.Action, params map[string]any, rc board.Context) (any, error) {
	if a.Retry == nil || a.Retry.Attempts < 2 {
		return d.call(ctx, a, params, rc)
	}

	backoff := retry.WithMaxRetries(a.Retry.Attempts-1, retry.NewFibonacci(a.Retry.Backoff))

	var result any
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		r, err := d.call(ctx, a, params, rc)
		if err != nil {
			return retry.RetryableError(err)
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// call invokes the handler with a panic boundary so a panicking handler
// surfaces as an error instead of tearing down the embedder.
func (d *Dispatcher) call(ctx context.Context, a board.Action, params map[string]any, rc board.Context) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return a.Handler(ctx, params, rc)
}

// Get returns the action with the given id.
func (d *Dispatcher) Get(id string) (board.Action, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	a, ok := d.actions[id]
	return a, ok
}

// IDs returns all action ids in registration order.
func (d *Dispatcher) IDs() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]string, len(d.order))
	copy(out, d.order)
	return out
}

// Len returns the number of registered actions.
func (d *Dispatcher) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.actions)
}

// Clear removes all actions. Called by the runtime during shutdown.
func (d *Dispatcher) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.actions = make(map[string]board.Action)
	d.order = nil
}
