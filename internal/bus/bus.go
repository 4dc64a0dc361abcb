// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Plugboard Contributors

// Package bus implements the runtime's event bus: named broadcast channels
// with synchronous, ordered fan-out and awaited concurrent fan-out.
package bus

import (
	"context"
	"log/slog"
	"sync"

	"github.com/gobwas/glob"
	"github.com/oklog/ulid/v2"

	"github.com/plugboard/plugboard/internal/observability"
	"github.com/plugboard/plugboard/pkg/board"
)

// Delivery modes recorded in metrics.
const (
	modeSync  = "sync"
	modeAsync = "async"
)

// subscription is one registered handler.
type subscription struct {
	id      string
	event   string // exact event name, empty for pattern subscriptions
	pattern glob.Glob
	handler board.EventHandler
	bus     *Bus
	once    sync.Once
}

// ID returns the subscription's unique id.
func (s *subscription) ID() string { return s.id }

// Cancel removes the handler from the bus. Safe to call multiple times.
func (s *subscription) Cancel() {
	s.once.Do(func() { s.bus.remove(s) })
}

// Bus stores event handlers keyed by event name, in insertion order, plus a
// separate list of glob pattern subscriptions consulted on every emit.
//
// Bus is safe for concurrent use.
type Bus struct {
	logger  *slog.Logger
	metrics *observability.Metrics

	mu       sync.RWMutex
	exact    map[string][]*subscription
	patterns []*subscription
}

// Option configures the Bus.
type Option func(*Bus)

// WithLogger sets the logger used for handler failures.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bus) {
		b.logger = l
	}
}

// WithMetrics sets the metrics recorder. A nil recorder records nothing.
func WithMetrics(m *observability.Metrics) Option {
	return func(b *Bus) {
		b.metrics = m
	}
}

// New creates an event bus.
func New(opts ...Option) *Bus {
	b := &Bus{
		logger: slog.Default(),
		exact:  make(map[string][]*subscription),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// On registers a handler for an exact event name and returns a cancelable
// subscription.
func (b *Bus) On(event string, h board.EventHandler) (board.Subscription, error) {
	if event == "" {
		return nil, &board.ValidationError{Resource: "event handler", Field: "event", Reason: "is required"}
	}
	if h == nil {
		return nil, &board.ValidationError{Resource: "event handler", Field: "handler", Reason: "is required"}
	}

	sub := &subscription{
		id:      ulid.Make().String(),
		event:   event,
		handler: h,
		bus:     b,
	}

	b.mu.Lock()
	b.exact[event] = append(b.exact[event], sub)
	b.mu.Unlock()

	return sub, nil
}

// OnPattern registers a handler for every event whose name matches the glob
// pattern, with ':' as the segment separator. "runtime:*" matches
// "runtime:initialized" but not "runtime:plugin:loaded"; use "runtime:**"
// to cross segments.
func (b *Bus) OnPattern(pattern string, h board.EventHandler) (board.Subscription, error) {
	if pattern == "" {
		return nil, &board.ValidationError{Resource: "event handler", Field: "pattern", Reason: "is required"}
	}
	if h == nil {
		return nil, &board.ValidationError{Resource: "event handler", Field: "handler", Reason: "is required"}
	}

	g, err := glob.Compile(pattern, ':')
	if err != nil {
		return nil, &board.ValidationError{Resource: "event handler", Field: "pattern", Reason: "is not a valid glob: " + err.Error()}
	}

	sub := &subscription{
		id:      ulid.Make().String(),
		pattern: g,
		handler: h,
		bus:     b,
	}

	b.mu.Lock()
	b.patterns = append(b.patterns, sub)
	b.mu.Unlock()

	return sub, nil
}

// remove deletes a subscription. Removing the last exact handler for an
// event drops the event's map entry entirely to keep the map compact.
func (b *Bus) remove(sub *subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sub.pattern != nil {
		for i, s := range b.patterns {
			if s == sub {
				b.patterns = append(b.patterns[:i], b.patterns[i+1:]...)
				return
			}
		}
		return
	}

	subs := b.exact[sub.event]
	for i, s := range subs {
		if s == sub {
			subs = append(subs[:i], subs[i+1:]...)
			if len(subs) == 0 {
				delete(b.exact, sub.event)
			} else {
				b.exact[sub.event] = subs
			}
			return
		}
	}
}

// handlersFor snapshots the handlers that should receive an event, exact
// subscriptions first in registration order, then matching pattern
// subscriptions in their registration order.
func (b *Bus) handlersFor(event string) []*subscription {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]*subscription, 0, len(b.exact[event])+len(b.patterns))
	out = append(out, b.exact[event]...)
	for _, s := range b.patterns {
		if s.pattern.Match(event) {
			out = append(out, s)
		}
	}
	return out
}

// Emit invokes every handler registered for the event synchronously, in
// registration order. Each handler runs inside its own error boundary: a
// failure or panic is logged with the event name and does not prevent
// subsequent handlers from running, nor does it reach the caller.
func (b *Bus) Emit(event string, payload any) {
	subs := b.handlersFor(event)
	if len(subs) == 0 {
		return
	}

	b.metrics.RecordEmit(modeSync)

	for _, sub := range subs {
		b.invoke(context.Background(), event, sub, payload)
	}
}

// EmitAsync invokes every handler registered for the event concurrently,
// each in its own error boundary, and returns only once every handler has
// settled. Handler initiation order follows registration order; completion
// order is unspecified.
func (b *Bus) EmitAsync(ctx context.Context, event string, payload any) {
	subs := b.handlersFor(event)
	if len(subs) == 0 {
		return
	}

	b.metrics.RecordEmit(modeAsync)

	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(1)
		go func(sub *subscription) {
			defer wg.Done()
			b.invoke(ctx, event, sub, payload)
		}(sub)
	}
	wg.Wait()
}

// invoke runs a single handler inside an error boundary.
func (b *Bus) invoke(ctx context.Context, event string, sub *subscription, payload any) {
	defer func() {
		if r := recover(); r != nil {
			b.metrics.RecordHandlerError(event)
			b.logger.Error("event handler panicked",
				"event", event,
				"subscription", sub.id,
				"panic", r)
		}
	}()

	if err := sub.handler(ctx, payload); err != nil {
		b.metrics.RecordHandlerError(event)
		b.logger.Error("event handler failed",
			"event", event,
			"subscription", sub.id,
			"error", err)
	}
}

// Len returns the total number of live subscriptions.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	n := len(b.patterns)
	for _, subs := range b.exact {
		n += len(subs)
	}
	return n
}

// Clear removes all subscriptions. Called by the runtime during shutdown.
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.exact = make(map[string][]*subscription)
	b.patterns = nil
}
