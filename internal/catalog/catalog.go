// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Plugboard Contributors

// Package catalog stores screen definitions keyed by id.
package catalog

import (
	"sync"

	"github.com/plugboard/plugboard/pkg/board"
)

// Catalog is a flat id→screen store with uniqueness enforcement.
//
// Catalog is safe for concurrent use.
type Catalog struct {
	mu      sync.RWMutex
	screens map[string]board.Screen
	order   []string
}

// New creates an empty catalog.
func New() *Catalog {
	return &Catalog{
		screens: make(map[string]board.Screen),
	}
}

// Register adds a screen. It returns a ValidationError if id or title is
// empty and a DuplicateError if the id already exists.
func (c *Catalog) Register(s board.Screen) error {
	if s.ID == "" {
		return &board.ValidationError{Resource: "screen", Field: "id", Reason: "is required"}
	}
	if s.Title == "" {
		return &board.ValidationError{Resource: "screen", Field: "title", Reason: "is required"}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.screens[s.ID]; ok {
		return &board.DuplicateError{Resource: "screen", ID: s.ID}
	}

	c.screens[s.ID] = s
	c.order = append(c.order, s.ID)
	return nil
}

// Get returns the screen with the given id.
func (c *Catalog) Get(id string) (board.Screen, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s, ok := c.screens[id]
	return s, ok
}

// List returns all screens in registration order.
func (c *Catalog) List() []board.Screen {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]board.Screen, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.screens[id])
	}
	return out
}

// Len returns the number of registered screens.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.screens)
}

// Clear removes all screens. Called by the runtime during shutdown.
func (c *Catalog) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.screens = make(map[string]board.Screen)
	c.order = nil
}
