// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Plugboard Contributors

package runtime

import (
	"slices"

	"github.com/plugboard/plugboard/internal/catalog"
	"github.com/plugboard/plugboard/internal/dispatch"
	"github.com/plugboard/plugboard/internal/lifecycle"
	"github.com/plugboard/plugboard/pkg/board"
)

// Compile-time interface check.
var _ board.Introspector = (*introspector)(nil)

// introspector computes metadata-only views on demand from the live
// registries. Results are never cached beyond a single call, and every
// result is a fresh deep copy containing only descriptive fields; handler,
// setup, and dispose procedures are never included.
type introspector struct {
	catalog    *catalog.Catalog
	dispatcher *dispatch.Dispatcher
	manager    *lifecycle.Manager
}

func (in *introspector) ListActions() []string {
	return in.dispatcher.IDs()
}

func (in *introspector) ListPlugins() []string {
	return in.manager.Names()
}

func (in *introspector) ListScreens() []string {
	screens := in.catalog.List()
	ids := make([]string, 0, len(screens))
	for _, s := range screens {
		ids = append(ids, s.ID)
	}
	return ids
}

func (in *introspector) ActionDefinition(id string) *board.ActionDefinition {
	a, ok := in.dispatcher.Get(id)
	if !ok {
		return nil
	}
	def := &board.ActionDefinition{
		ID:      a.ID,
		Timeout: a.Timeout,
	}
	if a.Retry != nil {
		retry := *a.Retry
		def.Retry = &retry
	}
	return def
}

func (in *introspector) PluginDefinition(name string) *board.PluginDefinition {
	p, ok := in.manager.Get(name)
	if !ok {
		return nil
	}
	return &board.PluginDefinition{
		Name:         p.Name,
		Version:      p.Version,
		Dependencies: slices.Clone(p.Dependencies),
	}
}

func (in *introspector) ScreenDefinition(id string) *board.ScreenDefinition {
	s, ok := in.catalog.Get(id)
	if !ok {
		return nil
	}
	return &board.ScreenDefinition{
		ID:        s.ID,
		Title:     s.Title,
		Component: deepCopy(s.Component),
	}
}

func (in *introspector) Metadata() board.Metadata {
	return board.Metadata{
		Actions:        in.dispatcher.Len(),
		Plugins:        in.manager.Len(),
		Screens:        in.catalog.Len(),
		RuntimeVersion: Version,
	}
}

// deepCopy recursively copies plain maps and slices so callers cannot reach
// back into registry-owned data at any nesting depth. Other values,
// including structs and functions, are returned as-is; they are either
// already values or cannot meaningfully be copied.
func deepCopy(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, nested := range val {
			out[k] = deepCopy(nested)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, nested := range val {
			out[i] = deepCopy(nested)
		}
		return out
	case []string:
		return slices.Clone(val)
	default:
		return v
	}
}
