// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Plugboard Contributors

package discovery

import (
	"fmt"
	"strings"
)

// visit states for the depth-first topological sort.
const (
	unvisited = iota
	visiting
	visited
)

// sortByDependencies orders discovered plugins so that every plugin comes
// after its declared dependencies. The sort applies only among the given
// plugins; dependencies naming plugins outside this set do not affect the
// order and are left for the lifecycle manager's setup-time check. Ties
// preserve discovery order.
//
// A true dependency cycle is an error naming the cycle's members, not a
// silent skip.
func sortByDependencies(plugins []*DiscoveredPlugin) ([]*DiscoveredPlugin, error) {
	byName := make(map[string]*DiscoveredPlugin, len(plugins))
	for _, p := range plugins {
		byName[p.Manifest.Name] = p
	}

	state := make(map[string]int, len(plugins))
	sorted := make([]*DiscoveredPlugin, 0, len(plugins))
	var stack []string

	var visit func(p *DiscoveredPlugin) error
	visit = func(p *DiscoveredPlugin) error {
		name := p.Manifest.Name
		switch state[name] {
		case visited:
			return nil
		case visiting:
			return fmt.Errorf("plugin dependency cycle: %s", formatCycle(stack, name))
		}

		state[name] = visiting
		stack = append(stack, name)

		for _, dep := range p.Manifest.DependencyNames() {
			depPlugin, ok := byName[dep]
			if !ok {
				// Not among the discovered set; setup-time validation
				// owns this case.
				continue
			}
			if err := visit(depPlugin); err != nil {
				return err
			}
		}

		stack = stack[:len(stack)-1]
		state[name] = visited
		sorted = append(sorted, p)
		return nil
	}

	for _, p := range plugins {
		if err := visit(p); err != nil {
			return nil, err
		}
	}

	return sorted, nil
}

// formatCycle renders the cycle portion of the visit stack, closing the
// loop on the repeated name: "a -> b -> a".
func formatCycle(stack []string, repeated string) string {
	start := 0
	for i, name := range stack {
		if name == repeated {
			start = i
			break
		}
	}
	members := append([]string{}, stack[start:]...)
	members = append(members, repeated)
	return strings.Join(members, " -> ")
}
