// Package graph builds a static view of the bean dependency graph from the
// registered definitions, for validation and eager instantiation ordering.
package graph

import (
	"fmt"
	"sort"
	"sync"
)

// EdgeKind tells how a dependency is injected.
type EdgeKind int

const (
	// Constructor edges must be satisfied by fully initialized beans.
	Constructor EdgeKind = iota
	// Field edges may be satisfied by early references.
	Field
	// Setter edges may be satisfied by early references.
	Setter
)

// String returns the string representation of the EdgeKind.
func (k EdgeKind) String() string {
	switch k {
	case Constructor:
		return "constructor"
	case Field:
		return "field"
	case Setter:
		return "setter"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// Edge is a dependency of one bean on another.
type Edge struct {
	From     string
	To       string
	Kind     EdgeKind
	Optional bool
}

// Node is a registered bean.
type Node struct {
	Name  string
	Label string // free-form annotation, e.g. the scope
	Edges []Edge
}

// DependencyGraph manages the dependency relationships between beans.
type DependencyGraph struct {
	mu    sync.RWMutex
	nodes map[string]*Node
	order []string
}

// NewDependencyGraph creates a new dependency graph
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		nodes: make(map[string]*Node),
	}
}

// AddNode adds a bean, replacing any previous node with the same name.
func (g *DependencyGraph) AddNode(name, label string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.nodes[name]; !exists {
		g.order = append(g.order, name)
	}
	g.nodes[name] = &Node{Name: name, Label: label}
}

// AddEdge records that from depends on to. The from node must exist.
func (g *DependencyGraph) AddEdge(edge Edge) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	node, ok := g.nodes[edge.From]
	if !ok {
		return fmt.Errorf("unknown node %q", edge.From)
	}
	node.Edges = append(node.Edges, edge)

	return nil
}

// HasNode checks if a node exists in the graph
func (g *DependencyGraph) HasNode(name string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	_, exists := g.nodes[name]
	return exists
}

// Size returns the number of nodes in the graph
func (g *DependencyGraph) Size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return len(g.nodes)
}

// GetDependencies returns the direct dependencies of a bean.
func (g *DependencyGraph) GetDependencies(name string) []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()

	node, ok := g.nodes[name]
	if !ok {
		return nil
	}

	result := make([]Edge, len(node.Edges))
	copy(result, node.Edges)
	return result
}

// GetDependents returns the names of beans that depend on name.
func (g *DependencyGraph) GetDependents(name string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var result []string
	for _, from := range g.order {
		for _, e := range g.nodes[from].Edges {
			if e.To == name {
				result = append(result, from)
				break
			}
		}
	}

	return result
}

// Missing returns required edges whose target is not a node.
func (g *DependencyGraph) Missing() []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var missing []Edge
	for _, name := range g.order {
		for _, e := range g.nodes[name].Edges {
			if e.Optional {
				continue
			}
			if _, ok := g.nodes[e.To]; !ok {
				missing = append(missing, e)
			}
		}
	}

	return missing
}

// DetectConstructorCycles reports the first cycle that passes through at
// least one constructor edge. Such a cycle cannot be broken at runtime,
// because constructor arguments are never served early references. Cycles
// made only of field and setter edges are not reported.
func (g *DependencyGraph) DetectConstructorCycles() error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for _, from := range g.order {
		for _, e := range g.nodes[from].Edges {
			if e.Kind != Constructor {
				continue
			}
			if path, ok := g.pathTo(e.To, from); ok {
				cycle := append([]string{from}, path...)
				return CircularDependencyError{Node: from, Path: cycle[:len(cycle)-1]}
			}
		}
	}

	return nil
}

// pathTo finds a path from start to target over any edge kind. The returned
// path begins with start and ends with target.
func (g *DependencyGraph) pathTo(start, target string) ([]string, bool) {
	if start == target {
		return []string{target}, true
	}

	visited := make(map[string]bool, len(g.nodes))
	var path []string

	var visit func(name string) bool
	visit = func(name string) bool {
		if visited[name] {
			return false
		}
		visited[name] = true
		path = append(path, name)

		if name == target {
			return true
		}
		if node, ok := g.nodes[name]; ok {
			for _, e := range node.Edges {
				if visit(e.To) {
					return true
				}
			}
		}

		path = path[:len(path)-1]
		return false
	}

	if visit(start) {
		return path, true
	}
	return nil, false
}

// TopologicalSort returns bean names with dependencies before their
// dependents. Cycles do not fail the sort: the back edge is skipped, which
// matches how the container breaks them at runtime.
func (g *DependencyGraph) TopologicalSort() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	visited := make(map[string]bool, len(g.nodes))
	result := make([]string, 0, len(g.nodes))

	var visit func(name string)
	visit = func(name string) {
		if visited[name] {
			return
		}
		node, ok := g.nodes[name]
		if !ok {
			return
		}
		visited[name] = true

		for _, e := range node.Edges {
			visit(e.To)
		}
		result = append(result, name)
	}

	for _, name := range g.order {
		visit(name)
	}

	return result
}

// Names returns the node names sorted alphabetically.
func (g *DependencyGraph) Names() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	names := make([]string, 0, len(g.nodes))
	for name := range g.nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clear removes all nodes and edges from the graph
func (g *DependencyGraph) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.nodes = make(map[string]*Node)
	g.order = nil
}
