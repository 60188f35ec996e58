package graph

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// WriteDOT writes the graph in Graphviz DOT format. Constructor edges are
// solid, field and setter edges dashed, missing beans gray.
func (g *DependencyGraph) WriteDOT(w io.Writer) error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var b strings.Builder
	b.WriteString("digraph beans {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [shape=box];\n")

	missing := make(map[string]bool)
	for _, name := range g.order {
		node := g.nodes[name]
		label := node.Name
		if node.Label != "" {
			label = fmt.Sprintf("%s\\n%s", node.Name, node.Label)
		}
		fmt.Fprintf(&b, "  %q [label=%q];\n", node.Name, label)

		for _, e := range node.Edges {
			if _, ok := g.nodes[e.To]; !ok {
				missing[e.To] = true
			}
		}
	}

	absent := make([]string, 0, len(missing))
	for name := range missing {
		absent = append(absent, name)
	}
	sort.Strings(absent)
	for _, name := range absent {
		fmt.Fprintf(&b, "  %q [style=filled, fillcolor=lightgray];\n", name)
	}

	for _, name := range g.order {
		for _, e := range g.nodes[name].Edges {
			style := "solid"
			if e.Kind != Constructor {
				style = "dashed"
			}
			fmt.Fprintf(&b, "  %q -> %q [style=%s, label=%q];\n", e.From, e.To, style, e.Kind.String())
		}
	}

	b.WriteString("}\n")

	_, err := io.WriteString(w, b.String())
	return err
}
