package graph_test

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junioryono/ioc/internal/graph"
)

func build(t *testing.T, nodes []string, edges ...graph.Edge) *graph.DependencyGraph {
	t.Helper()

	g := graph.NewDependencyGraph()
	for _, n := range nodes {
		g.AddNode(n, "singleton")
	}
	for _, e := range edges {
		require.NoError(t, g.AddEdge(e))
	}
	return g
}

func TestDependencyGraph_AddEdgeUnknownNode(t *testing.T) {
	g := graph.NewDependencyGraph()
	err := g.AddEdge(graph.Edge{From: "missing", To: "x"})
	assert.Error(t, err)
}

func TestDependencyGraph_TopologicalSort(t *testing.T) {
	g := build(t, []string{"orderService", "orderDao", "dataSource"},
		graph.Edge{From: "orderService", To: "orderDao", Kind: graph.Field},
		graph.Edge{From: "orderDao", To: "dataSource", Kind: graph.Constructor},
	)

	assert.Equal(t, []string{"dataSource", "orderDao", "orderService"}, g.TopologicalSort())
}

func TestDependencyGraph_TopologicalSortToleratesCycles(t *testing.T) {
	g := build(t, []string{"a", "b"},
		graph.Edge{From: "a", To: "b", Kind: graph.Field},
		graph.Edge{From: "b", To: "a", Kind: graph.Field},
	)

	order := g.TopologicalSort()
	assert.ElementsMatch(t, []string{"a", "b"}, order)
	assert.Equal(t, "b", order[0])
}

func TestDependencyGraph_DetectConstructorCycles(t *testing.T) {
	tests := []struct {
		name    string
		edges   []graph.Edge
		wantErr bool
		path    []string
	}{
		{
			name: "field cycle is allowed",
			edges: []graph.Edge{
				{From: "a", To: "b", Kind: graph.Field},
				{From: "b", To: "a", Kind: graph.Setter},
			},
		},
		{
			name: "mixed cycle",
			edges: []graph.Edge{
				{From: "a", To: "b", Kind: graph.Field},
				{From: "b", To: "a", Kind: graph.Constructor},
			},
			wantErr: true,
			path:    []string{"b", "a"},
		},
		{
			name: "constructor chain without cycle",
			edges: []graph.Edge{
				{From: "a", To: "b", Kind: graph.Constructor},
				{From: "b", To: "c", Kind: graph.Constructor},
				{From: "a", To: "c", Kind: graph.Field},
			},
		},
		{
			name: "constructor cycle",
			edges: []graph.Edge{
				{From: "a", To: "b", Kind: graph.Constructor},
				{From: "b", To: "c", Kind: graph.Constructor},
				{From: "c", To: "a", Kind: graph.Constructor},
			},
			wantErr: true,
			path:    []string{"a", "b", "c"},
		},
		{
			name: "self reference",
			edges: []graph.Edge{
				{From: "a", To: "a", Kind: graph.Constructor},
			},
			wantErr: true,
			path:    []string{"a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := build(t, []string{"a", "b", "c"}, tt.edges...)

			err := g.DetectConstructorCycles()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}

			var cycleErr graph.CircularDependencyError
			require.True(t, errors.As(err, &cycleErr))
			assert.Equal(t, tt.path, cycleErr.Path)
			assert.Contains(t, err.Error(), "(cycle)")
		})
	}
}

func TestDependencyGraph_Missing(t *testing.T) {
	g := build(t, []string{"a"},
		graph.Edge{From: "a", To: "ghost", Kind: graph.Field},
		graph.Edge{From: "a", To: "maybe", Kind: graph.Field, Optional: true},
	)

	missing := g.Missing()
	require.Len(t, missing, 1)
	assert.Equal(t, "ghost", missing[0].To)
}

func TestDependencyGraph_Dependents(t *testing.T) {
	g := build(t, []string{"a", "b", "c"},
		graph.Edge{From: "a", To: "c", Kind: graph.Field},
		graph.Edge{From: "b", To: "c", Kind: graph.Constructor},
	)

	assert.Equal(t, []string{"a", "b"}, g.GetDependents("c"))
	assert.Len(t, g.GetDependencies("a"), 1)
	assert.Nil(t, g.GetDependencies("nope"))
}

func TestDependencyGraph_WriteDOT(t *testing.T) {
	g := build(t, []string{"a", "b"},
		graph.Edge{From: "a", To: "b", Kind: graph.Constructor},
		graph.Edge{From: "b", To: "ghost", Kind: graph.Field},
	)

	var buf bytes.Buffer
	require.NoError(t, g.WriteDOT(&buf))

	out := buf.String()
	assert.Contains(t, out, "digraph beans {")
	assert.Contains(t, out, `"a" -> "b" [style=solid, label="constructor"];`)
	assert.Contains(t, out, `"b" -> "ghost" [style=dashed, label="field"];`)
	assert.Contains(t, out, `"ghost" [style=filled, fillcolor=lightgray];`)
}

func TestDependencyGraph_ConcurrentOperations(t *testing.T) {
	g := graph.NewDependencyGraph()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			g.AddNode(fmt.Sprintf("bean%d", i), "")
		}(i)
	}
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = g.TopologicalSort()
			_ = g.DetectConstructorCycles()
			_ = g.Names()
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, g.Size())

	g.Clear()
	assert.Equal(t, 0, g.Size())
	assert.False(t, g.HasNode("bean0"))
}
