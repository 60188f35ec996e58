package ioc

import (
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/junioryono/ioc/internal/graph"
	"github.com/junioryono/ioc/internal/reflection"
)

// ValidationError reports a definition that cannot be wired as declared.
type ValidationError struct {
	Name  string
	Cause error
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid definition of bean %q: %v", e.Name, e.Cause)
}

func (e ValidationError) Unwrap() error {
	return e.Cause
}

// Validate checks the registered definitions without creating any bean:
// types and declared methods must be usable, every required dependency
// must be registered, and no cycle may pass through a constructor.
// It returns the first problem found.
func (c *Container) Validate() error {
	if err := c.checkOpen(); err != nil {
		return err
	}

	g, err := c.buildGraph()
	if err != nil {
		return err
	}

	return c.validateGraph(g)
}

func (c *Container) validateGraph(g *graph.DependencyGraph) error {
	if missing := g.Missing(); len(missing) > 0 {
		return NotFoundError{Name: missing[0].To, RequiredBy: missing[0].From, Available: c.definitions.Names()}
	}

	if err := g.DetectConstructorCycles(); err != nil {
		var cycle graph.CircularDependencyError
		if errors.As(err, &cycle) {
			return CircularConstructorDependencyError{Path: cycle.Path}
		}
		return err
	}

	return nil
}

// Refresh prepares the container for use: it runs the factory
// post-processors, validates the definitions and creates every non-lazy
// singleton, dependencies first.
func (c *Container) Refresh() error {
	if err := c.checkOpen(); err != nil {
		return err
	}

	for _, fn := range c.factoryProcessors.Snapshot() {
		if err := fn(c); err != nil {
			return err
		}
	}

	g, err := c.buildGraph()
	if err != nil {
		return err
	}
	if err := c.validateGraph(g); err != nil {
		return err
	}

	for _, name := range g.TopologicalSort() {
		def, ok := c.definitions.Get(name)
		if !ok || def.Scope() != Singleton || def.IsLazy() {
			continue
		}
		if _, err := c.GetBean(name); err != nil {
			return err
		}
	}

	c.logger.Debug("container refreshed", zap.Int("singletons", c.singletons.Len()))
	return nil
}

// WriteGraph writes the static dependency graph of the registered
// definitions in Graphviz DOT format.
func (c *Container) WriteGraph(w io.Writer) error {
	g, err := c.buildGraph()
	if err != nil {
		return err
	}
	return g.WriteDOT(w)
}

func (c *Container) checkOpen() error {
	c.closeMu.RLock()
	defer c.closeMu.RUnlock()

	if c.closed {
		return ErrContainerClosed
	}
	return nil
}

// buildGraph derives the dependency edges of every definition from its
// selected constructor, injected fields and setters.
func (c *Container) buildGraph() (*graph.DependencyGraph, error) {
	g := graph.NewDependencyGraph()

	names := c.definitions.Names()
	for _, name := range names {
		def, ok := c.definitions.Get(name)
		if !ok {
			continue
		}
		g.AddNode(name, def.Scope().String())
	}

	for _, name := range names {
		def, ok := c.definitions.Get(name)
		if !ok {
			continue
		}

		edges, err := c.definitionEdges(def)
		if err != nil {
			return nil, ValidationError{Name: name, Cause: err}
		}
		for _, e := range edges {
			if err := g.AddEdge(e); err != nil {
				return nil, ValidationError{Name: name, Cause: err}
			}
		}
	}

	return g, nil
}

func (c *Container) definitionEdges(def *Definition) ([]graph.Edge, error) {
	name := def.Name()

	info, err := c.analyzer.AnalyzeType(def.Type())
	if err != nil {
		return nil, err
	}

	var edges []graph.Edge

	if ctor := selectConstructor(def); ctor != nil {
		ctorInfo, err := c.analyzer.AnalyzeConstructor(ctor, def.Type())
		if err != nil {
			return nil, err
		}
		for _, p := range ctorInfo.Parameters {
			if p.Type == beanFactoryType {
				continue
			}
			edges = append(edges, graph.Edge{From: name, To: p.BeanName, Kind: graph.Constructor, Optional: p.Optional})
		}
	}

	for _, f := range info.Fields {
		if f.Kind != reflection.InjectField {
			continue
		}
		edges = append(edges, graph.Edge{From: name, To: f.BeanName, Kind: graph.Field, Optional: f.Optional})
	}

	for _, setter := range def.setters {
		m, err := c.analyzer.Method(info.Type, setter, 1)
		if err != nil {
			return nil, err
		}
		edges = append(edges, graph.Edge{From: name, To: setterBeanName(setter, m.Type.In(1)), Kind: graph.Setter})
	}

	for _, method := range def.initMethods {
		if _, err := c.analyzer.Method(info.Type, method, 0); err != nil {
			return nil, err
		}
	}
	if def.destroyMethod != "" {
		if _, err := c.analyzer.Method(info.Type, def.destroyMethod, 0); err != nil {
			return nil, err
		}
	}

	return edges, nil
}
