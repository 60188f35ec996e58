package ioc

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/junioryono/ioc/internal/lifetime"
	"github.com/junioryono/ioc/internal/reflection"
	"github.com/junioryono/ioc/internal/registry"
	"github.com/junioryono/ioc/internal/value"
)

// Container owns a set of bean definitions and the beans created from them.
// Containers are independent of each other; all methods are safe for
// concurrent use.
type Container struct {
	id     string
	logger *zap.Logger

	definitions       *registry.Registry[*Definition]
	preProcessors     *registry.List[PreInitProcessor]
	postProcessors    *registry.List[PostInitProcessor]
	earlyProcessors   *registry.List[EarlyReferenceProcessor]
	factoryProcessors *registry.List[func(*Container) error]

	analyzer   *reflection.Analyzer
	values     *value.Resolver
	singletons *lifetime.Cache
	destroyers *lifetime.Destroyers

	// closeMu guards closed and admission to inflight.
	closeMu  sync.RWMutex
	closed   bool
	inflight sync.WaitGroup
}

// New creates an empty container.
func New(opts ...Option) *Container {
	options := &containerOptions{
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt.apply(options)
		}
	}

	id := uuid.NewString()

	return &Container{
		id:                id,
		logger:            options.logger.Named("ioc").With(zap.String("container", id)),
		definitions:       registry.New[*Definition](),
		preProcessors:     registry.NewList[PreInitProcessor](),
		postProcessors:    registry.NewList[PostInitProcessor](),
		earlyProcessors:   registry.NewList[EarlyReferenceProcessor](),
		factoryProcessors: registry.NewList[func(*Container) error](),
		analyzer:          reflection.New(beanNameAwareType, containerAwareType),
		values:            value.NewResolver(options.lookup),
		singletons:        lifetime.NewCache(),
		destroyers:        lifetime.NewDestroyers(),
	}
}

// ID returns the unique identifier of the container.
func (c *Container) ID() string {
	return c.id
}

// Logger returns the container's logger, named "ioc" and tagged with the
// container ID.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// RegisterDefinition stores def under its name, replacing any previous
// definition with that name. Singletons already created from a replaced
// definition stay cached.
func (c *Container) RegisterDefinition(def *Definition) error {
	if def == nil {
		return ErrNilDefinition
	}
	if def.Name() == "" {
		return ErrEmptyName
	}

	c.closeMu.RLock()
	defer c.closeMu.RUnlock()
	if c.closed {
		return ErrContainerClosed
	}

	c.definitions.Register(def.Name(), def)
	c.logger.Debug("registered bean definition",
		zap.String("bean", def.Name()),
		zap.Stringer("scope", def.Scope()),
	)

	return nil
}

// Register creates and registers a definition for typ.
func (c *Container) Register(name string, typ reflect.Type, opts ...DefinitionOption) error {
	return c.RegisterDefinition(NewDefinition(name, typ, opts...))
}

// ContainsBean reports whether a definition is registered under name.
func (c *Container) ContainsBean(name string) bool {
	return c.definitions.Contains(name)
}

// Definition returns the definition registered under name.
func (c *Container) Definition(name string) (*Definition, bool) {
	return c.definitions.Get(name)
}

// DefinitionNames returns the registered bean names in registration order.
func (c *Container) DefinitionNames() []string {
	return c.definitions.Names()
}

// SingletonNames returns the names of the singletons created so far, in
// completion order.
func (c *Container) SingletonNames() []string {
	return c.singletons.Names()
}

// AddPostProcessor registers a processor applied to every bean created
// after this call. p must implement at least one of PreInitProcessor,
// PostInitProcessor and EarlyReferenceProcessor; it is registered for each
// one it implements. Processors run in registration order.
func (c *Container) AddPostProcessor(p any) error {
	c.closeMu.RLock()
	defer c.closeMu.RUnlock()
	if c.closed {
		return ErrContainerClosed
	}

	matched := false
	if pre, ok := p.(PreInitProcessor); ok {
		c.preProcessors.Add(pre)
		matched = true
	}
	if post, ok := p.(PostInitProcessor); ok {
		c.postProcessors.Add(post)
		matched = true
	}
	if early, ok := p.(EarlyReferenceProcessor); ok {
		c.earlyProcessors.Add(early)
		matched = true
	}

	if !matched {
		return fmt.Errorf("%w: %T", ErrInvalidProcessor, p)
	}
	return nil
}

// AddFactoryPostProcessor registers a function run by Refresh before any
// bean is created. It may register or adjust definitions.
func (c *Container) AddFactoryPostProcessor(fn func(*Container) error) error {
	if fn == nil {
		return fmt.Errorf("%w: nil factory post-processor", ErrInvalidProcessor)
	}

	c.closeMu.RLock()
	defer c.closeMu.RUnlock()
	if c.closed {
		return ErrContainerClosed
	}

	c.factoryProcessors.Add(fn)
	return nil
}

// GetBean returns the bean registered under name. A singleton is created on
// first request and cached; a prototype is created on every request.
//
// A constructor must not call GetBean for a bean on its own creation chain:
// the call starts a new resolution that waits for the chain to finish, which
// never happens. Declare a BeanFactory constructor parameter or implement
// ContainerAware instead; lookups through those join the creating
// resolution and report such a cycle as an error.
func (c *Container) GetBean(name string) (any, error) {
	if err := c.enter(); err != nil {
		return nil, err
	}
	defer c.inflight.Done()

	return c.getBean(newResolution(), name, true)
}

// enter admits a request unless the container is closed.
func (c *Container) enter() error {
	c.closeMu.RLock()
	defer c.closeMu.RUnlock()

	if c.closed {
		return ErrContainerClosed
	}
	c.inflight.Add(1)
	return nil
}

// getBean resolves name within res. allowEarly is false for constructor
// arguments, which must be fully initialized. An early reference is never
// served when the path back to name crosses a constructor, so a cycle with a
// constructor edge fails whichever of its beans is requested first.
func (c *Container) getBean(res *resolution, name string, allowEarly bool) (any, error) {
	def, ok := c.definitions.Get(name)
	if !ok {
		return nil, NotFoundError{Name: name, RequiredBy: res.current(), Available: c.definitions.Names()}
	}

	res.depend(name)

	// A cached singleton wins even if the definition was re-scoped since.
	if bean, ok := c.singletons.Lookup(name); ok {
		return bean, nil
	}

	if res.inPath(name) && (!allowEarly || res.crossesConstructor(name)) {
		return nil, CircularConstructorDependencyError{Path: res.cycle(name)}
	}

	if def.Scope() == Prototype {
		return c.createBean(res, def, false, !allowEarly)
	}

	bean, err := c.singletons.Get(res.owner, name, allowEarly, func() (any, error) {
		bean, err := c.createBean(res, def, true, !allowEarly)
		if err != nil {
			c.evictDependents(res, name)
		}
		return bean, err
	})
	if err == lifetime.ErrCurrentlyInCreation {
		return nil, CircularConstructorDependencyError{Path: res.cycle(name)}
	}

	return bean, err
}

// evictDependents drops the finished singletons that were given name,
// directly or through other beans, while name was being created. They may
// hold its abandoned early reference; their destroy hooks run now.
func (c *Container) evictDependents(res *resolution, name string) {
	for _, dep := range res.dependentsOf(name) {
		if !c.singletons.Remove(dep) {
			continue
		}

		c.logger.Debug("evicting dependent of failed bean",
			zap.String("bean", dep),
			zap.String("failed", name),
		)

		if hook := c.destroyers.Remove(dep); hook != nil {
			if err := hook(); err != nil {
				c.logger.Warn("destroy hook failed", zap.String("bean", dep), zap.Error(err))
			}
		}
	}
}

// createBean runs the full creation pipeline for def: instantiate, expose
// an early reference (singletons), inject, initialize, register the
// destroy hook (singletons).
func (c *Container) createBean(res *resolution, def *Definition, singleton, viaConstructor bool) (any, error) {
	name := def.Name()

	res.push(name, viaConstructor)
	defer res.pop()

	c.logger.Debug("creating bean",
		zap.String("bean", name),
		zap.Bool("singleton", singleton),
	)

	info, err := c.analyzer.AnalyzeType(def.Type())
	if err != nil {
		return nil, CreationError{Name: name, Type: def.Type(), Cause: err}
	}

	raw, err := c.instantiate(res, def)
	if err != nil {
		return nil, err
	}

	if singleton {
		c.singletons.AddFactory(name, func() (any, error) {
			return c.earlyReference(name, raw)
		})
	}

	if err := c.inject(res, def, info, raw); err != nil {
		return nil, err
	}

	final, err := c.initialize(res, def, info, raw)
	if err != nil {
		return nil, err
	}

	if singleton {
		if early, ok := c.singletons.EarlyReference(name); ok {
			switch {
			case sameInstance(final, raw):
				final = early
			case !sameInstance(final, early):
				return nil, EarlyReferenceMismatchError{
					Name:  name,
					Early: reflect.TypeOf(early),
					Final: reflect.TypeOf(final),
				}
			}
		}

		c.registerDestroy(def, raw, final)
	}

	c.logger.Debug("created bean", zap.String("bean", name))
	return final, nil
}

// sameInstance reports whether a and b are the same object. Values of
// non-comparable types are never the same.
func sameInstance(a, b any) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || ta == nil {
		return ta == tb
	}
	if !ta.Comparable() {
		return false
	}
	return a == b
}

// Close runs the destroy hooks of all singletons in reverse creation order
// and releases every definition, processor and cached bean. It waits for
// in-flight GetBean calls first and rejects new ones. Hook failures do not
// stop the remaining hooks; they are returned together as a DisposalError.
// Calling Close again is a no-op.
func (c *Container) Close() error {
	c.closeMu.Lock()
	if c.closed {
		c.closeMu.Unlock()
		return nil
	}
	c.closed = true
	c.closeMu.Unlock()

	c.inflight.Wait()

	var errs []error
	for _, entry := range c.destroyers.Drain() {
		c.logger.Debug("destroying bean", zap.String("bean", entry.Name))

		if err := entry.Hook(); err != nil {
			c.logger.Warn("destroy hook failed", zap.String("bean", entry.Name), zap.Error(err))
			errs = append(errs, LifecycleError{Name: entry.Name, Phase: "destroy", Cause: err})
		}
	}

	c.singletons.Clear()
	c.definitions.Clear()
	c.preProcessors.Clear()
	c.postProcessors.Clear()
	c.earlyProcessors.Clear()
	c.factoryProcessors.Clear()
	c.analyzer.Clear()

	c.logger.Debug("container closed", zap.Int("failures", len(errs)))

	if len(errs) > 0 {
		return DisposalError{Errors: errs}
	}
	return nil
}
