package ioc

import (
	"fmt"
	"reflect"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/junioryono/ioc/internal/reflection"
)

// BeanFactory is the read side of the container handed to ContainerAware
// beans. A constructor parameter of this type receives one too.
type BeanFactory interface {
	GetBean(name string) (any, error)
	ContainsBean(name string) bool
}

// BeanNameAware beans receive their bean name before initialization.
type BeanNameAware interface {
	SetBeanName(name string)
}

// ContainerAware beans receive the container before initialization.
type ContainerAware interface {
	SetContainer(factory BeanFactory)
}

// Initializer beans are initialized after injection, before any declared
// init method.
type Initializer interface {
	Initialize() error
}

// Disposable beans are closed when the container closes, unless a destroy
// method is declared.
//
// Example:
//
//	type DatabaseConnection struct {
//	    conn *sql.DB
//	}
//
//	func (dc *DatabaseConnection) Close() error {
//	    return dc.conn.Close()
//	}
type Disposable interface {
	Close() error
}

// PreInitProcessor runs on every bean before its init hooks. Returning nil
// keeps the current instance.
type PreInitProcessor interface {
	BeforeInit(bean any, name string) (any, error)
}

// PostInitProcessor runs on every bean after its init hooks. Returning nil
// keeps the current instance.
type PostInitProcessor interface {
	AfterInit(bean any, name string) (any, error)
}

// EarlyReferenceProcessor runs when a singleton is handed out before its
// initialization completed, to break a dependency cycle. The returned
// object is what the other beans in the cycle receive.
type EarlyReferenceProcessor interface {
	EarlyReference(bean any, name string) (any, error)
}

var (
	beanFactoryType    = reflect.TypeOf((*BeanFactory)(nil)).Elem()
	beanNameAwareType  = reflect.TypeOf((*BeanNameAware)(nil)).Elem()
	containerAwareType = reflect.TypeOf((*ContainerAware)(nil)).Elem()
	errorType          = reflect.TypeOf((*error)(nil)).Elem()
)

// initialize runs the lifecycle of a freshly injected bean in fixed order:
// aware callbacks, pre-init processors, init hooks, post-init processors.
func (c *Container) initialize(res *resolution, def *Definition, info *reflection.TypeInfo, raw any) (any, error) {
	name := def.Name()

	var factory *boundFactory
	if info.Has(containerAwareType) {
		factory = &boundFactory{c: c, res: res, early: true}
		defer factory.detach()
	}

	err := safeCall(func() error {
		if info.Has(beanNameAwareType) {
			raw.(BeanNameAware).SetBeanName(name)
		}
		if factory != nil {
			raw.(ContainerAware).SetContainer(factory)
		}
		return nil
	})
	if err != nil {
		return nil, LifecycleError{Name: name, Phase: "aware", Cause: err}
	}

	current := raw

	for _, p := range c.preProcessors.Snapshot() {
		current, err = applyProcessor(current, func(bean any) (any, error) { return p.BeforeInit(bean, name) })
		if err != nil {
			return nil, LifecycleError{Name: name, Phase: "before-init", Cause: err}
		}
	}

	if err := c.runInitHooks(def, current); err != nil {
		return nil, LifecycleError{Name: name, Phase: "init", Cause: err}
	}

	for _, p := range c.postProcessors.Snapshot() {
		current, err = applyProcessor(current, func(bean any) (any, error) { return p.AfterInit(bean, name) })
		if err != nil {
			return nil, LifecycleError{Name: name, Phase: "after-init", Cause: err}
		}
	}

	return current, nil
}

// applyProcessor runs one processor step, keeping bean when the processor
// returns nil.
func applyProcessor(bean any, step func(any) (any, error)) (any, error) {
	var out any
	err := safeCall(func() error {
		var stepErr error
		out, stepErr = step(bean)
		return stepErr
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		return bean, nil
	}
	return out, nil
}

// runInitHooks calls Initialize and then each declared init method on bean.
// A declared method named Initialize is not called twice.
func (c *Container) runInitHooks(def *Definition, bean any) error {
	ranInitializer := false

	if init, ok := bean.(Initializer); ok {
		c.logger.Debug("initializing bean", zap.String("bean", def.Name()))
		if err := safeCall(init.Initialize); err != nil {
			return err
		}
		ranInitializer = true
	}

	for _, method := range def.initMethods {
		if method == "Initialize" && ranInitializer {
			continue
		}
		c.logger.Debug("running init method", zap.String("bean", def.Name()), zap.String("method", method))
		if err := callHook(bean, method); err != nil {
			return err
		}
	}

	return nil
}

// callHook invokes a no-argument method by name. The method may return
// nothing or an error.
func callHook(target any, method string) error {
	m := reflect.ValueOf(target).MethodByName(method)
	if !m.IsValid() {
		return fmt.Errorf("%s has no method %s", formatType(reflect.TypeOf(target)), method)
	}

	t := m.Type()
	if t.NumIn() != 0 || t.NumOut() > 1 || (t.NumOut() == 1 && t.Out(0) != errorType) {
		return fmt.Errorf("method %s must take no arguments and return nothing or an error, got %s", method, t)
	}

	return safeCall(func() error {
		out := m.Call(nil)
		if len(out) == 1 && !out[0].IsNil() {
			return out[0].Interface().(error)
		}
		return nil
	})
}

// registerDestroy records the teardown hook of a singleton: the declared
// destroy method, else Close on a Disposable bean. Nothing is recorded for
// beans with neither.
func (c *Container) registerDestroy(def *Definition, raw, final any) {
	name := def.Name()

	if method := def.destroyMethod; method != "" {
		target := raw
		if reflect.ValueOf(final).MethodByName(method).IsValid() {
			target = final
		}
		c.destroyers.Register(name, func() error { return callHook(target, method) })
		return
	}

	for _, bean := range []any{final, raw} {
		if d, ok := bean.(Disposable); ok {
			c.destroyers.Register(name, func() error { return safeCall(d.Close) })
			return
		}
	}
}

// earlyReference produces what other beans receive when they reach name
// while it is still being created.
func (c *Container) earlyReference(name string, raw any) (any, error) {
	c.logger.Debug("exposing early reference", zap.String("bean", name))

	current := raw
	for _, p := range c.earlyProcessors.Snapshot() {
		var err error
		current, err = applyProcessor(current, func(bean any) (any, error) { return p.EarlyReference(bean, name) })
		if err != nil {
			return nil, LifecycleError{Name: name, Phase: "early-reference", Cause: err}
		}
	}

	return current, nil
}

// boundFactory is handed to ContainerAware beans and to constructors that
// take a BeanFactory. While the bean is being constructed or initialized,
// lookups join the resolution that creates it, so they see the beans of that
// resolution instead of waiting on them. Only an initializing bean (early)
// may receive early references. Afterwards lookups go through the container.
type boundFactory struct {
	c        *Container
	res      *resolution
	early    bool
	detached atomic.Bool
}

func (f *boundFactory) GetBean(name string) (any, error) {
	if f.detached.Load() {
		return f.c.GetBean(name)
	}
	return f.c.getBean(f.res, name, f.early)
}

func (f *boundFactory) ContainsBean(name string) bool {
	return f.c.ContainsBean(name)
}

func (f *boundFactory) detach() {
	f.detached.Store(true)
}
