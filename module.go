package ioc

import (
	"fmt"
	"reflect"
)

// Module is a reusable set of registrations applied to a container.
type Module func(*Container) error

// NewModule groups registrations under a name. Failures are reported as a
// ModuleError naming the module.
//
// Example:
//
//	var PersistenceModule = ioc.NewModule("persistence",
//	    ioc.Bean("dataSource", reflect.TypeOf(DataSource{}), ioc.DestroyMethod("Shutdown")),
//	    ioc.Component[OrderDao](),
//	)
//
//	var AppModule = ioc.NewModule("app",
//	    PersistenceModule,
//	    ioc.Component[OrderService](ioc.InitMethod("Start")),
//	)
//
//	if err := c.Install(AppModule); err != nil {
//	    log.Fatal(err)
//	}
func NewModule(name string, items ...Module) Module {
	return func(c *Container) error {
		for _, item := range items {
			if item == nil {
				continue
			}

			if err := item(c); err != nil {
				return ModuleError{Module: name, Cause: err}
			}
		}

		return nil
	}
}

// Bean registers a definition for typ under name.
func Bean(name string, typ reflect.Type, opts ...DefinitionOption) Module {
	return func(c *Container) error {
		return c.Register(name, typ, opts...)
	}
}

// Component registers T under its conventional bean name.
func Component[T any](opts ...DefinitionOption) Module {
	return func(c *Container) error {
		return RegisterComponent[T](c, opts...)
	}
}

// PostProcessor registers a processor. See Container.AddPostProcessor.
func PostProcessor(p any) Module {
	return func(c *Container) error {
		return c.AddPostProcessor(p)
	}
}

// FactoryPostProcessor registers a function run by Refresh before any bean
// is created.
func FactoryPostProcessor(fn func(*Container) error) Module {
	return func(c *Container) error {
		return c.AddFactoryPostProcessor(fn)
	}
}

// Install applies modules in order, stopping at the first failure.
func (c *Container) Install(modules ...Module) error {
	for _, m := range modules {
		if m == nil {
			continue
		}
		if err := m(c); err != nil {
			return err
		}
	}
	return nil
}

// ModuleError reports the module whose registration failed.
type ModuleError struct {
	Module string
	Cause  error
}

func (e ModuleError) Error() string {
	return fmt.Sprintf("module %q: %v", e.Module, e.Cause)
}

func (e ModuleError) Unwrap() error {
	return e.Cause
}
