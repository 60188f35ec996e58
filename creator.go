package ioc

import (
	"errors"
	"reflect"

	"go.uber.org/zap"

	"github.com/junioryono/ioc/internal/reflection"
)

// instantiate produces the raw instance of def: a pointer to its struct
// type, built by the selected constructor or zero-valued when none is
// declared. The type has already been validated by the analyzer.
func (c *Container) instantiate(res *resolution, def *Definition) (any, error) {
	name := def.Name()

	ctor := selectConstructor(def)
	if ctor == nil {
		return reflect.New(def.Type()).Interface(), nil
	}

	info, err := c.analyzer.AnalyzeConstructor(ctor, def.Type())
	if err != nil {
		return nil, CreationError{Name: name, Type: def.Type(), Cause: err}
	}

	c.logger.Debug("invoking constructor",
		zap.String("bean", name),
		zap.Stringer("constructor", info.Type),
	)

	factory := &boundFactory{c: c, res: res}
	defer factory.detach()

	var instance reflect.Value
	err = safeCall(func() error {
		var invokeErr error
		instance, invokeErr = reflection.Invoke(info, &dependencyResolver{c: c, res: res, factory: factory})
		return invokeErr
	})
	if err != nil {
		return nil, CreationError{Name: name, Type: def.Type(), Cause: unwrapParameter(err)}
	}

	return instance.Interface(), nil
}

// selectConstructor picks the constructor of def:
//
//  1. the only constructor marked with InjectConstructor;
//  2. none, if no constructor is declared;
//  3. the first declared one when AutowireConstructor is set;
//  4. the first zero-argument constructor;
//  5. the first declared constructor.
func selectConstructor(def *Definition) any {
	var marked []any
	for _, decl := range def.constructors {
		if decl.inject {
			marked = append(marked, decl.fn)
		}
	}
	if len(marked) == 1 {
		return marked[0]
	}

	if len(def.constructors) == 0 {
		return nil
	}
	if def.autowireConstructor {
		return def.constructors[0].fn
	}

	for _, decl := range def.constructors {
		t := reflect.TypeOf(decl.fn)
		if t != nil && t.Kind() == reflect.Func && t.NumIn() == 0 {
			return decl.fn
		}
	}

	return def.constructors[0].fn
}

// unwrapParameter drops the parameter wrapper when the cause is already a
// typed container error, so cycles and nested failures surface directly.
func unwrapParameter(err error) error {
	var paramErr *reflection.ParameterError
	if !errors.As(err, &paramErr) {
		return err
	}

	var cycle CircularConstructorDependencyError
	if errors.As(paramErr.Cause, &cycle) {
		return cycle
	}
	return err
}

// dependencyResolver resolves constructor arguments through the container.
// Constructor arguments must be fully initialized, so early references are
// never served. A BeanFactory parameter receives factory.
type dependencyResolver struct {
	c       *Container
	res     *resolution
	factory *boundFactory
}

func (r *dependencyResolver) Resolve(name string, typ reflect.Type, optional bool) (reflect.Value, error) {
	if typ == beanFactoryType {
		return reflect.ValueOf(r.factory), nil
	}
	if optional && !r.c.definitions.Contains(name) {
		return reflect.Value{}, nil
	}

	bean, err := r.c.getBean(r.res, name, false)
	if err != nil {
		return reflect.Value{}, err
	}

	return reflect.ValueOf(bean), nil
}
