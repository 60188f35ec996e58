package ioc

import (
	"reflect"
	"sync/atomic"
)

// Definition describes one managed bean: its name, struct type, scope and
// how it is wired. Everything except the scope is fixed once the
// definition is registered.
type Definition struct {
	name string
	typ  reflect.Type

	scope atomic.Int32

	constructors        []constructorDecl
	autowireConstructor bool
	setters             []string
	initMethods         []string
	destroyMethod       string
	lazy                bool
}

type constructorDecl struct {
	fn     any
	inject bool
}

// NewDefinition creates a definition for the struct type typ. Pointer types
// are reduced to their element type. The type is not validated here; an
// unusable type fails when the bean is first created.
func NewDefinition(name string, typ reflect.Type, opts ...DefinitionOption) *Definition {
	for typ != nil && typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}

	def := &Definition{
		name: name,
		typ:  typ,
	}

	for _, opt := range opts {
		if opt != nil {
			opt.apply(def)
		}
	}

	return def
}

// Name returns the unique bean name.
func (d *Definition) Name() string {
	return d.name
}

// Type returns the bean's struct type.
func (d *Definition) Type() reflect.Type {
	return d.typ
}

// Scope returns the current scope.
func (d *Definition) Scope() Scope {
	return Scope(d.scope.Load())
}

// SetScope changes the scope. It is safe to call concurrently with bean
// requests. A singleton that already exists stays cached.
func (d *Definition) SetScope(s Scope) error {
	if !s.IsValid() {
		return ScopeError{Value: s}
	}
	d.scope.Store(int32(s))
	return nil
}

// IsLazy reports whether Refresh skips eager creation of this singleton.
func (d *Definition) IsLazy() bool {
	return d.lazy
}

// AutowiresConstructor reports whether the first declared constructor is
// used for injection.
func (d *Definition) AutowiresConstructor() bool {
	return d.autowireConstructor
}

// Setters returns the declared setter injection points.
func (d *Definition) Setters() []string {
	return append([]string(nil), d.setters...)
}

// InitMethods returns the declared init methods in declaration order.
func (d *Definition) InitMethods() []string {
	return append([]string(nil), d.initMethods...)
}

// DestroyMethod returns the declared destroy method, if any.
func (d *Definition) DestroyMethod() string {
	return d.destroyMethod
}

// DefinitionOption configures a Definition.
type DefinitionOption interface {
	apply(*Definition)
}

type definitionOptionFunc func(*Definition)

func (f definitionOptionFunc) apply(d *Definition) {
	f(d)
}

// AsSingleton keeps one instance per container. This is the default.
func AsSingleton() DefinitionOption {
	return WithScope(Singleton)
}

// AsPrototype creates a new instance on every request.
func AsPrototype() DefinitionOption {
	return WithScope(Prototype)
}

// WithScope sets the initial scope. Invalid scopes are ignored.
func WithScope(s Scope) DefinitionOption {
	return definitionOptionFunc(func(d *Definition) {
		if s.IsValid() {
			d.scope.Store(int32(s))
		}
	})
}

// Constructor declares a constructor. Constructors are functions returning
// *T or (*T, error); their parameters are resolved as beans named after the
// parameter types, or through a parameter object embedding In.
//
// With several constructors declared and none marked, a zero-argument one
// is preferred, then the first declared.
func Constructor(fn any) DefinitionOption {
	return definitionOptionFunc(func(d *Definition) {
		d.constructors = append(d.constructors, constructorDecl{fn: fn})
	})
}

// InjectConstructor declares a constructor marked for injection. If exactly
// one constructor is marked it is always used.
func InjectConstructor(fn any) DefinitionOption {
	return definitionOptionFunc(func(d *Definition) {
		d.constructors = append(d.constructors, constructorDecl{fn: fn, inject: true})
	})
}

// AutowireConstructor selects the first declared constructor for injection
// when none is marked.
func AutowireConstructor() DefinitionOption {
	return definitionOptionFunc(func(d *Definition) {
		d.autowireConstructor = true
	})
}

// Setter declares setter injection points by method name. Each method takes
// one argument, resolved as the bean named after the argument type, and
// returns nothing or an error.
func Setter(methods ...string) DefinitionOption {
	return definitionOptionFunc(func(d *Definition) {
		d.setters = append(d.setters, methods...)
	})
}

// InitMethod declares methods run after injection, in order.
func InitMethod(methods ...string) DefinitionOption {
	return definitionOptionFunc(func(d *Definition) {
		d.initMethods = append(d.initMethods, methods...)
	})
}

// DestroyMethod declares the method run when the container closes. It
// takes precedence over Disposable.
func DestroyMethod(method string) DefinitionOption {
	return definitionOptionFunc(func(d *Definition) {
		d.destroyMethod = method
	})
}

// Lazy excludes a singleton from eager creation in Refresh.
func Lazy() DefinitionOption {
	return definitionOptionFunc(func(d *Definition) {
		d.lazy = true
	})
}
