package ioc

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/junioryono/ioc/internal/reflection"
)

// GetBeanAs returns the bean registered under name as T.
func GetBeanAs[T any](factory BeanFactory, name string) (T, error) {
	var zero T

	bean, err := factory.GetBean(name)
	if err != nil {
		return zero, err
	}

	result, ok := bean.(T)
	if !ok {
		return zero, fmt.Errorf("type assertion failed: bean %q is %T, not %T", name, bean, zero)
	}

	return result, nil
}

// MustGetBean is like GetBeanAs but panics on error.
func MustGetBean[T any](factory BeanFactory, name string) T {
	bean, err := GetBeanAs[T](factory, name)
	if err != nil {
		panic(err)
	}
	return bean
}

// BeanName returns the conventional bean name of T: its type name with the
// first letter lower-cased, so *OrderService becomes "orderService".
func BeanName[T any]() string {
	return reflection.BeanName(reflect.TypeOf((*T)(nil)).Elem())
}

// RegisterComponent registers T under its conventional bean name.
//
// Example:
//
//	ioc.RegisterComponent[OrderService](c, ioc.InitMethod("Start"))
//	svc, err := ioc.GetBeanAs[*OrderService](c, "orderService")
func RegisterComponent[T any](c *Container, opts ...DefinitionOption) error {
	name := BeanName[T]()
	if name == "" {
		return fmt.Errorf("%w: cannot derive a bean name from %v", ErrEmptyName, reflect.TypeOf((*T)(nil)).Elem())
	}

	return c.Register(name, reflect.TypeOf((*T)(nil)).Elem(), opts...)
}

// IsCircularConstructorDependency reports whether err stems from a
// constructor dependency cycle.
func IsCircularConstructorDependency(err error) bool {
	var cycle CircularConstructorDependencyError
	return errors.As(err, &cycle)
}

// IsNotFound reports whether err stems from a missing bean definition.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrBeanNotFound)
}
