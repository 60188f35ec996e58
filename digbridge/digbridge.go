// Package digbridge exposes ioc beans to a go.uber.org/dig container.
//
// Code already wired with dig can consume beans managed by an ioc container
// without registering them twice:
//
//	c := ioc.New()
//	_ = ioc.RegisterComponent[OrderService](c)
//
//	dc := dig.New()
//	_ = digbridge.Provide[*OrderService](dc, c, "orderService")
//	_ = dc.Invoke(func(s *OrderService) { ... })
package digbridge

import (
	"go.uber.org/dig"

	"github.com/junioryono/ioc"
)

// Provide registers a dig constructor for T that fetches the bean named name
// from f. dig calls the constructor at most once, so a prototype bean is
// created once per dig container.
func Provide[T any](dc *dig.Container, f ioc.BeanFactory, name string, opts ...dig.ProvideOption) error {
	return dc.Provide(func() (T, error) {
		return ioc.GetBeanAs[T](f, name)
	}, opts...)
}

// ProvideNamed is like Provide but also registers the value under the dig
// name of the bean, so parameter objects can select it with `name:"..."`.
func ProvideNamed[T any](dc *dig.Container, f ioc.BeanFactory, name string) error {
	return Provide[T](dc, f, name, dig.Name(name))
}
