// Package ioc provides a bean container for Go applications: named bean
// definitions, singleton and prototype scopes, constructor, field and setter
// injection, configured values, lifecycle callbacks and ordered teardown.
//
// # Overview
//
// A bean is a pointer to a struct managed by a Container. Each bean is
// described by a Definition naming its type, scope and wiring:
//
//	c := ioc.New(ioc.WithProperties(map[string]string{
//	    "db.host": "localhost",
//	    "db.port": "3306",
//	}))
//	defer c.Close()
//
//	c.Register("dataSource", reflect.TypeOf(DataSource{}), ioc.Constructor(NewDataSource))
//	c.Register("orderDao", reflect.TypeOf(OrderDao{}))
//	c.Register("orderService", reflect.TypeOf(OrderService{}), ioc.InitMethod("Start"))
//
//	if err := c.Refresh(); err != nil {
//	    log.Fatal(err)
//	}
//
//	svc, err := ioc.GetBeanAs[*OrderService](c, "orderService")
//
// # Scopes
//
//   - Singleton: created on first request, cached and destroyed on Close
//   - Prototype: created on every request and never tracked
//
// The scope of a definition may be changed at runtime with SetScope. A
// singleton that was already created stays cached.
//
// # Injection
//
// Constructor parameters are resolved as beans named after the parameter
// type (a *OrderDao parameter receives bean "orderDao"). Constructors with
// many dependencies may take a single parameter object embedding In:
//
//	type ServiceParams struct {
//	    ioc.In
//
//	    Dao    *OrderDao
//	    Mailer *Mailer `name:"smtpMailer" optional:"true"`
//	}
//
// Fields are injected from struct tags:
//
//	type OrderService struct {
//	    Dao     *OrderDao `inject:""`
//	    Audit   *Audit    `inject:"auditLog" optional:"true"`
//	    Timeout time.Duration `value:"${order.timeout}" default:"5s"`
//	}
//
// A value tag is a template: literal text with ${...} interpolations of
// dotted property keys, rendered and then converted to the field type.
// Setters declared with Setter receive the bean named after their
// argument type.
//
// # Cycles
//
// Singletons that depend on each other through fields or setters are
// resolved: the bean being created is handed out early, before its
// initialization completes. A cycle that passes through a constructor
// parameter cannot be broken and fails with
// CircularConstructorDependencyError.
//
// # Lifecycle
//
// After injection each bean goes through, in order:
//
//  1. SetBeanName (BeanNameAware) and SetContainer (ContainerAware)
//  2. BeforeInit of every PreInitProcessor
//  3. Initialize (Initializer), then the declared init methods
//  4. AfterInit of every PostInitProcessor
//
// When the container closes, the declared destroy method, or Close on a
// Disposable bean, runs for every singleton in reverse creation order.
//
// # Thread Safety
//
// All Container methods are safe for concurrent use. Concurrent first
// requests for the same singleton create it exactly once.
//
// # Error Handling
//
// Failures are reported as typed errors wrapping their cause:
//   - NotFoundError: no definition under the requested name
//   - CreationError: the type or constructor could not produce an instance
//   - InjectionError: a field or setter dependency failed
//   - LifecycleError: an aware callback, processor or hook failed
//   - CircularConstructorDependencyError: unbreakable dependency cycle
//   - ParseError: a configured value did not convert to its field type
package ioc
