package ioc

import (
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

// ============================================================================
// Shared Test Types
// ============================================================================

// OrderDao is a dependency-free bean.
type OrderDao struct {
	orders []string
}

func (d *OrderDao) Save(order string) string {
	d.orders = append(d.orders, order)
	return "saved:" + order
}

// OrderService receives its dao through the constructor.
type OrderService struct {
	dao *OrderDao
}

func NewOrderService(dao *OrderDao) *OrderService {
	return &OrderService{dao: dao}
}

func (s *OrderService) CreateOrder(order string) string {
	return s.dao.Save(order)
}

// DatabaseConfig is populated from value tags only.
type DatabaseConfig struct {
	Host   string `value:"localhost:3306"`
	Port   int    `value:"3306"`
	UseSSL bool   `value:"true"`
}

// TServiceA and TServiceB reference each other through fields.
type TServiceA struct {
	B *TServiceB `inject:""`
}

type TServiceB struct {
	A *TServiceA `inject:""`
}

// TSetterA and TSetterB reference each other through setters.
type TSetterA struct {
	b *TSetterB
}

func (a *TSetterA) SetB(b *TSetterB) { a.b = b }

type TSetterB struct {
	a *TSetterA
}

func (b *TSetterB) SetA(a *TSetterA) { b.a = a }

// TCtorA and TCtorB require each other through their constructors.
type TCtorA struct {
	B *TCtorB
}

type TCtorB struct {
	A *TCtorA
}

func NewTCtorA(b *TCtorB) *TCtorA { return &TCtorA{B: b} }
func NewTCtorB(a *TCtorA) *TCtorB { return &TCtorB{A: a} }

// TMixedA takes TMixedB in its constructor; TMixedB injects TMixedA as a
// field.
type TMixedA struct {
	B *TMixedB
}

type TMixedB struct {
	A *TMixedA `inject:""`
}

func NewTMixedA(b *TMixedB) *TMixedA { return &TMixedA{B: b} }

// TMix3A, TMix3B and TMix3C form a cycle with one constructor edge:
// TMix3A -field-> TMix3B -constructor-> TMix3C -field-> TMix3A.
type TMix3A struct {
	B *TMix3B `inject:""`
}

type TMix3B struct {
	C *TMix3C
}

type TMix3C struct {
	A *TMix3A `inject:""`
}

func NewTMix3B(c *TMix3C) *TMix3B { return &TMix3B{C: c} }

// TFailA, TFailB and TFailC form a field cycle in which TFailC takes early
// references of both others. TFailB fails to initialize while Fail is set.
type TFailA struct {
	B *TFailB `inject:""`
}

type TFailB struct {
	C    *TFailC `inject:""`
	Fail bool    `value:"${fail.b}"`
}

func (b *TFailB) Initialize() error {
	if b.Fail {
		return errors.New("boom")
	}
	return nil
}

type TFailC struct {
	A *TFailA `inject:""`
	B *TFailB `inject:""`

	closed atomic.Int32
}

func (c *TFailC) Close() error {
	c.closed.Add(1)
	return nil
}

// TLifecycle records the order of its lifecycle callbacks.
type TLifecycle struct {
	Dao *OrderDao `inject:""`

	mu        sync.Mutex
	events    []string
	name      string
	factory   BeanFactory
	daoAtInit *OrderDao

	initCalls    atomic.Int32
	destroyCalls atomic.Int32
}

func (l *TLifecycle) record(event string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
}

func (l *TLifecycle) Events() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

func (l *TLifecycle) SetBeanName(name string) {
	l.name = name
	l.record("name")
}

func (l *TLifecycle) SetContainer(f BeanFactory) {
	l.factory = f
	l.record("container")
}

func (l *TLifecycle) Initialize() error {
	l.initCalls.Add(1)
	l.daoAtInit = l.Dao
	l.record("initialize")
	return nil
}

func (l *TLifecycle) Start() {
	l.record("start")
}

func (l *TLifecycle) Shutdown() error {
	l.destroyCalls.Add(1)
	l.record("shutdown")
	return nil
}

// TDisposable implements Disposable.
type TDisposable struct {
	closed   atomic.Int32
	closeErr error
	onClose  func()
}

func (d *TDisposable) Close() error {
	d.closed.Add(1)
	if d.onClose != nil {
		d.onClose()
	}
	return d.closeErr
}

// TFailingInit fails its init method.
type TFailingInit struct{}

func (f *TFailingInit) Start() error {
	return errors.New("start failed")
}

// TPanicking panics in its init method.
type TPanicking struct{}

func (p *TPanicking) Start() {
	panic("boom")
}

// TCounter counts how often its constructor ran.
type TCounter struct {
	N int64
}

var counterCalls atomic.Int64

func NewTCounter() *TCounter {
	return &TCounter{N: counterCalls.Add(1)}
}

// TGreeter is a minimal interface used for processor wrapping.
type TGreeter interface {
	Greet() string
}

type TPlainGreeter struct{}

func (g *TPlainGreeter) Greet() string { return "hello" }

type TLoudGreeter struct {
	Inner TGreeter
}

func (g *TLoudGreeter) Greet() string { return g.Inner.Greet() + "!" }

// ============================================================================
// Test Helpers
// ============================================================================

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// newTestContainer creates a container and closes it when the test ends.
func newTestContainer(t *testing.T, opts ...Option) *Container {
	t.Helper()

	c := New(opts...)
	t.Cleanup(func() {
		_ = c.Close()
	})
	return c
}

func mustRegister(t *testing.T, c *Container, name string, typ reflect.Type, opts ...DefinitionOption) {
	t.Helper()
	require.NoError(t, c.Register(name, typ, opts...))
}

func mustGet[T any](t *testing.T, c *Container, name string) T {
	t.Helper()

	bean, err := GetBeanAs[T](c, name)
	require.NoError(t, err)
	return bean
}

// beforeFunc, afterFunc and earlyFunc adapt functions to the processor
// interfaces.
type beforeFunc func(bean any, name string) (any, error)

func (f beforeFunc) BeforeInit(bean any, name string) (any, error) { return f(bean, name) }

type afterFunc func(bean any, name string) (any, error)

func (f afterFunc) AfterInit(bean any, name string) (any, error) { return f(bean, name) }

type earlyFunc func(bean any, name string) (any, error)

func (f earlyFunc) EarlyReference(bean any, name string) (any, error) { return f(bean, name) }
