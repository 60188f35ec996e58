// Package lifetime owns the state that outlives a single request: the tiered
// singleton cache and the destroy registry consumed at shutdown.
package lifetime

import (
	"errors"
	"sync"
)

// ErrCurrentlyInCreation is returned when a bean is requested again while it
// is being created and no early reference can satisfy the request.
var ErrCurrentlyInCreation = errors.New("bean is currently in creation")

// Owner identifies one resolution chain. Nested requests made while creating
// a bean carry the same Owner; independent callers carry different ones.
type Owner struct {
	// waitingOn is the owner whose creation this owner is blocked on.
	// Guarded by Cache.mu.
	waitingOn *Owner
}

// NewOwner returns a fresh resolution identity.
func NewOwner() *Owner {
	return &Owner{}
}

// ObjectFactory produces the early reference of a bean in creation.
type ObjectFactory func() (any, error)

// creation marks a name that is being created by owner. done is closed once
// the creation has been committed or abandoned.
type creation struct {
	owner *Owner
	done  chan struct{}
}

// Cache is the three-tier singleton cache.
//
//   - finished: fully initialized singletons (tier 1)
//   - early: instances exposed before initialization completed (tier 2)
//   - factories: callbacks producing tier 2 values on demand (tier 3)
//
// The lock is held only while inspecting or committing state; the create
// callback always runs outside it so nested requests for other names never
// block on the caller.
type Cache struct {
	finished sync.Map // map[string]any

	mu        sync.Mutex
	early     map[string]any
	factories map[string]ObjectFactory
	creating  map[string]*creation
	order     []string
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{
		early:     make(map[string]any),
		factories: make(map[string]ObjectFactory),
		creating:  make(map[string]*creation),
	}
}

// Lookup returns the finished singleton registered under name.
func (c *Cache) Lookup(name string) (any, bool) {
	return c.finished.Load(name)
}

// Get returns the singleton named name, creating it with create when it does
// not exist yet.
//
// A request for a name that owner itself is creating is answered from the
// early tiers when allowEarly is set, and fails with ErrCurrentlyInCreation
// otherwise. A request for a name another owner is creating waits for that
// creation to finish, unless waiting would close a wait cycle between owners;
// such a request is treated like a request from the creating owner.
func (c *Cache) Get(owner *Owner, name string, allowEarly bool, create func() (any, error)) (any, error) {
	for {
		if v, ok := c.finished.Load(name); ok {
			return v, nil
		}

		c.mu.Lock()
		if v, ok := c.finished.Load(name); ok {
			c.mu.Unlock()
			return v, nil
		}

		if cr, ok := c.creating[name]; ok {
			if cr.owner != owner && !c.closesWaitCycle(owner, cr.owner) {
				owner.waitingOn = cr.owner
				c.mu.Unlock()

				<-cr.done

				c.mu.Lock()
				owner.waitingOn = nil
				c.mu.Unlock()
				continue
			}

			if !allowEarly {
				c.mu.Unlock()
				return nil, ErrCurrentlyInCreation
			}

			return c.earlyReference(name)
		}

		cr := &creation{owner: owner, done: make(chan struct{})}
		c.creating[name] = cr
		c.mu.Unlock()

		return c.create(name, cr, create)
	}
}

// earlyReference serves name from tier 2, promoting the tier 3 factory if
// needed. Must be called with c.mu held; returns with it released.
func (c *Cache) earlyReference(name string) (any, error) {
	if v, ok := c.early[name]; ok {
		c.mu.Unlock()
		return v, nil
	}

	factory, ok := c.factories[name]
	if !ok {
		c.mu.Unlock()
		return nil, ErrCurrentlyInCreation
	}
	delete(c.factories, name)
	c.mu.Unlock()

	v, err := factory()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.early[name]; ok {
		return existing, nil
	}
	c.early[name] = v

	return v, nil
}

// create runs the creation callback and commits its result. The in-creation
// mark is always cleared, even when create fails or panics.
func (c *Cache) create(name string, cr *creation, create func() (any, error)) (any, error) {
	var (
		instance  any
		err       error
		completed bool
	)

	defer func() {
		c.mu.Lock()
		delete(c.creating, name)
		delete(c.early, name)
		delete(c.factories, name)
		if completed && err == nil {
			c.finished.Store(name, instance)
			c.order = append(c.order, name)
		}
		c.mu.Unlock()

		close(cr.done)
	}()

	instance, err = create()
	completed = true

	return instance, err
}

// closesWaitCycle reports whether owner waiting on target would deadlock,
// i.e. target is already (transitively) waiting on owner.
func (c *Cache) closesWaitCycle(owner, target *Owner) bool {
	limit := len(c.creating) + 1
	for o, n := target, 0; o != nil && n <= limit; o, n = o.waitingOn, n+1 {
		if o == owner {
			return true
		}
	}

	return false
}

// AddFactory registers the tier 3 factory of a bean in creation. It is a
// no-op once the bean is no longer in creation.
func (c *Cache) AddFactory(name string, factory ObjectFactory) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.creating[name]; !ok {
		return
	}
	if _, ok := c.early[name]; ok {
		return
	}
	c.factories[name] = factory
}

// EarlyReference returns the tier 2 value of name, if one was handed out.
func (c *Cache) EarlyReference(name string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.early[name]
	return v, ok
}

// InCreation reports whether name is currently being created.
func (c *Cache) InCreation(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.creating[name]
	return ok
}

// Names returns the finished singletons in completion order.
func (c *Cache) Names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	names := make([]string, len(c.order))
	copy(names, c.order)
	return names
}

// Len returns the number of finished singletons.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.order)
}

// Remove drops the finished singleton name and reports whether it was
// cached. A later Get creates it again.
func (c *Cache) Remove(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.finished.LoadAndDelete(name); !ok {
		return false
	}
	for i, n := range c.order {
		if n == name {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}

	return true
}

// Clear drops every finished singleton. Creations still in flight are left
// alone and commit into the emptied cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, name := range c.order {
		c.finished.Delete(name)
	}
	c.order = nil
}
