package lifetime

import "sync"

// Hook tears down one bean.
type Hook func() error

// Entry is a destroy hook bound to its bean name.
type Entry struct {
	Name string
	Hook Hook
}

// Destroyers records at most one destroy hook per bean name.
type Destroyers struct {
	mu    sync.Mutex
	hooks map[string]Hook
	order []string
}

// NewDestroyers creates an empty destroy registry.
func NewDestroyers() *Destroyers {
	return &Destroyers{
		hooks: make(map[string]Hook),
	}
}

// Register records hook for name. A later registration for the same name
// replaces the hook and moves it to the end of the order.
func (d *Destroyers) Register(name string, hook Hook) {
	if hook == nil {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.hooks[name]; exists {
		d.removeFromOrder(name)
	}
	d.hooks[name] = hook
	d.order = append(d.order, name)
}

// Contains reports whether a hook is recorded for name.
func (d *Destroyers) Contains(name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	_, ok := d.hooks[name]
	return ok
}

// Len returns the number of recorded hooks.
func (d *Destroyers) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return len(d.hooks)
}

// Remove drops the hook of name and returns it, or nil when none is
// recorded.
func (d *Destroyers) Remove(name string) Hook {
	d.mu.Lock()
	defer d.mu.Unlock()

	hook, ok := d.hooks[name]
	if !ok {
		return nil
	}
	delete(d.hooks, name)
	d.removeFromOrder(name)

	return hook
}

// Drain empties the registry and returns its hooks, most recently
// registered first.
func (d *Destroyers) Drain() []Entry {
	d.mu.Lock()
	defer d.mu.Unlock()

	entries := make([]Entry, 0, len(d.order))
	for i := len(d.order) - 1; i >= 0; i-- {
		name := d.order[i]
		entries = append(entries, Entry{Name: name, Hook: d.hooks[name]})
	}

	d.hooks = make(map[string]Hook)
	d.order = nil

	return entries
}

func (d *Destroyers) removeFromOrder(name string) {
	for i, n := range d.order {
		if n == name {
			d.order = append(d.order[:i], d.order[i+1:]...)
			return
		}
	}
}
