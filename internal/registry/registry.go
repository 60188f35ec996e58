// Package registry holds the name-keyed stores the container reads on every
// request: bean definitions and the ordered processor chain.
package registry

import "sync"

// Registry is a name-keyed store that remembers first registration order.
// It is safe for concurrent use.
type Registry[V any] struct {
	mu      sync.RWMutex
	entries map[string]V
	order   []string
}

// New creates an empty registry.
func New[V any]() *Registry[V] {
	return &Registry[V]{
		entries: make(map[string]V),
	}
}

// Register stores value under name, replacing any previous entry. A
// replaced entry keeps its original position in Names.
func (r *Registry[V]) Register(name string, value V) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[name]; !exists {
		r.order = append(r.order, name)
	}
	r.entries[name] = value
}

// Get returns the entry registered under name.
func (r *Registry[V]) Get(name string) (V, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.entries[name]
	return v, ok
}

// Contains reports whether name is registered.
func (r *Registry[V]) Contains(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.entries[name]
	return ok
}

// Names returns the registered names in first registration order.
func (r *Registry[V]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Len returns the number of entries.
func (r *Registry[V]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.entries)
}

// Clear removes every entry.
func (r *Registry[V]) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = make(map[string]V)
	r.order = nil
}

// List is an append-only ordered sequence, read through snapshots.
type List[V any] struct {
	mu    sync.RWMutex
	items []V
}

// NewList creates an empty list.
func NewList[V any]() *List[V] {
	return &List[V]{}
}

// Add appends v.
func (l *List[V]) Add(v V) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.items = append(l.items, v)
}

// Snapshot returns a copy of the items in insertion order, so callers can
// iterate without holding the lock while new items are added.
func (l *List[V]) Snapshot() []V {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]V, len(l.items))
	copy(out, l.items)
	return out
}

// Len returns the number of items.
func (l *List[V]) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return len(l.items)
}

// Clear removes all items.
func (l *List[V]) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.items = nil
}
