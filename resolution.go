package ioc

import (
	"runtime/debug"

	"github.com/junioryono/ioc/internal/lifetime"
)

// resolution is the state of one top-level bean request, threaded through
// every nested request it triggers. It is confined to the goroutine that
// issued the request.
type resolution struct {
	owner *lifetime.Owner

	// path holds the beans currently being created, outermost first.
	path []frame

	// visiting holds the beans whose injection is in progress.
	visiting map[string]bool

	// dependents maps a bean name to the beans that requested it within
	// this resolution.
	dependents map[string][]string
}

// frame is one bean on the creation path. viaConstructor is set when the
// bean was requested as a constructor argument of the previous frame.
type frame struct {
	name           string
	viaConstructor bool
}

func newResolution() *resolution {
	return &resolution{
		owner:      lifetime.NewOwner(),
		visiting:   make(map[string]bool),
		dependents: make(map[string][]string),
	}
}

func (r *resolution) push(name string, viaConstructor bool) {
	r.path = append(r.path, frame{name: name, viaConstructor: viaConstructor})
}

func (r *resolution) pop() {
	r.path = r.path[:len(r.path)-1]
}

// current returns the bean being created, or "" at the top level.
func (r *resolution) current() string {
	if len(r.path) == 0 {
		return ""
	}
	return r.path[len(r.path)-1].name
}

func (r *resolution) index(name string) int {
	for i, f := range r.path {
		if f.name == name {
			return i
		}
	}
	return -1
}

func (r *resolution) inPath(name string) bool {
	return r.index(name) >= 0
}

// crossesConstructor reports whether the path from name to the current bean
// contains a constructor edge. Such a cycle cannot be closed with an early
// reference.
func (r *resolution) crossesConstructor(name string) bool {
	i := r.index(name)
	if i < 0 {
		return false
	}
	for _, f := range r.path[i+1:] {
		if f.viaConstructor {
			return true
		}
	}
	return false
}

// cycle returns the part of the creation path that starts at name. When
// name is not on this path (the cycle spans goroutines) the whole path is
// returned followed by name.
func (r *resolution) cycle(name string) []string {
	i := r.index(name)
	if i < 0 {
		return append(r.names(), name)
	}
	return r.names()[i:]
}

func (r *resolution) names() []string {
	names := make([]string, len(r.path))
	for i, f := range r.path {
		names[i] = f.name
	}
	return names
}

// depend records that the current bean requested name.
func (r *resolution) depend(name string) {
	if requester := r.current(); requester != "" && requester != name {
		r.dependents[name] = append(r.dependents[name], requester)
	}
}

// dependentsOf returns every bean that transitively requested name within
// this resolution, nearest first.
func (r *resolution) dependentsOf(name string) []string {
	var (
		out  []string
		seen = map[string]bool{name: true}
		next = []string{name}
	)
	for len(next) > 0 {
		n := next[0]
		next = next[1:]
		for _, d := range r.dependents[n] {
			if seen[d] {
				continue
			}
			seen[d] = true
			out = append(out, d)
			next = append(next, d)
		}
	}
	return out
}

// safeCall runs fn, converting a panic into a PanicError.
func safeCall(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = PanicError{Value: r, Stack: debug.Stack()}
		}
	}()

	return fn()
}
