package ioc

import (
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/junioryono/ioc/internal/value"
)

// Option configures a Container.
type Option interface {
	apply(*containerOptions)
}

type containerOptions struct {
	logger  *zap.Logger
	lookups []value.Lookup
}

type optionFunc func(*containerOptions)

func (f optionFunc) apply(opts *containerOptions) {
	f(opts)
}

// WithLogger sets the logger used for container diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return optionFunc(func(opts *containerOptions) {
		if logger != nil {
			opts.logger = logger
		}
	})
}

// WithProperties adds a fixed set of properties for value injection. The
// map is copied.
func WithProperties(props map[string]string) Option {
	copied := make(map[string]string, len(props))
	for k, v := range props {
		copied[k] = v
	}

	return WithPropertyLookup(func(key string) (string, bool) {
		v, ok := copied[key]
		return v, ok
	})
}

// WithPropertyLookup adds a property source. Sources are consulted in the
// order they were added; the first one knowing a key wins.
func WithPropertyLookup(lookup func(key string) (string, bool)) Option {
	return optionFunc(func(opts *containerOptions) {
		if lookup != nil {
			opts.lookups = append(opts.lookups, lookup)
		}
	})
}

// WithEnvironment adds the process environment as a property source.
// A property key maps to an upper-cased variable name with dots and dashes
// replaced by underscores, behind prefix: with prefix "APP", "db.port"
// reads APP_DB_PORT.
func WithEnvironment(prefix string) Option {
	return WithPropertyLookup(func(key string) (string, bool) {
		return os.LookupEnv(EnvironmentKey(prefix, key))
	})
}

// EnvironmentKey returns the environment variable consulted for a property
// key by WithEnvironment.
func EnvironmentKey(prefix, key string) string {
	name := strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(key))
	if prefix == "" {
		return name
	}
	return strings.TrimSuffix(prefix, "_") + "_" + name
}

func (o *containerOptions) lookup(key string) (string, bool) {
	for _, l := range o.lookups {
		if v, ok := l(key); ok {
			return v, true
		}
	}
	return "", false
}
