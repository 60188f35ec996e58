// Package chi provides ioc integration for the Chi router.
//
// This package provides middleware that attaches a container to each
// request, type-safe handler wrappers resolving controllers by bean name,
// and route mounting for controller beans.
//
// Example usage:
//
//	c := ioc.New()
//	_ = ioc.RegisterComponent[UserController](c, ioc.AsPrototype())
//	_ = c.Refresh()
//
//	r := chi.NewRouter()
//	r.Use(iocchi.Middleware(c))
//
//	r.Get("/users/{id}", iocchi.Handle("userController", (*UserController).GetByID))
package chi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/junioryono/ioc"
)

// Config holds the configuration for the container middleware.
type Config struct {
	// ErrorHandler is called when a middleware function fails.
	// If nil, a default handler returning 500 Internal Server Error is used.
	ErrorHandler func(http.ResponseWriter, *http.Request, error)

	// Middlewares are functions that run after the container is attached.
	// They can be used to initialize request context, set user data, etc.
	Middlewares []func(*ioc.Container, *http.Request) error

	// Logger is used by the default error handler. If nil, the logger of the
	// attached container is used.
	Logger *zap.Logger
}

// Option configures the container middleware.
type Option func(*Config)

// WithErrorHandler sets the error handler for middleware failures.
func WithErrorHandler(h func(http.ResponseWriter, *http.Request, error)) Option {
	return func(c *Config) {
		c.ErrorHandler = h
	}
}

// WithMiddleware adds a function that runs after the container is attached.
// Multiple middlewares are executed in the order they are added.
func WithMiddleware(mw func(*ioc.Container, *http.Request) error) Option {
	return func(c *Config) {
		c.Middlewares = append(c.Middlewares, mw)
	}
}

// WithLogger sets the logger of the default error handler.
func WithLogger(l *zap.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

func defaultConfig() *Config {
	cfg := &Config{}
	cfg.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		requestLogger(r.Context(), cfg.Logger).Error("request middleware failed", zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
	return cfg
}

// requestLogger returns l, or else the logger of the container attached to
// ctx, or else the global logger.
func requestLogger(ctx context.Context, l *zap.Logger) *zap.Logger {
	if l != nil {
		return l
	}
	if c, err := ioc.FromContext(ctx); err == nil {
		return c.Logger()
	}
	return zap.L()
}

// Middleware creates a Chi middleware that attaches c to every request
// context, where it can be retrieved using ioc.FromContext.
//
// Example:
//
//	r := chi.NewRouter()
//	r.Use(iocchi.Middleware(c))
func Middleware(c *ioc.Container, opts ...Option) func(http.Handler) http.Handler {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r = r.WithContext(ioc.WithContainer(r.Context(), c))

			for _, mw := range cfg.Middlewares {
				if err := mw(c, r); err != nil {
					cfg.ErrorHandler(w, r, err)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// HandlerConfig holds configuration for the Handle wrapper.
type HandlerConfig struct {
	// PanicRecovery enables panic recovery in the handler.
	PanicRecovery bool

	// PanicHandler is called when a panic occurs (if PanicRecovery is true).
	PanicHandler func(http.ResponseWriter, *http.Request, any)

	// ContainerErrorHandler is called when no usable container is attached
	// to the request.
	ContainerErrorHandler func(http.ResponseWriter, *http.Request, error)

	// ResolutionErrorHandler is called when the controller cannot be
	// resolved.
	ResolutionErrorHandler func(http.ResponseWriter, *http.Request, error)

	// Logger is used by the default handlers. If nil, the logger of the
	// container attached to the request is used.
	Logger *zap.Logger
}

// HandlerOption configures the Handle wrapper.
type HandlerOption func(*HandlerConfig)

// WithPanicRecovery enables or disables panic recovery in the handler.
func WithPanicRecovery(enabled bool) HandlerOption {
	return func(c *HandlerConfig) {
		c.PanicRecovery = enabled
	}
}

// WithPanicHandler sets the handler for panics.
func WithPanicHandler(h func(http.ResponseWriter, *http.Request, any)) HandlerOption {
	return func(c *HandlerConfig) {
		c.PanicHandler = h
	}
}

// WithContainerErrorHandler sets the error handler for container retrieval
// failures.
func WithContainerErrorHandler(h func(http.ResponseWriter, *http.Request, error)) HandlerOption {
	return func(c *HandlerConfig) {
		c.ContainerErrorHandler = h
	}
}

// WithResolutionErrorHandler sets the error handler for controller
// resolution failures.
func WithResolutionErrorHandler(h func(http.ResponseWriter, *http.Request, error)) HandlerOption {
	return func(c *HandlerConfig) {
		c.ResolutionErrorHandler = h
	}
}

// WithHandlerLogger sets the logger of the default handlers.
func WithHandlerLogger(l *zap.Logger) HandlerOption {
	return func(c *HandlerConfig) {
		c.Logger = l
	}
}

func defaultHandlerConfig() *HandlerConfig {
	cfg := &HandlerConfig{}
	cfg.PanicHandler = func(w http.ResponseWriter, r *http.Request, v any) {
		requestLogger(r.Context(), cfg.Logger).Error("panic in handler", zap.Any("panic", v))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
	cfg.ContainerErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		requestLogger(r.Context(), cfg.Logger).Error("failed to get container from context", zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
	cfg.ResolutionErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		requestLogger(r.Context(), cfg.Logger).Error("failed to resolve controller", zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
	return cfg
}

// Handle wraps a controller method. On every request the controller bean
// named beanName is fetched from the container attached to the request and
// passed to method. A prototype controller is therefore created per request.
//
// Example:
//
//	r.Get("/users/{id}", iocchi.Handle("userController", (*UserController).GetByID))
func Handle[T any](beanName string, method func(T, http.ResponseWriter, *http.Request), opts ...HandlerOption) http.HandlerFunc {
	cfg := defaultHandlerConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.PanicRecovery {
			defer func() {
				if v := recover(); v != nil {
					cfg.PanicHandler(w, r, v)
				}
			}()
		}

		c, err := ioc.FromContext(r.Context())
		if err != nil {
			cfg.ContainerErrorHandler(w, r, err)
			return
		}

		controller, err := ioc.GetBeanAs[T](c, beanName)
		if err != nil {
			cfg.ResolutionErrorHandler(w, r, err)
			return
		}

		method(controller, w, r)
	}
}

// RouteRegistrar is implemented by controller beans that declare their own
// routes.
type RouteRegistrar interface {
	Routes(r chi.Router)
}

// Mount fetches each named bean from c and lets it register its routes on
// r. Every bean must implement RouteRegistrar.
//
// Example:
//
//	r := chi.NewRouter()
//	r.Use(iocchi.Middleware(c))
//	if err := iocchi.Mount(r, c, "userController", "orderController"); err != nil {
//	    log.Fatal(err)
//	}
func Mount(r chi.Router, c *ioc.Container, beanNames ...string) error {
	for _, name := range beanNames {
		registrar, err := ioc.GetBeanAs[RouteRegistrar](c, name)
		if err != nil {
			return err
		}
		registrar.Routes(r)
	}
	return nil
}

// URLParam returns the value of a route parameter of the request.
func URLParam(r *http.Request, key string) string {
	return chi.URLParam(r, key)
}
