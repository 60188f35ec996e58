// Package gin provides ioc integration for the Gin web framework.
//
// This package provides middleware that attaches a container to each
// request and type-safe handler wrappers resolving controllers by bean name.
//
// Example usage:
//
//	c := ioc.New()
//	_ = ioc.RegisterComponent[UserController](c, ioc.AsPrototype())
//	_ = c.Refresh()
//
//	g := gin.New()
//	g.Use(iocgin.Middleware(c))
//
//	g.GET("/users/:id", iocgin.Handle("userController", (*UserController).GetByID))
package gin

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/junioryono/ioc"
)

// Config holds the configuration for the container middleware.
type Config struct {
	// ErrorHandler is called when a middleware function fails.
	// If nil, a default handler returning 500 Internal Server Error is used.
	ErrorHandler func(*gin.Context, error)

	// Middlewares are functions that run after the container is attached.
	// They can be used to initialize request context, set user claims, etc.
	Middlewares []func(*ioc.Container, *gin.Context) error

	// Logger is used by the default error handler. If nil, the logger of the
	// attached container is used.
	Logger *zap.Logger
}

// Option configures the container middleware.
type Option func(*Config)

// WithErrorHandler sets the error handler for middleware failures.
func WithErrorHandler(h func(*gin.Context, error)) Option {
	return func(c *Config) {
		c.ErrorHandler = h
	}
}

// WithMiddleware adds a function that runs after the container is attached.
// Multiple middlewares are executed in the order they are added.
//
// Example:
//
//	iocgin.WithMiddleware(func(c *ioc.Container, gc *gin.Context) error {
//	    gc.Set("tenant", gc.GetHeader("X-Tenant"))
//	    return nil
//	})
func WithMiddleware(mw func(*ioc.Container, *gin.Context) error) Option {
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
	cfg.ErrorHandler = func(c *gin.Context, err error) {
		requestLogger(c.Request.Context(), cfg.Logger).Error("request middleware failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error": "Internal Server Error",
		})
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

// Middleware creates a gin.HandlerFunc that attaches c to every request
// context, where it can be retrieved using ioc.FromContext.
//
// Example:
//
//	g := gin.New()
//	g.Use(iocgin.Middleware(c))
func Middleware(c *ioc.Container, opts ...Option) gin.HandlerFunc {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(gc *gin.Context) {
		gc.Request = gc.Request.WithContext(ioc.WithContainer(gc.Request.Context(), c))

		for _, mw := range cfg.Middlewares {
			if err := mw(c, gc); err != nil {
				cfg.ErrorHandler(gc, err)
				return
			}
		}

		gc.Next()
	}
}

// HandlerConfig holds configuration for the Handle wrapper.
type HandlerConfig struct {
	// PanicRecovery enables panic recovery in the handler.
	PanicRecovery bool

	// PanicHandler is called when a panic occurs (if PanicRecovery is true).
	PanicHandler func(*gin.Context, any)

	// ContainerErrorHandler is called when no usable container is attached
	// to the request.
	ContainerErrorHandler func(*gin.Context, error)

	// ResolutionErrorHandler is called when the controller cannot be
	// resolved.
	ResolutionErrorHandler func(*gin.Context, error)

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
func WithPanicHandler(h func(*gin.Context, any)) HandlerOption {
	return func(c *HandlerConfig) {
		c.PanicHandler = h
	}
}

// WithContainerErrorHandler sets the error handler for container retrieval
// failures.
func WithContainerErrorHandler(h func(*gin.Context, error)) HandlerOption {
	return func(c *HandlerConfig) {
		c.ContainerErrorHandler = h
	}
}

// WithResolutionErrorHandler sets the error handler for controller
// resolution failures.
func WithResolutionErrorHandler(h func(*gin.Context, error)) HandlerOption {
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
	fail := func(c *gin.Context, msg string, field zap.Field) {
		requestLogger(c.Request.Context(), cfg.Logger).Error(msg, field)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error": "Internal Server Error",
		})
	}

	cfg.PanicHandler = func(c *gin.Context, r any) {
		fail(c, "panic in handler", zap.Any("panic", r))
	}
	cfg.ContainerErrorHandler = func(c *gin.Context, err error) {
		fail(c, "failed to get container from context", zap.Error(err))
	}
	cfg.ResolutionErrorHandler = func(c *gin.Context, err error) {
		fail(c, "failed to resolve controller", zap.Error(err))
	}
	return cfg
}

// Handle wraps a controller method. On every request the controller bean
// named beanName is fetched from the container attached to the request and
// passed to method.
//
// Example:
//
//	g.GET("/users/:id", iocgin.Handle("userController", (*UserController).GetByID))
func Handle[T any](beanName string, method func(T, *gin.Context), opts ...HandlerOption) gin.HandlerFunc {
	cfg := defaultHandlerConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(gc *gin.Context) {
		if cfg.PanicRecovery {
			defer func() {
				if r := recover(); r != nil {
					cfg.PanicHandler(gc, r)
				}
			}()
		}

		c, err := ioc.FromContext(gc.Request.Context())
		if err != nil {
			cfg.ContainerErrorHandler(gc, err)
			return
		}

		controller, err := ioc.GetBeanAs[T](c, beanName)
		if err != nil {
			cfg.ResolutionErrorHandler(gc, err)
			return
		}

		method(controller, gc)
	}
}

// RouteRegistrar is implemented by controller beans that declare their own
// routes.
type RouteRegistrar interface {
	Routes(r gin.IRouter)
}

// Mount fetches each named bean from c and lets it register its routes on
// r. Every bean must implement RouteRegistrar.
func Mount(r gin.IRouter, c *ioc.Container, beanNames ...string) error {
	for _, name := range beanNames {
		registrar, err := ioc.GetBeanAs[RouteRegistrar](c, name)
		if err != nil {
			return err
		}
		registrar.Routes(r)
	}
	return nil
}
