// Package fiber provides ioc integration for the Fiber web framework.
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
//	app := fiber.New()
//	app.Use(iocfiber.Middleware(c))
//
//	app.Get("/users/:id", iocfiber.Handle("userController", (*UserController).GetByID))
package fiber

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/junioryono/ioc"
)

// Config holds the configuration for the container middleware.
type Config struct {
	// ErrorHandler is called when a middleware function fails.
	// If nil, a JSON 500 response is sent.
	ErrorHandler func(*fiber.Ctx, error) error

	// Middlewares are functions that run after the container is attached.
	Middlewares []func(*ioc.Container, *fiber.Ctx) error

	// Logger is used by the default error handler. If nil, the logger of the
	// attached container is used.
	Logger *zap.Logger
}

// Option configures the container middleware.
type Option func(*Config)

// WithErrorHandler sets the error handler for middleware failures.
func WithErrorHandler(h func(*fiber.Ctx, error) error) Option {
	return func(c *Config) {
		c.ErrorHandler = h
	}
}

// WithMiddleware adds a function that runs after the container is attached.
// Multiple middlewares are executed in the order they are added.
func WithMiddleware(mw func(*ioc.Container, *fiber.Ctx) error) Option {
	return func(c *Config) {
		c.Middlewares = append(c.Middlewares, mw)
	}
}

func internalError(c *fiber.Ctx) error {
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "Internal Server Error",
	})
}

// WithLogger sets the logger of the default error handler.
func WithLogger(l *zap.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

func defaultConfig() *Config {
	cfg := &Config{}
	cfg.ErrorHandler = func(c *fiber.Ctx, err error) error {
		requestLogger(c, cfg.Logger).Error("request middleware failed", zap.Error(err))
		return internalError(c)
	}
	return cfg
}

// requestLogger returns l, or else the logger of the container attached to
// fc, or else the global logger.
func requestLogger(fc *fiber.Ctx, l *zap.Logger) *zap.Logger {
	if l != nil {
		return l
	}
	if c, err := FromContext(fc); err == nil {
		return c.Logger()
	}
	return zap.L()
}

// Middleware creates a Fiber handler that attaches c to the UserContext of
// every request.
//
// Example:
//
//	app := fiber.New()
//	app.Use(iocfiber.Middleware(c))
func Middleware(c *ioc.Container, opts ...Option) fiber.Handler {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(fc *fiber.Ctx) error {
		fc.SetUserContext(ioc.WithContainer(fc.UserContext(), c))

		for _, mw := range cfg.Middlewares {
			if err := mw(c, fc); err != nil {
				return cfg.ErrorHandler(fc, err)
			}
		}

		return fc.Next()
	}
}

// HandlerConfig holds configuration for the Handle wrapper.
type HandlerConfig struct {
	// PanicRecovery enables panic recovery in the handler.
	PanicRecovery bool

	// PanicHandler is called when a panic occurs (if PanicRecovery is true).
	PanicHandler func(*fiber.Ctx, any) error

	// ContainerErrorHandler is called when no usable container is attached
	// to the request.
	ContainerErrorHandler func(*fiber.Ctx, error) error

	// ResolutionErrorHandler is called when the controller cannot be
	// resolved.
	ResolutionErrorHandler func(*fiber.Ctx, error) error

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
func WithPanicHandler(h func(*fiber.Ctx, any) error) HandlerOption {
	return func(c *HandlerConfig) {
		c.PanicHandler = h
	}
}

// WithContainerErrorHandler sets the error handler for container retrieval
// failures.
func WithContainerErrorHandler(h func(*fiber.Ctx, error) error) HandlerOption {
	return func(c *HandlerConfig) {
		c.ContainerErrorHandler = h
	}
}

// WithResolutionErrorHandler sets the error handler for controller
// resolution failures.
func WithResolutionErrorHandler(h func(*fiber.Ctx, error) error) HandlerOption {
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
	cfg.PanicHandler = func(c *fiber.Ctx, v any) error {
		requestLogger(c, cfg.Logger).Error("panic in handler", zap.Any("panic", v))
		return internalError(c)
	}
	cfg.ContainerErrorHandler = func(c *fiber.Ctx, err error) error {
		requestLogger(c, cfg.Logger).Error("failed to get container from context", zap.Error(err))
		return internalError(c)
	}
	cfg.ResolutionErrorHandler = func(c *fiber.Ctx, err error) error {
		requestLogger(c, cfg.Logger).Error("failed to resolve controller", zap.Error(err))
		return internalError(c)
	}
	return cfg
}

// Handle wraps a controller method. On every request the controller bean
// named beanName is fetched from the container attached by Middleware and
// passed to method.
func Handle[T any](beanName string, method func(T, *fiber.Ctx) error, opts ...HandlerOption) fiber.Handler {
	cfg := defaultHandlerConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(fc *fiber.Ctx) (err error) {
		if cfg.PanicRecovery {
			defer func() {
				if v := recover(); v != nil {
					err = cfg.PanicHandler(fc, v)
				}
			}()
		}

		c, containerErr := FromContext(fc)
		if containerErr != nil {
			return cfg.ContainerErrorHandler(fc, containerErr)
		}

		controller, resolveErr := ioc.GetBeanAs[T](c, beanName)
		if resolveErr != nil {
			return cfg.ResolutionErrorHandler(fc, resolveErr)
		}

		return method(controller, fc)
	}
}

// FromContext retrieves the container attached by Middleware.
// This is useful when you need to fetch beans manually.
//
// Example:
//
//	c, err := iocfiber.FromContext(fc)
//	svc, err := ioc.GetBeanAs[*UserService](c, "userService")
func FromContext(fc *fiber.Ctx) (*ioc.Container, error) {
	return ioc.FromContext(fc.UserContext())
}

// RouteRegistrar is implemented by controller beans that declare their own
// routes.
type RouteRegistrar interface {
	Routes(r fiber.Router)
}

// Mount fetches each named bean from c and lets it register its routes on
// r. Every bean must implement RouteRegistrar.
func Mount(r fiber.Router, c *ioc.Container, beanNames ...string) error {
	for _, name := range beanNames {
		registrar, err := ioc.GetBeanAs[RouteRegistrar](c, name)
		if err != nil {
			return err
		}
		registrar.Routes(r)
	}
	return nil
}
