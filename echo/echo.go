// Package echo provides ioc integration for the Echo web framework.
//
// This package provides middleware that attaches a container to each
// request and type-safe handler wrappers resolving controllers by bean name.
//
// Example usage:
//
//	c := ioc.New()
//	_ = ioc.RegisterComponent[AuthController](c)
//	_ = c.Refresh()
//
//	e := echo.New()
//	e.Use(iocecho.Middleware(c))
//
//	e.POST("/login", iocecho.Handle("authController", (*AuthController).Login))
package echo

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/junioryono/ioc"
)

// Config holds the configuration for the container middleware.
type Config struct {
	// ErrorHandler is called when a middleware function fails.
	// If nil, an HTTP 500 error is returned to Echo's error handling.
	ErrorHandler func(echo.Context, error) error

	// Middlewares are functions that run after the container is attached.
	Middlewares []func(*ioc.Container, echo.Context) error

	// Logger is used by the default error handler. If nil, the logger of the
	// attached container is used.
	Logger *zap.Logger
}

// Option configures the container middleware.
type Option func(*Config)

// WithErrorHandler sets the error handler for middleware failures.
func WithErrorHandler(h func(echo.Context, error) error) Option {
	return func(c *Config) {
		c.ErrorHandler = h
	}
}

// WithMiddleware adds a function that runs after the container is attached.
// Multiple middlewares are executed in the order they are added.
func WithMiddleware(mw func(*ioc.Container, echo.Context) error) Option {
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
	cfg.ErrorHandler = func(c echo.Context, err error) error {
		requestLogger(c.Request().Context(), cfg.Logger).Error("request middleware failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "Internal Server Error")
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

// Middleware creates an Echo middleware that attaches c to every request
// context, where it can be retrieved using ioc.FromContext.
func Middleware(c *ioc.Container, opts ...Option) echo.MiddlewareFunc {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ec echo.Context) error {
			req := ec.Request()
			ec.SetRequest(req.WithContext(ioc.WithContainer(req.Context(), c)))

			for _, mw := range cfg.Middlewares {
				if err := mw(c, ec); err != nil {
					return cfg.ErrorHandler(ec, err)
				}
			}

			return next(ec)
		}
	}
}

// HandlerConfig holds configuration for the Handle wrapper.
type HandlerConfig struct {
	// PanicRecovery enables panic recovery in the handler.
	PanicRecovery bool

	// PanicHandler is called when a panic occurs (if PanicRecovery is true).
	PanicHandler func(echo.Context, any) error

	// ContainerErrorHandler is called when no usable container is attached
	// to the request.
	ContainerErrorHandler func(echo.Context, error) error

	// ResolutionErrorHandler is called when the controller cannot be
	// resolved.
	ResolutionErrorHandler func(echo.Context, error) error

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
func WithPanicHandler(h func(echo.Context, any) error) HandlerOption {
	return func(c *HandlerConfig) {
		c.PanicHandler = h
	}
}

// WithContainerErrorHandler sets the error handler for container retrieval
// failures.
func WithContainerErrorHandler(h func(echo.Context, error) error) HandlerOption {
	return func(c *HandlerConfig) {
		c.ContainerErrorHandler = h
	}
}

// WithResolutionErrorHandler sets the error handler for controller
// resolution failures.
func WithResolutionErrorHandler(h func(echo.Context, error) error) HandlerOption {
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
	cfg.PanicHandler = func(c echo.Context, v any) error {
		requestLogger(c.Request().Context(), cfg.Logger).Error("panic in handler", zap.Any("panic", v))
		return echo.NewHTTPError(http.StatusInternalServerError, "Internal Server Error")
	}
	cfg.ContainerErrorHandler = func(c echo.Context, err error) error {
		requestLogger(c.Request().Context(), cfg.Logger).Error("failed to get container from context", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "Internal Server Error")
	}
	cfg.ResolutionErrorHandler = func(c echo.Context, err error) error {
		requestLogger(c.Request().Context(), cfg.Logger).Error("failed to resolve controller", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "Internal Server Error")
	}
	return cfg
}

// Handle wraps a controller method. On every request the controller bean
// named beanName is fetched from the container attached to the request and
// passed to method.
//
// Example:
//
//	e.GET("/users/:id", iocecho.Handle("userController", (*UserController).GetByID))
func Handle[T any](beanName string, method func(T, echo.Context) error, opts ...HandlerOption) echo.HandlerFunc {
	cfg := defaultHandlerConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(ec echo.Context) (err error) {
		if cfg.PanicRecovery {
			defer func() {
				if v := recover(); v != nil {
					err = cfg.PanicHandler(ec, v)
				}
			}()
		}

		c, containerErr := ioc.FromContext(ec.Request().Context())
		if containerErr != nil {
			return cfg.ContainerErrorHandler(ec, containerErr)
		}

		controller, resolveErr := ioc.GetBeanAs[T](c, beanName)
		if resolveErr != nil {
			return cfg.ResolutionErrorHandler(ec, resolveErr)
		}

		return method(controller, ec)
	}
}

// RouteRegistrar is implemented by controller beans that declare their own
// routes.
type RouteRegistrar interface {
	Routes(g *echo.Group)
}

// Mount fetches each named bean from c and lets it register its routes on
// g. Every bean must implement RouteRegistrar.
func Mount(g *echo.Group, c *ioc.Container, beanNames ...string) error {
	for _, name := range beanNames {
		registrar, err := ioc.GetBeanAs[RouteRegistrar](c, name)
		if err != nil {
			return err
		}
		registrar.Routes(g)
	}
	return nil
}
