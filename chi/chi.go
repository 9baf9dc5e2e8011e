// Package chi provides svcreg integration for Chi-style HTTP routers.
//
// ScopeMiddleware gives every request its own teardown scope on a shared
// registry; request-lived services registered into that scope are destroyed
// when the request completes. Handle resolves a controller from the
// registry attached to the request context.
//
// Example usage:
//
//	reg := svcreg.New()
//
//	r := chi.NewRouter()
//	r.Use(svcregchi.ScopeMiddleware(reg))
//
//	r.Get("/users/{id}", svcregchi.Handle(userKey, UserController.GetByID))
package chi

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/kettleops/svcreg"
)

// Config holds the configuration for the scope middleware.
type Config struct {
	// TeardownErrorHandler is called when tearing down the request scope
	// fails. If nil, errors are logged using slog.
	TeardownErrorHandler func(error)

	// Middlewares run after the request scope is attached. They can
	// register request-lived services into the scope.
	Middlewares []func(*svcreg.Registry, svcreg.Scope, *http.Request) error

	// ErrorHandler is called when a middleware fails. If nil, a default
	// handler returning 500 Internal Server Error is used.
	ErrorHandler func(http.ResponseWriter, *http.Request, error)
}

// Option configures the scope middleware.
type Option func(*Config)

// WithTeardownErrorHandler sets the handler for scope teardown failures.
func WithTeardownErrorHandler(h func(error)) Option {
	return func(c *Config) {
		c.TeardownErrorHandler = h
	}
}

// WithErrorHandler sets the handler for middleware failures.
func WithErrorHandler(h func(http.ResponseWriter, *http.Request, error)) Option {
	return func(c *Config) {
		c.ErrorHandler = h
	}
}

// WithMiddleware adds a function that runs after the request scope is
// attached. Multiple middlewares are executed in the order they are added.
func WithMiddleware(mw func(*svcreg.Registry, svcreg.Scope, *http.Request) error) Option {
	return func(c *Config) {
		c.Middlewares = append(c.Middlewares, mw)
	}
}

func defaultConfig() *Config {
	return &Config{
		TeardownErrorHandler: func(err error) {
			slog.Error("failed to tear down request scope", "error", err)
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		},
	}
}

// ScopeMiddleware creates a middleware that derives a unique teardown scope
// for each request and attaches it, together with the registry, to the
// request context. The scope is torn down when the request completes,
// destroying every service registered under it.
func ScopeMiddleware(registry *svcreg.Registry, opts ...Option) func(http.Handler) http.Handler {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scope := svcreg.Scope("request/" + uuid.NewString())

			defer func() {
				if err := registry.TeardownScope(scope); err != nil {
					cfg.TeardownErrorHandler(err)
				}
			}()

			r = r.WithContext(svcreg.NewContext(r.Context(), registry, scope))

			for _, mw := range cfg.Middlewares {
				if err := mw(registry, scope, r); err != nil {
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
	// ScopeErrorHandler is called when no registry is attached to the
	// request context.
	ScopeErrorHandler func(http.ResponseWriter, *http.Request, error)

	// ResolutionErrorHandler is called when controller resolution fails.
	ResolutionErrorHandler func(http.ResponseWriter, *http.Request, error)
}

// HandlerOption configures the Handle wrapper.
type HandlerOption func(*HandlerConfig)

// WithScopeErrorHandler sets the handler for missing-context failures.
func WithScopeErrorHandler(h func(http.ResponseWriter, *http.Request, error)) HandlerOption {
	return func(c *HandlerConfig) {
		c.ScopeErrorHandler = h
	}
}

// WithResolutionErrorHandler sets the handler for resolution failures.
func WithResolutionErrorHandler(h func(http.ResponseWriter, *http.Request, error)) HandlerOption {
	return func(c *HandlerConfig) {
		c.ResolutionErrorHandler = h
	}
}

func defaultHandlerConfig() *HandlerConfig {
	return &HandlerConfig{
		ScopeErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			slog.Error("no registry attached to request context", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		},
		ResolutionErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			slog.Error("failed to resolve controller", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		},
	}
}

// Handle wraps a controller method for resolution from the registry
// attached to the request context. The controller registered at key must be
// assignable to T.
//
// Example:
//
//	r.Get("/users/{id}", svcregchi.Handle(userKey, UserController.GetByID))
func Handle[T any](key svcreg.Key, method func(T, http.ResponseWriter, *http.Request), opts ...HandlerOption) http.HandlerFunc {
	cfg := defaultHandlerConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		registry, _, err := svcreg.FromContext(r.Context())
		if err != nil {
			cfg.ScopeErrorHandler(w, r, err)
			return
		}

		v, err := registry.Resolve(key)
		if err != nil {
			cfg.ResolutionErrorHandler(w, r, err)
			return
		}

		controller, ok := v.(T)
		if !ok {
			cfg.ResolutionErrorHandler(w, r, fmt.Errorf("controller at %q has unexpected type %T", key, v))
			return
		}

		method(controller, w, r)
	}
}
