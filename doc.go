// Package svcreg implements a runtime service registry: a dependency
// injection container that lazily constructs named services, resolves and
// injects their dependencies, and manages service lifetime through explicit
// teardown scopes.
//
// Services are registered under a Key together with a Source describing how
// the instance is produced: a pre-built value, a cataloged type, a factory
// function with declared dependencies, or a plugin lookup. Construction is
// deferred until the first Resolve call, which recursively resolves the
// dependency graph, detects cycles structurally, and caches the result.
//
// Registrations are either weak (replaceable by a later registration at the
// same key) or strong (locked; later registrations fail with
// ErrServiceExists). Each registration belongs to exactly one Scope; tearing
// down a scope disposes its constructed instances in reverse registration
// order and removes them from the registry.
//
// Basic usage:
//
//	catalog := svcreg.NewReflectCatalog()
//	catalog.MustRegisterType("app.Logger", NewLogger)
//
//	reg := svcreg.New(svcreg.WithTypeCatalog(catalog))
//	defer reg.Close()
//
//	logger := svcreg.NewKey("Logger")
//	if err := reg.Register(logger, svcreg.Type("app.Logger")); err != nil {
//	    return err
//	}
//
//	v, err := reg.Resolve(logger)
//
// The registry is safe for use from multiple goroutines: a single mutex
// guards registration and resolution, and recursive dependency resolution
// happens inside that critical section. Consumers receive non-owning
// references to cached instances; the registry disposes whatever it caches.
package svcreg
