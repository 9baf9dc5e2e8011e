package svcreg

import "context"

// binding carries a registry and the scope bound to a context.
type binding struct {
	registry *Registry
	scope    Scope
}

// bindingContextKey is the key for storing the binding in a context.
type bindingContextKey struct{}

// NewContext returns a context carrying the registry and a teardown scope.
// Handlers further down retrieve the pair with FromContext to register or
// resolve request-lived services; the chi adapter uses this to give every
// HTTP request its own scope.
func NewContext(ctx context.Context, registry *Registry, scope Scope) context.Context {
	return context.WithValue(ctx, bindingContextKey{}, binding{registry: registry, scope: scope})
}

// FromContext returns the registry and scope attached to the context, or
// ErrScopeNotInContext when none is.
func FromContext(ctx context.Context) (*Registry, Scope, error) {
	b, ok := ctx.Value(bindingContextKey{}).(binding)
	if !ok || b.registry == nil {
		return nil, "", ErrScopeNotInContext
	}
	return b.registry, b.scope, nil
}
