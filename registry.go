package svcreg

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Registry owns the mapping from Key to registration and implements
// registration bookkeeping, conflict resolution and scoped teardown.
//
// Create instances with New and thread them explicitly through the program;
// the registry's lifetime is bound to its owning context, typically
// application start to stop. There is no process-wide instance.
type Registry struct {
	mu sync.Mutex

	catalog TypeCatalog
	plugins PluginResolver

	regs  map[Key]*registration
	order map[Scope][]*registration

	// owned maps an owner to the instances attached to it by
	// ConstructInjected, disposed LIFO when the owner is destroyed.
	owned map[any][]any

	seq    uint64
	depth  int
	closed bool
}

// Option configures a Registry at construction time.
type Option func(*Registry)

// WithTypeCatalog supplies the type-metadata collaborator. The default is a
// fresh NewReflectCatalog.
func WithTypeCatalog(catalog TypeCatalog) Option {
	return func(r *Registry) {
		r.catalog = catalog
	}
}

// WithPluginResolver supplies the plugin collaborator. The default is an
// empty NewPluginCatalog.
func WithPluginResolver(plugins PluginResolver) Option {
	return func(r *Registry) {
		r.plugins = plugins
	}
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		regs:  make(map[Key]*registration),
		order: make(map[Scope][]*registration),
		owned: make(map[any][]any),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}

	if r.catalog == nil {
		r.catalog = NewReflectCatalog()
	}
	if r.plugins == nil {
		r.plugins = NewPluginCatalog()
	}

	return r
}

// Register installs a registration for key.
//
// Conflict policy: if no registration occupies key, the new one is
// installed in the Unconstructed state. If the existing registration is
// weak, it is discarded (its cached instance destroyed) and the new one
// installed regardless of the new one's weak flag. If the existing
// registration is strong, Register fails with a ServiceExistsError and
// nothing is mutated.
//
// If discarding a weak registration's instance returns a disposal error,
// the new registration is still installed and the error is returned wrapped
// in ErrOverrideDisposal, so callers can tell a noisy override from a
// rejected registration.
func (r *Registry) Register(key Key, src Source, opts ...RegisterOption) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRegistryClosed
	}
	if key.IsZero() {
		return ErrKeyZero
	}
	if err := src.validate(); err != nil {
		return err
	}

	options := registerOptions{scope: ScopeApplication}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	var discardErr error
	if existing, ok := r.regs[key]; ok {
		if !existing.weak {
			return ServiceExistsError{Key: key}
		}
		discardErr = errors.Join(r.discardLocked(existing)...)
	}

	r.seq++
	reg := &registration{
		id:     uuid.NewString(),
		key:    key,
		source: src,
		scope:  options.scope,
		weak:   options.weak,
		seq:    r.seq,
		state:  Unconstructed,
	}

	r.regs[key] = reg
	r.order[reg.scope] = append(r.order[reg.scope], reg)

	if discardErr != nil {
		return fmt.Errorf("%w: %w", ErrOverrideDisposal, discardErr)
	}
	return nil
}

// TeardownScope destroys every constructed instance registered under scope,
// in reverse registration order, and removes the registrations from the
// registry. Pre-built values of unresolved Instance registrations are
// disposed too. Disposal errors are collected into a TeardownError;
// teardown always runs to completion.
func (r *Registry) TeardownScope(scope Scope) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRegistryClosed
	}

	return r.teardownScopeLocked(scope)
}

func (r *Registry) teardownScopeLocked(scope Scope) error {
	regs := r.order[scope]
	delete(r.order, scope)

	var errs []error
	for i := len(regs) - 1; i >= 0; i-- {
		reg := regs[i]
		delete(r.regs, reg.key)
		errs = append(errs, r.destroyRegistrationLocked(reg)...)
	}

	if len(errs) > 0 {
		return TeardownError{Scope: scope, Errors: errs}
	}

	return nil
}

// Close tears down every remaining scope, destroying all constructed
// instances in global reverse registration order, and marks the registry
// closed. All subsequent operations fail with ErrRegistryClosed. Close is
// idempotent.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	all := make([]*registration, 0, len(r.regs))
	for _, reg := range r.regs {
		all = append(all, reg)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].seq > all[j].seq })

	var errs []error
	for _, reg := range all {
		delete(r.regs, reg.key)
		errs = append(errs, r.destroyRegistrationLocked(reg)...)
	}
	r.order = make(map[Scope][]*registration)

	// Adopted children whose owners are not registry instances are still
	// owned by the registry's lifetime.
	for len(r.owned) > 0 {
		for owner := range r.owned {
			errs = append(errs, r.releaseOwnedLocked(owner)...)
			break
		}
	}

	return errors.Join(errs...)
}

// Inspect returns a snapshot of the registration at key, if one exists.
func (r *Registry) Inspect(key Key) (RegistrationInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	reg, ok := r.regs[key]
	if !ok {
		return RegistrationInfo{}, false
	}

	return RegistrationInfo{
		ID:     reg.id,
		Key:    reg.key,
		Scope:  reg.scope,
		Weak:   reg.weak,
		State:  reg.state,
		Source: reg.source.kind,
	}, true
}

// Keys returns the keys of all active registrations in registration order.
func (r *Registry) Keys() []Key {
	r.mu.Lock()
	defer r.mu.Unlock()

	regs := make([]*registration, 0, len(r.regs))
	for _, reg := range r.regs {
		regs = append(regs, reg)
	}
	sort.Slice(regs, func(i, j int) bool { return regs[i].seq < regs[j].seq })

	keys := make([]Key, len(regs))
	for i, reg := range regs {
		keys[i] = reg.key
	}
	return keys
}

// discardLocked removes reg from the registry and destroys what it owns.
// Used for weak-registration override.
func (r *Registry) discardLocked(reg *registration) []error {
	delete(r.regs, reg.key)

	scoped := r.order[reg.scope]
	for i, candidate := range scoped {
		if candidate == reg {
			r.order[reg.scope] = append(scoped[:i], scoped[i+1:]...)
			break
		}
	}

	return r.destroyRegistrationLocked(reg)
}

// destroyRegistrationLocked disposes whatever the registration owns. A
// constructed registration owns its cached instance; an unresolved
// Instance-source registration still owns the pre-built value, since
// ownership transfers at registration, not at first resolution.
func (r *Registry) destroyRegistrationLocked(reg *registration) []error {
	switch {
	case reg.state == Constructed:
		errs := r.destroyLocked(reg.instance)
		reg.instance = nil
		return errs
	case reg.source.kind == SourceInstance:
		return r.destroyLocked(reg.source.instance)
	default:
		return nil
	}
}

// destroyLocked disposes an instance the registry owns: adopted children
// first, LIFO, then the instance itself.
func (r *Registry) destroyLocked(instance any) []error {
	errs := r.releaseOwnedLocked(instance)
	if err := dispose(context.Background(), instance); err != nil {
		errs = append(errs, err)
	}
	return errs
}

// releaseOwnedLocked disposes the children attached to owner, most recently
// adopted first, including any instances they adopted in turn.
func (r *Registry) releaseOwnedLocked(owner any) []error {
	if owner == nil || !ownerComparable(owner) {
		return nil
	}

	children := r.owned[owner]
	if len(children) == 0 {
		return nil
	}
	delete(r.owned, owner)

	var errs []error
	for i := len(children) - 1; i >= 0; i-- {
		errs = append(errs, r.destroyLocked(children[i])...)
	}
	return errs
}

// ReleaseOwned disposes every instance attached to owner by
// ConstructInjected. Call it when an owner that is not itself a registry
// service reaches the end of its life.
func (r *Registry) ReleaseOwned(owner any) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRegistryClosed
	}

	return errors.Join(r.releaseOwnedLocked(owner)...)
}

// ownerComparable reports whether a value can be used as an ownership map
// key without panicking.
func ownerComparable(v any) bool {
	t := reflect.TypeOf(v)
	return t != nil && t.Comparable()
}
