package svcreg

import (
	"errors"
	"fmt"
	"reflect"
	"runtime/debug"
)

// Resolve returns the service registered at key, constructing it on first
// use. Construction recursively resolves the registration's dependencies,
// runs property injection for type- and plugin-sourced instances, and
// invokes the post-construction hook before caching.
//
// Resolve fails with a ConstructionError when no registration exists for
// key, when a dependency cycle is detected, or when construction fails. A
// failed registration is sticky: subsequent resolutions re-fail with the
// recorded cause without re-attempting construction, until the key is
// re-registered.
func (r *Registry) Resolve(key Key) (any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrRegistryClosed
	}
	if key.IsZero() {
		return nil, ErrKeyZero
	}

	return r.resolveLocked(key)
}

// maxResolutionDepth bounds dependency recursion. The Constructing marker
// catches every true cycle long before this; the bound guards against
// pathological non-cyclic graphs only.
const maxResolutionDepth = 10000

// resolveLocked implements the per-key state machine. Construction can
// recurse back into this method for dependencies while the outer
// registration is marked Constructing; observing Constructing for the
// requested key therefore signals a cycle.
func (r *Registry) resolveLocked(key Key) (any, error) {
	if r.depth >= maxResolutionDepth {
		return nil, ConstructionError{Key: key, Cause: fmt.Errorf("dependency chain exceeds %d levels", maxResolutionDepth)}
	}
	r.depth++
	defer func() { r.depth-- }()

	reg, ok := r.regs[key]
	if !ok {
		return nil, ConstructionError{Key: key, Cause: ErrServiceNotFound}
	}

	switch reg.state {
	case Constructed:
		return reg.instance, nil
	case Constructing:
		return nil, ConstructionError{Key: key, Cause: CycleError{Key: key}}
	case Failed:
		return nil, ConstructionError{Key: key, Cause: reg.failure}
	}

	reg.state = Constructing

	instance, err := r.constructLocked(reg)
	if err != nil {
		reg.state = Failed
		reg.failure = err
		return nil, ConstructionError{Key: key, Cause: err}
	}

	reg.instance = instance
	reg.state = Constructed
	return instance, nil
}

// constructLocked produces the raw instance according to the registration's
// source, runs property injection where the source calls for it, and
// invokes the post-construction hook.
func (r *Registry) constructLocked(reg *registration) (any, error) {
	src := reg.source

	var instance any
	var err error

	switch src.kind {
	case SourceInstance:
		instance = src.instance

	case SourceType:
		instance, err = r.constructTypeLocked(src.typeID)

	case SourceFunction:
		instance, err = r.invokeFactoryLocked(reg.key, src)

	case SourcePlugin:
		var typeID string
		typeID, err = r.plugins.ResolvePlugin(src.category, src.selector)
		if err == nil {
			instance, err = r.constructTypeLocked(typeID)
		}
	}

	if err != nil {
		return nil, err
	}
	if isNilInstance(instance) {
		return nil, fmt.Errorf("%w: source %s yielded nothing", ErrNilInstance, src.kind)
	}

	if err := r.catalog.InvokeHook(instance); err != nil {
		return nil, fmt.Errorf("post-construction hook: %w", err)
	}

	return instance, nil
}

// constructTypeLocked builds a cataloged type and performs property
// injection on the fresh instance. Instance and function sources skip this
// path: their values arrive fully constructed.
func (r *Registry) constructTypeLocked(typeID string) (any, error) {
	instance, err := r.catalog.ConstructStandard(typeID)
	if err != nil {
		return nil, CatalogError{TypeID: typeID, Operation: "construct", Cause: err}
	}

	if err := r.injectIntoLocked(instance); err != nil {
		return nil, err
	}

	return instance, nil
}

// invokeFactoryLocked resolves the factory's declared dependencies in order
// and calls it with the resolved instances as positional arguments.
func (r *Registry) invokeFactoryLocked(key Key, src Source) (any, error) {
	resolved := make([]any, len(src.deps))
	for i, dep := range src.deps {
		v, err := r.resolveLocked(dep)
		if err != nil {
			return nil, err
		}
		resolved[i] = v
	}

	return callFactory(key, src, resolved)
}

// callFactory invokes the factory through reflection, converting a panic
// into a FactoryPanicError.
func callFactory(key Key, src Source, resolved []any) (instance any, err error) {
	defer func() {
		if p := recover(); p != nil {
			instance = nil
			err = FactoryPanicError{Key: key, Panic: p, Stack: debug.Stack()}
		}
	}()

	args := make([]reflect.Value, len(resolved))
	for i, v := range resolved {
		paramType := factoryParamType(src.factoryType, i)
		rv := reflect.ValueOf(v)
		if !rv.Type().AssignableTo(paramType) {
			return nil, fmt.Errorf("dependency %q (%s) is not assignable to factory parameter %d (%s)",
				src.deps[i], formatType(rv.Type()), i, formatType(paramType))
		}
		args[i] = rv
	}

	out := src.factory.Call(args)
	if len(out) == 2 && !out[1].IsNil() {
		return nil, out[1].Interface().(error)
	}
	return out[0].Interface(), nil
}

func factoryParamType(fnType reflect.Type, i int) reflect.Type {
	if fnType.IsVariadic() && i >= fnType.NumIn()-1 {
		return fnType.In(fnType.NumIn() - 1).Elem()
	}
	return fnType.In(i)
}

// InjectServices resolves and applies every injectable slot the catalog
// declares for obj's type. Injection is not transactional: slots applied
// before a failing one remain set, so the caller must treat a partially
// injected object as unusable on error. Optional slots tolerate a missing
// registration and are skipped.
func (r *Registry) InjectServices(obj any) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRegistryClosed
	}
	if obj == nil {
		return fmt.Errorf("%w: injection target", ErrNilInstance)
	}

	if err := r.injectIntoLocked(obj); err != nil {
		return ConstructionError{Key: instanceKey(obj), Cause: err}
	}
	return nil
}

// injectIntoLocked applies property injection to an instance. Slots are
// processed in declaration order; the first failure stops processing and is
// returned, leaving earlier slots set.
func (r *Registry) injectIntoLocked(instance any) error {
	slots, err := r.catalog.InjectableSlots(instance)
	if err != nil {
		return CatalogError{TypeID: typeName(reflect.TypeOf(instance)), Operation: "slots", Cause: err}
	}

	for _, slot := range slots {
		dep, err := r.resolveLocked(slot.Key)
		if err != nil {
			if slot.Optional && errors.Is(err, ErrServiceNotFound) {
				continue
			}
			return err
		}

		if err := slot.Set(instance, dep); err != nil {
			return err
		}
	}

	return nil
}

// ConstructInjected builds a fresh instance of the cataloged type, performs
// property injection on it, invokes its post-construction hook, and
// attaches it to owner for lifetime purposes: when the registry destroys
// the owner, attached instances are disposed first, most recently attached
// first. A nil owner leaves ownership with the caller. Owners that are not
// registry services can be released with ReleaseOwned.
//
// This is how property injection chains into registry-external objects, not
// just registry-owned services.
func (r *Registry) ConstructInjected(typeID string, owner any) (any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrRegistryClosed
	}

	key := NewKey(typeID)
	if owner != nil && !ownerComparable(owner) {
		return nil, ConstructionError{Key: key, Cause: fmt.Errorf("owner of type %T is not comparable", owner)}
	}

	instance, err := r.catalog.ConstructStandard(typeID)
	if err != nil {
		return nil, ConstructionError{Key: key, Cause: CatalogError{TypeID: typeID, Operation: "construct", Cause: err}}
	}

	if err := r.injectIntoLocked(instance); err != nil {
		return nil, ConstructionError{Key: key, Cause: err}
	}

	if err := r.catalog.InvokeHook(instance); err != nil {
		return nil, ConstructionError{Key: key, Cause: fmt.Errorf("post-construction hook: %w", err)}
	}

	if owner != nil {
		r.owned[owner] = append(r.owned[owner], instance)
	}

	return instance, nil
}

// instanceKey derives a diagnostic key from an instance's dynamic type.
func instanceKey(obj any) Key {
	return NewKey(typeName(reflect.TypeOf(obj)))
}

// isNilInstance reports whether a produced instance is nil, including a
// typed nil inside a non-nil interface.
func isNilInstance(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}
