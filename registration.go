package svcreg

import (
	"fmt"
	"reflect"
)

// SourceKind discriminates the variants of a registration Source.
type SourceKind uint8

const (
	// SourceInstance holds a pre-built object whose ownership transfers to
	// the registry.
	SourceInstance SourceKind = iota + 1

	// SourceType names a cataloged type constructed through the type
	// catalog's standard constructor.
	SourceType

	// SourceFunction holds a factory function plus the ordered dependency
	// keys resolved and passed as its arguments.
	SourceFunction

	// SourcePlugin names a plugin category and optional selector, resolved
	// through the plugin collaborator and then constructed as SourceType.
	SourcePlugin
)

// String returns the string representation of the SourceKind.
func (k SourceKind) String() string {
	switch k {
	case SourceInstance:
		return "Instance"
	case SourceType:
		return "TypeFactory"
	case SourceFunction:
		return "FunctionFactory"
	case SourcePlugin:
		return "PluginFactory"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// Source describes how a registration produces its service instance.
// Construct values with Instance, Type, Factory or Plugin.
type Source struct {
	kind SourceKind

	instance any

	typeID string

	factory     reflect.Value
	factoryType reflect.Type
	deps        []Key

	category string
	selector string
}

// Instance wraps a pre-built object. The registry owns the value from the
// moment registration succeeds and disposes it on teardown or override,
// exactly like a constructed one. No property injection is performed.
func Instance(v any) Source {
	return Source{kind: SourceInstance, instance: v}
}

// Type names a cataloged type to construct lazily through the type
// catalog's standard constructor. The new instance receives property
// injection and the post-construction hook.
func Type(typeID string) Source {
	return Source{kind: SourceType, typeID: typeID}
}

// Factory wraps a user function invoked with the resolved instances of deps
// as positional arguments, in declared order. fn must be a function with
// len(deps) parameters returning the service value, optionally followed by
// an error. Factory-produced instances receive no property injection; the
// parameters are assumed to cover the dependencies.
func Factory(fn any, deps ...Key) Source {
	s := Source{kind: SourceFunction, deps: deps}
	if fn != nil {
		s.factory = reflect.ValueOf(fn)
		s.factoryType = reflect.TypeOf(fn)
	}
	return s
}

// Plugin defers type selection to the plugin collaborator: category is the
// plugin grouping path, selector optionally filters candidates by their
// declared selector key. The resolved type is then constructed as Type.
func Plugin(category, selector string) Source {
	return Source{kind: SourcePlugin, category: category, selector: selector}
}

// Kind returns the source variant.
func (s Source) Kind() SourceKind {
	return s.kind
}

// validate checks the source is well-formed before installation.
func (s Source) validate() error {
	switch s.kind {
	case SourceInstance:
		if s.instance == nil {
			return fmt.Errorf("%w: instance cannot be nil", ErrSourceInvalid)
		}
		v := reflect.ValueOf(s.instance)
		if v.Kind() == reflect.Pointer && v.IsNil() {
			return fmt.Errorf("%w: instance cannot be a nil pointer", ErrSourceInvalid)
		}
	case SourceType:
		if s.typeID == "" {
			return fmt.Errorf("%w: type identity cannot be empty", ErrSourceInvalid)
		}
	case SourceFunction:
		if !s.factory.IsValid() {
			return fmt.Errorf("%w: factory function cannot be nil", ErrSourceInvalid)
		}
		if s.factoryType.Kind() != reflect.Func {
			return fmt.Errorf("%w: factory must be a function, got %s", ErrSourceInvalid, s.factoryType.Kind())
		}
		if s.factory.IsNil() {
			return fmt.Errorf("%w: factory function cannot be nil", ErrSourceInvalid)
		}
		if s.factoryType.IsVariadic() {
			if s.factoryType.NumIn()-1 > len(s.deps) {
				return fmt.Errorf("%w: factory declares %d fixed parameters but only %d dependency keys",
					ErrSourceInvalid, s.factoryType.NumIn()-1, len(s.deps))
			}
		} else if s.factoryType.NumIn() != len(s.deps) {
			return fmt.Errorf("%w: factory declares %d parameters but %d dependency keys",
				ErrSourceInvalid, s.factoryType.NumIn(), len(s.deps))
		}
		if err := validateFactoryReturns(s.factoryType); err != nil {
			return err
		}
		for i, dep := range s.deps {
			if dep.IsZero() {
				return fmt.Errorf("%w: dependency key at index %d is the zero value", ErrSourceInvalid, i)
			}
		}
	case SourcePlugin:
		if s.category == "" {
			return fmt.Errorf("%w: plugin category cannot be empty", ErrSourceInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown source kind %d", ErrSourceInvalid, s.kind)
	}

	return nil
}

func validateFactoryReturns(t reflect.Type) error {
	switch t.NumOut() {
	case 1:
		if t.Out(0) == errType {
			return fmt.Errorf("%w: factory must return a service value, not only an error", ErrSourceInvalid)
		}
	case 2:
		if t.Out(1) != errType {
			return fmt.Errorf("%w: factory second return must be error, got %s", ErrSourceInvalid, t.Out(1))
		}
	default:
		return fmt.Errorf("%w: factory must return (value) or (value, error), got %d values", ErrSourceInvalid, t.NumOut())
	}
	return nil
}

var errType = reflect.TypeOf((*error)(nil)).Elem()

// State tracks the construction lifecycle of a registration. A registration
// transitions Unconstructed -> Constructing -> Constructed exactly once;
// Failed is terminal and sticky. Constructing observed during the
// registration's own resolution signals a dependency cycle.
type State uint8

const (
	// Unconstructed means no resolution has been attempted yet.
	Unconstructed State = iota

	// Constructing means the registration is currently being resolved.
	Constructing

	// Constructed means the instance is built and cached.
	Constructed

	// Failed means construction failed. The state is terminal: subsequent
	// resolutions re-fail fast with the recorded cause until the key is
	// re-registered.
	Failed
)

// String returns the string representation of the State.
func (s State) String() string {
	switch s {
	case Unconstructed:
		return "Unconstructed"
	case Constructing:
		return "Constructing"
	case Constructed:
		return "Constructed"
	case Failed:
		return "Failed"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// IsValid checks if the state is a known value.
func (s State) IsValid() bool {
	return s <= Failed
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// registration is the internal descriptor for one installed service.
type registration struct {
	id     string
	key    Key
	source Source
	scope  Scope
	weak   bool
	seq    uint64

	state    State
	instance any
	failure  error // construction cause, recorded when state == Failed
}

// RegistrationInfo is a point-in-time snapshot of a registration, exposed
// through Registry.Inspect for diagnostics.
type RegistrationInfo struct {
	ID     string
	Key    Key
	Scope  Scope
	Weak   bool
	State  State
	Source SourceKind
}

// registerOptions collects the optional registration settings.
type registerOptions struct {
	scope Scope
	weak  bool
}

// RegisterOption configures a registration.
type RegisterOption func(*registerOptions)

// InScope assigns the registration to a teardown scope. The default is
// ScopeApplication.
func InScope(scope Scope) RegisterOption {
	return func(o *registerOptions) {
		o.scope = scope
	}
}

// Weak marks the registration replaceable: a later registration at the same
// key discards it (destroying its cached instance) instead of failing.
func Weak() RegisterOption {
	return func(o *registerOptions) {
		o.weak = true
	}
}
