package svcreg

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// ========================================
// Core Error Values (Sentinel Errors)
// ========================================
// These are base errors meant to be matched with errors.Is. Typed errors
// below wrap them with context; the registry never returns them bare except
// where noted.

var (
	// Registration errors.
	ErrServiceExists    = errors.New("service already registered")
	ErrKeyZero          = errors.New("service key cannot be the zero value")
	ErrSourceInvalid    = errors.New("registration source is invalid")
	ErrOverrideDisposal = errors.New("overridden registration disposal failed")

	// Resolution errors.
	ErrServiceConstruction = errors.New("service construction failed")
	ErrServiceNotFound     = errors.New("service not found")
	ErrNilInstance         = errors.New("instance cannot be nil")

	// Lifecycle errors.
	ErrRegistryClosed = errors.New("registry has been closed")

	// Collaborator errors.
	ErrTypeNotCataloged = errors.New("type is not enrolled in the catalog")
	ErrPluginNotFound   = errors.New("no plugin candidate matches")

	// Context errors.
	ErrScopeNotInContext = errors.New("no registry scope attached to context")
)

var (
	_ error = ServiceExistsError{}
	_ error = ConstructionError{}
	_ error = CycleError{}
	_ error = CatalogError{}
	_ error = PluginLookupError{}
	_ error = FactoryPanicError{}
	_ error = SlotTypeError{}
	_ error = TeardownError{}
)

// ========================================
// Typed Errors for Rich Context
// ========================================

// ServiceExistsError indicates a registration conflict: the key is already
// occupied by an active, non-weak registration. The new registration was
// never installed and no state was mutated.
type ServiceExistsError struct {
	Key Key
}

func (e ServiceExistsError) Error() string {
	return fmt.Sprintf("service %q already registered with a strong binding (register the existing one with Weak() to allow override)", e.Key)
}

func (e ServiceExistsError) Is(target error) bool {
	return target == ErrServiceExists
}

// ConstructionError wraps any failure surfaced by Resolve, InjectServices or
// ConstructInjected: a missing registration, a dependency cycle, a
// collaborator failure, or a failing factory. Matches ErrServiceConstruction
// with errors.Is; the underlying cause is available through Unwrap.
type ConstructionError struct {
	Key   Key
	Cause error
}

func (e ConstructionError) Error() string {
	return fmt.Sprintf("service %q: construction failed: %v", e.Key, e.Cause)
}

func (e ConstructionError) Unwrap() error {
	return e.Cause
}

func (e ConstructionError) Is(target error) bool {
	return target == ErrServiceConstruction
}

// CycleError indicates a dependency cycle: the registration was observed in
// the Constructing state during its own resolution.
type CycleError struct {
	Key Key
}

func (e CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected: service %q depends on itself, directly or through its dependencies", e.Key)
}

// CatalogError wraps failures reported by the type catalog collaborator.
type CatalogError struct {
	TypeID    string
	Operation string // "construct", "slots", "hook"
	Cause     error
}

func (e CatalogError) Error() string {
	return fmt.Sprintf("type catalog: %s failed for %q: %v", e.Operation, e.TypeID, e.Cause)
}

func (e CatalogError) Unwrap() error {
	return e.Cause
}

// PluginLookupError indicates the plugin collaborator found no constructible
// candidate for a (category, selector) pair.
type PluginLookupError struct {
	Category string
	Selector string
}

func (e PluginLookupError) Error() string {
	if e.Selector == "" {
		return fmt.Sprintf("no plugin candidate in category %q", e.Category)
	}
	return fmt.Sprintf("no plugin candidate in category %q matches selector %q", e.Category, e.Selector)
}

func (e PluginLookupError) Is(target error) bool {
	return target == ErrPluginNotFound
}

// FactoryPanicError indicates a factory function panicked during invocation.
// It captures the panic value and stack trace for debugging.
type FactoryPanicError struct {
	Key   Key
	Panic any
	Stack []byte
}

func (e FactoryPanicError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("factory for service %q panicked: %v", e.Key, e.Panic))
	if len(e.Stack) > 0 {
		b.WriteString("\n\nStack trace:\n")
		b.Write(e.Stack)
	}
	return b.String()
}

// SlotTypeError indicates a resolved dependency is not assignable to the
// injectable slot it was declared for.
type SlotTypeError struct {
	Slot     Key
	Expected reflect.Type
	Actual   reflect.Type
}

func (e SlotTypeError) Error() string {
	return fmt.Sprintf("injectable slot %q: expected %s, got %s", e.Slot, formatType(e.Expected), formatType(e.Actual))
}

// TeardownError aggregates disposal errors from a scope teardown.
type TeardownError struct {
	Scope  Scope
	Errors []error
}

func (e TeardownError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("teardown of scope %q failed: %v", e.Scope, e.Errors[0])
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("teardown of scope %q failed with %d errors:", e.Scope, len(e.Errors)))
	for i, err := range e.Errors {
		b.WriteString(fmt.Sprintf("\n  %d. %v", i+1, err))
	}
	return b.String()
}

func (e TeardownError) Unwrap() []error {
	return e.Errors
}

// formatType formats a reflect.Type for error messages.
func formatType(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}

	switch t.Kind() {
	case reflect.Pointer:
		elem := t.Elem()
		if elem.PkgPath() != "" && elem.Name() != "" {
			return "*" + elem.Name()
		}
		return t.String()
	case reflect.Interface, reflect.Struct:
		if t.Name() != "" {
			return t.Name()
		}
		return t.String()
	default:
		if t.Name() != "" {
			return t.Name()
		}
		return t.String()
	}
}
