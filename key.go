package svcreg

import "reflect"

// Key identifies a registration in the registry. It names either an
// interface contract or a concrete service type. Keys are comparable values
// and can be used directly in maps.
//
// The zero Key is invalid; Register and Resolve reject it.
type Key struct {
	name string
}

// NewKey creates a key from an explicit name.
func NewKey(name string) Key {
	return Key{name: name}
}

// KeyFor derives a key from the type parameter T. Interface types use the
// interface identity, concrete types the type identity. This gives callers
// a compile-time-checked way to address registrations without inventing
// string names.
//
// Example:
//
//	var loggerKey = svcreg.KeyFor[Logger]()
func KeyFor[T any]() Key {
	t := reflect.TypeOf((*T)(nil)).Elem()
	return Key{name: typeName(t)}
}

// Name returns the key's name.
func (k Key) Name() string {
	return k.name
}

// String implements fmt.Stringer.
func (k Key) String() string {
	if k.name == "" {
		return "<zero key>"
	}
	return k.name
}

// IsZero reports whether the key is the invalid zero value.
func (k Key) IsZero() bool {
	return k.name == ""
}

// typeName produces a stable identity string for a reflect.Type, preferring
// the package-qualified form when available.
func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	if t.Kind() == reflect.Pointer {
		return "*" + typeName(t.Elem())
	}
	if t.PkgPath() != "" {
		return t.PkgPath() + "." + t.Name()
	}
	return t.String()
}
