package svcreg

// Scope is a teardown phase tag. Every registration belongs to exactly one
// scope; tearing down a scope disposes its constructed instances in reverse
// registration order and removes the registrations from the registry.
//
// The predeclared scopes cover the common phases; callers may define their
// own values for additional phases (for example one scope per request, as
// the chi adapter does).
type Scope string

const (
	// ScopeApplication holds services that live for the whole application.
	// This is the default registration scope.
	ScopeApplication Scope = "application"

	// ScopeSession holds services torn down when the current session ends.
	ScopeSession Scope = "session"

	// ScopeTransient holds short-lived services the caller tears down
	// explicitly between phases.
	ScopeTransient Scope = "transient"
)

// String implements fmt.Stringer.
func (s Scope) String() string {
	return string(s)
}
