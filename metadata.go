package svcreg

// Slot describes one injectable dependency slot of a type: the key to
// resolve and the setter that applies the resolved instance to the target.
type Slot struct {
	// Key is the dependency key resolved for this slot.
	Key Key

	// Optional slots tolerate a missing registration: the slot is skipped
	// instead of failing the injection.
	Optional bool

	// Set applies the resolved dependency to the target instance.
	Set func(target, dep any) error
}

// TypeCatalog is the type-metadata collaborator: it can construct a
// cataloged type through its standard constructor, enumerate an instance's
// injectable slots, and invoke its post-construction hook.
//
// The registry stays host-agnostic by depending only on this interface;
// NewReflectCatalog provides the stock reflection-backed implementation.
type TypeCatalog interface {
	// ConstructStandard invokes the type's standard constructor. It fails
	// if the type is unknown or lacks one.
	ConstructStandard(typeID string) (any, error)

	// InjectableSlots enumerates the declared injection points of the
	// instance's type. An empty slice means the type declares none.
	InjectableSlots(instance any) ([]Slot, error)

	// InvokeHook invokes the instance's post-construction hook if it
	// declares one, after all injected slots are set. No-op otherwise.
	InvokeHook(instance any) error
}

// PluginResolver is the plugin collaborator: it maps a (category, selector)
// pair to a constructible type identity. category is a grouping path,
// searched non-recursively; an empty selector picks an implementation
// defined candidate among the matches.
//
// NewPluginCatalog provides the stock in-process implementation.
type PluginResolver interface {
	ResolvePlugin(category, selector string) (typeID string, err error)
}

// PostConstructor is the post-construction hook recognized by the stock
// reflection catalog. PostConstruct is invoked exactly once per instance,
// after construction and property injection, before the instance is
// returned from Resolve.
type PostConstructor interface {
	PostConstruct() error
}
