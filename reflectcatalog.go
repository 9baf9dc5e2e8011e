package svcreg

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/kettleops/svcreg/internal/reflection"
)

// ReflectCatalog is the stock reflection-backed TypeCatalog. Types are
// enrolled under a type identity together with either a standard
// constructor (func() T or func() (T, error)) or an exemplar struct pointer
// constructed with reflect.New.
//
// Injectable slots are declared with struct tags on exported fields:
//
//	type Editor struct {
//	    Log  Logger  `inject:"Logger"`
//	    Bus  *Bus    `inject:"EventBus" optional:"true"`
//	}
//
// Instances implementing PostConstructor get their hook invoked once, after
// all slots are set.
type ReflectCatalog struct {
	mu       sync.RWMutex
	entries  map[string]catalogEntry
	analyzer *reflection.Analyzer
}

type catalogEntry struct {
	ctor  *reflection.Constructor // nil for exemplar entries
	rtype reflect.Type            // pointer-to-struct type for exemplar entries
}

// NewReflectCatalog creates an empty catalog.
func NewReflectCatalog() *ReflectCatalog {
	return &ReflectCatalog{
		entries:  make(map[string]catalogEntry),
		analyzer: reflection.NewAnalyzer(),
	}
}

// RegisterType enrolls a type under typeID. prototype is either a standard
// constructor function or an exemplar pointer to a struct; exemplar entries
// are constructed with a zero value of the struct. Enrolling an occupied
// typeID fails.
func (c *ReflectCatalog) RegisterType(typeID string, prototype any) error {
	if typeID == "" {
		return fmt.Errorf("type identity cannot be empty")
	}
	if prototype == nil {
		return fmt.Errorf("type %q: prototype cannot be nil", typeID)
	}

	entry := catalogEntry{}
	if reflect.TypeOf(prototype).Kind() == reflect.Func {
		ctor, err := reflection.AnalyzeConstructor(prototype)
		if err != nil {
			return fmt.Errorf("type %q: %w", typeID, err)
		}
		entry.ctor = ctor
	} else {
		t := reflect.TypeOf(prototype)
		if t.Kind() != reflect.Pointer || t.Elem().Kind() != reflect.Struct {
			return fmt.Errorf("type %q: exemplar must be a pointer to struct, got %s", typeID, t)
		}
		entry.rtype = t
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[typeID]; exists {
		return fmt.Errorf("type %q already enrolled", typeID)
	}
	c.entries[typeID] = entry
	return nil
}

// MustRegisterType is RegisterType that panics on error, for package-level
// enrollment.
func (c *ReflectCatalog) MustRegisterType(typeID string, prototype any) {
	if err := c.RegisterType(typeID, prototype); err != nil {
		panic(err)
	}
}

// ConstructStandard implements TypeCatalog.
func (c *ReflectCatalog) ConstructStandard(typeID string) (any, error) {
	c.mu.RLock()
	entry, ok := c.entries[typeID]
	c.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrTypeNotCataloged, typeID)
	}

	if entry.ctor != nil {
		return entry.ctor.Invoke()
	}
	return reflect.New(entry.rtype.Elem()).Interface(), nil
}

// InjectableSlots implements TypeCatalog. Only pointer-to-struct instances
// can declare slots; anything else declares none.
func (c *ReflectCatalog) InjectableSlots(instance any) ([]Slot, error) {
	t := reflect.TypeOf(instance)
	if t == nil || t.Kind() != reflect.Pointer || t.Elem().Kind() != reflect.Struct {
		return nil, nil
	}

	infos, err := c.analyzer.Slots(t.Elem())
	if err != nil {
		return nil, err
	}

	slots := make([]Slot, len(infos))
	for i, info := range infos {
		slots[i] = Slot{
			Key:      NewKey(info.Key),
			Optional: info.Optional,
			Set:      fieldSetter(info),
		}
	}
	return slots, nil
}

// InvokeHook implements TypeCatalog.
func (c *ReflectCatalog) InvokeHook(instance any) error {
	if pc, ok := instance.(PostConstructor); ok {
		return pc.PostConstruct()
	}
	return nil
}

// fieldSetter builds the setter applying a resolved dependency to one
// tagged field.
func fieldSetter(info reflection.SlotInfo) func(target, dep any) error {
	return func(target, dep any) error {
		dv := reflect.ValueOf(dep)
		if !dv.IsValid() || !dv.Type().AssignableTo(info.Type) {
			actual := reflect.TypeOf(dep)
			return SlotTypeError{Slot: NewKey(info.Key), Expected: info.Type, Actual: actual}
		}

		reflect.ValueOf(target).Elem().FieldByIndex(info.Index).Set(dv)
		return nil
	}
}
