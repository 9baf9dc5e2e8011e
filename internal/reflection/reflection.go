// Package reflection implements the type analysis behind the stock
// reflection catalog: standard-constructor validation and invocation, and
// discovery of injectable slots declared through struct tags.
package reflection

import (
	"fmt"
	"reflect"
	"sync"
)

var errType = reflect.TypeOf((*error)(nil)).Elem()

// SlotInfo describes one injectable field of a struct type.
type SlotInfo struct {
	// FieldName is the Go field name.
	FieldName string

	// Index locates the field for reflect.Value.FieldByIndex.
	Index []int

	// Key is the dependency key named by the inject tag.
	Key string

	// Optional is set by optional:"true".
	Optional bool

	// Type is the field's static type.
	Type reflect.Type
}

// Analyzer discovers injectable slots of struct types. Analysis results are
// cached per type.
type Analyzer struct {
	mu    sync.RWMutex
	cache map[reflect.Type][]SlotInfo
}

// NewAnalyzer creates an empty analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{cache: make(map[reflect.Type][]SlotInfo)}
}

// Slots returns the injectable slots of the struct type t, in field
// declaration order. Fields declare a slot with an `inject:"KeyName"` tag;
// `optional:"true"` marks the slot skippable when the key is unregistered.
// Embedded structs are walked for tagged fields of their own.
func (a *Analyzer) Slots(t reflect.Type) ([]SlotInfo, error) {
	if t == nil || t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("injectable slots require a struct type, got %v", t)
	}

	a.mu.RLock()
	cached, ok := a.cache[t]
	a.mu.RUnlock()
	if ok {
		return cached, nil
	}

	slots, err := collectSlots(t, nil)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	a.cache[t] = slots
	a.mu.Unlock()

	return slots, nil
}

func collectSlots(t reflect.Type, prefix []int) ([]SlotInfo, error) {
	var slots []SlotInfo

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		index := append(append([]int(nil), prefix...), i)

		key, tagged := field.Tag.Lookup("inject")
		if !tagged {
			if field.Anonymous && field.Type.Kind() == reflect.Struct {
				embedded, err := collectSlots(field.Type, index)
				if err != nil {
					return nil, err
				}
				slots = append(slots, embedded...)
			}
			continue
		}

		if field.PkgPath != "" {
			return nil, fmt.Errorf("injectable field %s.%s must be exported", t, field.Name)
		}
		if key == "" {
			return nil, fmt.Errorf("injectable field %s.%s has an empty inject tag", t, field.Name)
		}

		slots = append(slots, SlotInfo{
			FieldName: field.Name,
			Index:     index,
			Key:       key,
			Optional:  field.Tag.Get("optional") == "true",
			Type:      field.Type,
		})
	}

	return slots, nil
}

// Constructor is a validated standard constructor: a nullary function
// returning the produced value, optionally followed by an error.
type Constructor struct {
	fn       reflect.Value
	produces reflect.Type
	hasError bool
}

// AnalyzeConstructor validates fn as a standard constructor.
func AnalyzeConstructor(fn any) (*Constructor, error) {
	if fn == nil {
		return nil, fmt.Errorf("constructor cannot be nil")
	}

	v := reflect.ValueOf(fn)
	t := v.Type()
	if t.Kind() != reflect.Func {
		return nil, fmt.Errorf("constructor must be a function, got %s", t.Kind())
	}
	if v.IsNil() {
		return nil, fmt.Errorf("constructor cannot be nil")
	}
	if t.NumIn() != 0 {
		return nil, fmt.Errorf("standard constructor takes no arguments, %s takes %d", t, t.NumIn())
	}

	switch t.NumOut() {
	case 1:
		if t.Out(0) == errType {
			return nil, fmt.Errorf("constructor %s must return a value, not only an error", t)
		}
		return &Constructor{fn: v, produces: t.Out(0)}, nil
	case 2:
		if t.Out(1) != errType {
			return nil, fmt.Errorf("constructor %s second return must be error, got %s", t, t.Out(1))
		}
		return &Constructor{fn: v, produces: t.Out(0), hasError: true}, nil
	default:
		return nil, fmt.Errorf("constructor %s must return (value) or (value, error)", t)
	}
}

// Produces returns the constructor's result type.
func (c *Constructor) Produces() reflect.Type {
	return c.produces
}

// Invoke calls the constructor. A panic inside the constructor is converted
// into an error.
func (c *Constructor) Invoke() (result any, err error) {
	defer func() {
		if p := recover(); p != nil {
			result = nil
			err = fmt.Errorf("constructor panicked: %v", p)
		}
	}()

	out := c.fn.Call(nil)
	if c.hasError && !out[1].IsNil() {
		return nil, out[1].Interface().(error)
	}
	return out[0].Interface(), nil
}
