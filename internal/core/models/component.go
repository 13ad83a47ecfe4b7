package models

import (
	"errors"
	"reflect"

	"github.com/cespare/xxhash/v2"
)

var (
	ErrKindMismatch        = errors.New("component does not belong to this kind")
	ErrNotComponentKind    = errors.New("class is not a component kind")
	ErrIdentifierCollision = errors.New("component identifier collision")
)

// ComponentID identifies a component type. Native identifiers are hashes of
// the fully qualified Go type name, so they are stable for a given build and
// need no process-wide counter.
type ComponentID uint64

// Component is a pointer to a plain data record.
type Component any

// Data is the generic structured value component save/load hooks work with.
type Data map[string]any

// Saver is implemented by components that write their own structured form.
type Saver interface {
	Save(out Data) error
}

// Loader is implemented by components that read their own structured form.
type Loader interface {
	Load(in Data) error
}

// Identified is implemented by components whose identifier is not derived
// from their Go type (script components share one Go type).
type Identified interface {
	ComponentID() ComponentID
}

// IdentifierOf returns the identifier of component type C.
func IdentifierOf[C any]() ComponentID {
	return identifierOfType(reflect.TypeFor[C]())
}

// IdentifierFor returns the identifier of a component instance.
func IdentifierFor(c Component) ComponentID {
	if id, ok := c.(Identified); ok {
		return id.ComponentID()
	}
	t := reflect.TypeOf(c)
	if t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return identifierOfType(t)
}

// ScriptIdentifier returns the identifier used for a script component class.
func ScriptIdentifier(name string) ComponentID {
	return ComponentID(xxhash.Sum64String("script/" + name))
}

func identifierOfType(t reflect.Type) ComponentID {
	return ComponentID(xxhash.Sum64String(qualifiedName(t)))
}

func qualifiedName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	if t.Name() == "" || t.PkgPath() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}
