package models

import (
	"fmt"
	"reflect"

	"gopkg.in/yaml.v3"
)

// ComponentKind is the type-erased descriptor of one component type. The
// class factory hands these out; entities only ever store the records a
// kind creates.
type ComponentKind interface {
	Identifier() ComponentID
	Name() string
	Create() Component
	Save(c Component, out Data) error
	Load(c Component, in Data) error
}

var _ ComponentKind = (*Mixin[struct{}])(nil)

// Mixin adapts any plain struct C into a ComponentKind. C may implement
// Saver and Loader on *C; otherwise its exported fields are mapped through
// YAML tags.
type Mixin[C any] struct {
	id   ComponentID
	name string
}

// NewMixin builds the kind for C, named after the Go type.
func NewMixin[C any]() *Mixin[C] {
	return NewNamedMixin[C](reflect.TypeFor[C]().Name())
}

// NewNamedMixin builds the kind for C under an explicit class name.
func NewNamedMixin[C any](name string) *Mixin[C] {
	return &Mixin[C]{id: IdentifierOf[C](), name: name}
}

func (m *Mixin[C]) Identifier() ComponentID { return m.id }
func (m *Mixin[C]) Name() string            { return m.name }

func (m *Mixin[C]) Create() Component {
	return new(C)
}

func (m *Mixin[C]) Save(c Component, out Data) error {
	typed, ok := c.(*C)
	if !ok {
		return fmt.Errorf("%w: %s got %T", ErrKindMismatch, m.name, c)
	}
	if s, ok := any(typed).(Saver); ok {
		return s.Save(out)
	}
	return encodeFields(typed, out)
}

func (m *Mixin[C]) Load(c Component, in Data) error {
	typed, ok := c.(*C)
	if !ok {
		return fmt.Errorf("%w: %s got %T", ErrKindMismatch, m.name, c)
	}
	if l, ok := any(typed).(Loader); ok {
		return l.Load(in)
	}
	return decodeFields(in, typed)
}

func encodeFields(src any, out Data) error {
	raw, err := yaml.Marshal(src)
	if err != nil {
		return fmt.Errorf("encode %T: %w", src, err)
	}
	var fields map[string]any
	if err := yaml.Unmarshal(raw, &fields); err != nil {
		return fmt.Errorf("encode %T: %w", src, err)
	}
	for k, v := range fields {
		out[k] = v
	}
	return nil
}

func decodeFields(in Data, dst any) error {
	if len(in) == 0 {
		return nil
	}
	raw, err := yaml.Marshal(map[string]any(in))
	if err != nil {
		return fmt.Errorf("decode %T: %w", dst, err)
	}
	if err := yaml.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode %T: %w", dst, err)
	}
	return nil
}
