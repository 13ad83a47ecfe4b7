package models

import "fmt"

// ScriptComponent is the record type of every component class declared by a
// script module. Its fields are whatever the script declared.
type ScriptComponent struct {
	kind   string
	id     ComponentID
	Fields map[string]any
}

func (s *ScriptComponent) ComponentID() ComponentID { return s.id }
func (s *ScriptComponent) KindName() string         { return s.kind }

// ScriptKind is the ComponentKind of a script-declared class.
type ScriptKind struct {
	name     string
	id       ComponentID
	defaults map[string]any
}

var _ ComponentKind = (*ScriptKind)(nil)

func NewScriptKind(name string, defaults map[string]any) *ScriptKind {
	return &ScriptKind{
		name:     name,
		id:       ScriptIdentifier(name),
		defaults: copyFields(defaults),
	}
}

func (k *ScriptKind) Identifier() ComponentID { return k.id }
func (k *ScriptKind) Name() string            { return k.name }

func (k *ScriptKind) Defaults() map[string]any {
	return copyFields(k.defaults)
}

func (k *ScriptKind) Create() Component {
	return &ScriptComponent{
		kind:   k.name,
		id:     k.id,
		Fields: k.Defaults(),
	}
}

func (k *ScriptKind) Save(c Component, out Data) error {
	sc, err := k.cast(c)
	if err != nil {
		return err
	}
	for key, v := range sc.Fields {
		out[key] = copyLeaf(v)
	}
	return nil
}

func (k *ScriptKind) Load(c Component, in Data) error {
	sc, err := k.cast(c)
	if err != nil {
		return err
	}
	for key, v := range in {
		sc.Fields[key] = copyLeaf(v)
	}
	return nil
}

func (k *ScriptKind) cast(c Component) (*ScriptComponent, error) {
	sc, ok := c.(*ScriptComponent)
	if !ok || sc.id != k.id {
		return nil, fmt.Errorf("%w: %s got %T", ErrKindMismatch, k.name, c)
	}
	return sc, nil
}

func copyFields(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = copyLeaf(v)
	}
	return out
}

func copyLeaf(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return copyFields(t)
	case Data:
		return copyFields(t)
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = copyLeaf(val)
		}
		return out
	default:
		return v
	}
}
